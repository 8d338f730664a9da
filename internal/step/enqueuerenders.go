package step

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/state"
)

// registerEnqueueRenders closes the pipeline: it merges scripts with generated
// images and audio keys, persists the finished project and a queued preview
// render job per variant, and only then announces the jobs and completion.
func registerEnqueueRenders(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("enqueue-renders",
		[]event.Topic{event.TopicTTSCompleted},
		[]event.Topic{event.TopicRenderEnqueued, event.TopicGenerationCompleted},
		func(ctx context.Context, payload any) error {
			in := payload.(event.TTSCompleted)
			log.Printf("[enqueue-renders] enqueuing render jobs projectId=%s variants=%d", in.ProjectID, len(in.Variants))

			scriptByVariant := make(map[string]*model.Script, len(in.Scripts))
			for i := range in.Scripts {
				scriptByVariant[in.Scripts[i].VariantID] = &in.Scripts[i]
			}
			audioByVariant := make(map[string]string, len(in.TTSResults))
			for _, r := range in.TTSResults {
				audioByVariant[r.VariantID] = r.AudioKey
			}

			var (
				finalVariants []model.Variant
				jobRefs       []model.RenderJobRef
				jobs          []*model.RenderJob
				enqueued      []event.RenderEnqueued
			)

			now := time.Now().UnixMilli()
			for _, variant := range in.Variants {
				script, ok := scriptByVariant[variant.VariantID]
				if !ok {
					log.Printf("[enqueue-renders] no script for variant %s, skipping", variant.VariantID)
					continue
				}

				scenes := mergeScenes(script.Scenes, variant.Scenes, audioByVariant[variant.VariantID])
				finalVariants = append(finalVariants, model.Variant{
					VariantID:   variant.VariantID,
					AspectRatio: variant.AspectRatio,
					Status:      model.VariantStatusReady,
					Scenes:      scenes,
					Music:       script.Music,
				})

				jobID := "job_" + uuid.New().String()
				jobs = append(jobs, &model.RenderJob{
					JobID:     jobID,
					ProjectID: in.ProjectID,
					VariantID: variant.VariantID,
					Quality:   model.QualityPreview,
					Watermark: true,
					Status:    model.JobStatusQueued,
					Progress:  0,
					CreatedAt: now,
				})
				jobRefs = append(jobRefs, model.RenderJobRef{
					JobID:     jobID,
					VariantID: variant.VariantID,
					Status:    model.JobStatusQueued,
				})
				enqueued = append(enqueued, event.RenderEnqueued{
					JobID:       jobID,
					ProjectID:   in.ProjectID,
					VariantID:   variant.VariantID,
					AspectRatio: variant.AspectRatio,
					Scenes:      scenes,
					Music:       script.Music,
					Watermark:   true,
					Quality:     model.QualityPreview,
					BrandProfile: model.RenderBrand{
						BrandName:      in.BrandProfile.BrandName,
						PrimaryColor:   in.BrandProfile.PrimaryColor,
						SecondaryColor: in.BrandProfile.SecondaryColor,
					},
				})
			}

			for _, job := range jobs {
				if err := deps.Store.Set(ctx, state.NamespaceRenderJobs, job.JobID, job); err != nil {
					return fmt.Errorf("store render job %s: %w", job.JobID, err)
				}
			}

			brand := in.BrandProfile
			err := deps.Store.Update(ctx, state.NamespaceProjects, in.ProjectID, func(data []byte, ok bool) (any, error) {
				project := model.Project{ProjectID: in.ProjectID, CreatedAt: now}
				if ok {
					if err := json.Unmarshal(data, &project); err != nil {
						return nil, fmt.Errorf("decode project: %w", err)
					}
				}
				project.BrandProfile = &brand
				project.Variants = finalVariants
				project.RenderJobs = jobRefs
				project.Status = model.ProjectStatusReady
				return project, nil
			})
			if err != nil {
				return fmt.Errorf("finalize project %s: %w", in.ProjectID, err)
			}
			log.Printf("[enqueue-renders] project saved projectId=%s jobs=%d", in.ProjectID, len(jobRefs))

			for _, ev := range enqueued {
				if err := e.Emit(ctx, event.TopicRenderEnqueued, ev); err != nil {
					return err
				}
			}

			variantRefs := make([]model.VariantRef, 0, len(finalVariants))
			for _, v := range finalVariants {
				variantRefs = append(variantRefs, model.VariantRef{
					VariantID:   v.VariantID,
					AspectRatio: v.AspectRatio,
					Status:      v.Status,
				})
			}

			return e.Emit(ctx, event.TopicGenerationCompleted, event.GenerationCompleted{
				ProjectID:    in.ProjectID,
				BrandProfile: in.BrandProfile,
				Variants:     variantRefs,
				RenderJobs:   jobRefs,
				Analytics:    in.Analytics,
			})
		})
}

// mergeScenes joins the drafted scenes with their generated images and the
// variant's audio key.
func mergeScenes(scenes []model.Scene, images []model.SceneImage, audioKey string) []model.Scene {
	imageByScene := make(map[int]*model.SceneImage, len(images))
	for i := range images {
		imageByScene[images[i].SceneNumber] = &images[i]
	}

	out := make([]model.Scene, len(scenes))
	for i, scene := range scenes {
		if img, ok := imageByScene[scene.SceneNumber]; ok {
			scene.ImageURL = img.ImageURL
			scene.ImagePrompt = img.ImagePrompt
		}
		scene.AudioKey = audioKey
		out[i] = scene
	}
	return out
}
