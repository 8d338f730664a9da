package step

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
)

const scriptGenSystem = `You are an expert video ad scriptwriter. Create a punchy 5-second ad. Return JSON:
{
  "scenes": [
    {
      "sceneNumber": 1,
      "duration": 2.5,
      "visualDescription": "What to show",
      "textOverlay": "Short text",
      "voiceover": "Brief narration",
      "transition": "fade",
      "cameraMotion": "zoom-in"
    }
  ],
  "music": { "mood": "upbeat", "tempo": "fast" }
}
Create exactly 2 scenes totaling 5 seconds.`

type scriptDraft struct {
	Scenes []model.Scene `json:"scenes"`
	Music  model.Music   `json:"music"`
}

func registerScriptGen(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("script-gen",
		[]event.Topic{event.TopicBrandExtracted},
		[]event.Topic{event.TopicScriptsGenerated},
		func(ctx context.Context, payload any) error {
			in := payload.(event.BrandExtracted)
			log.Printf("[script-gen] starting script generation projectId=%s ratios=%v", in.ProjectID, in.AspectRatios)

			scripts := make([]model.Script, 0, len(in.AspectRatios))
			for _, ratio := range in.AspectRatios {
				variantID := model.VariantIDFor(in.ProjectID, ratio)
				script, usedFallback := generateScript(ctx, deps.Chat, &in.BrandProfile, variantID, ratio, in.Duration)
				if usedFallback {
					e.RecordFallback(in.ProjectID, "script-gen", "fallback script for variant "+variantID)
				}
				scripts = append(scripts, script)
				log.Printf("[script-gen] script ready variantId=%s scenes=%d", variantID, len(script.Scenes))
			}

			return e.Emit(ctx, event.TopicScriptsGenerated, event.ScriptsGenerated{
				ProjectID:    in.ProjectID,
				URL:          in.URL,
				ScrapedData:  in.ScrapedData,
				BrandProfile: in.BrandProfile,
				Scripts:      scripts,
			})
		})
}

func generateScript(ctx context.Context, chat ChatModel, brand *model.BrandProfile, variantID string, ratio model.AspectRatio, duration float64) (model.Script, bool) {
	script := model.Script{
		VariantID:   variantID,
		AspectRatio: ratio,
		Duration:    duration,
		Music:       model.Music{Mood: "upbeat", Tempo: "fast"},
	}

	if chat == nil || !chat.IsConfigured() {
		script.Scenes = fallbackScenes(brand)
		return script, true
	}

	prompt := fmt.Sprintf(`Create a %g second video ad script for:

Brand: %s
Tagline: %s
Tone: %s
Target Audience: %s
Call to Action: %s
Aspect Ratio: %s

Create exactly 2 scenes for a 5-second ad:
- Scene 1 (2.5 sec): Hook/Brand intro
- Scene 2 (2.5 sec): CTA`,
		duration, brand.BrandName, brand.Tagline, brand.Tone, brand.Audience, brand.CallToAction, ratio)

	content, err := chat.ChatCompletionJSON(ctx, scriptGenSystem, prompt, 0.8)
	if err != nil {
		log.Printf("[script-gen] model call failed for %s: %v", variantID, err)
		script.Scenes = fallbackScenes(brand)
		return script, true
	}

	var draft scriptDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil || len(draft.Scenes) == 0 {
		log.Printf("[script-gen] unusable model output for %s", variantID)
		script.Scenes = fallbackScenes(brand)
		return script, true
	}

	script.Scenes = sanitizeScenes(draft.Scenes)
	if draft.Music.Mood != "" {
		script.Music = draft.Music
	}
	return script, false
}

// sanitizeScenes enforces the scene contract on model output: contiguous
// scene numbers, positive durations and a transition from the allowed set.
func sanitizeScenes(scenes []model.Scene) []model.Scene {
	out := make([]model.Scene, len(scenes))
	for i, s := range scenes {
		s.SceneNumber = i + 1
		if s.Duration <= 0 {
			s.Duration = 2.5
		}
		if s.VisualDescription == "" {
			s.VisualDescription = "Brand visual"
		}
		switch s.Transition {
		case model.TransitionFade, model.TransitionCut, model.TransitionDissolve:
		default:
			s.Transition = model.TransitionFade
		}
		out[i] = s
	}
	return out
}

func fallbackScenes(brand *model.BrandProfile) []model.Scene {
	return []model.Scene{
		{
			SceneNumber:       1,
			Duration:          2.5,
			VisualDescription: brand.BrandName + " logo reveal",
			TextOverlay:       brand.BrandName,
			Voiceover:         brand.Tagline,
			Transition:        model.TransitionFade,
			CameraMotion:      model.CameraZoomIn,
		},
		{
			SceneNumber:       2,
			Duration:          2.5,
			VisualDescription: "Call to action",
			TextOverlay:       brand.CallToAction,
			Voiceover:         brand.CallToAction + " now!",
			Transition:        model.TransitionFade,
			CameraMotion:      model.CameraZoomOut,
		},
	}
}
