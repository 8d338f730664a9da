package step

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/service"
)

// registerRenderDispatch hands each announced render job to the task queue,
// the same path explicit render requests take. Without an enqueuer the job
// stays queued and the time-simulated status progression takes over.
func registerRenderDispatch(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("render-dispatch",
		[]event.Topic{event.TopicRenderEnqueued},
		nil,
		func(ctx context.Context, payload any) error {
			in := payload.(event.RenderEnqueued)
			if deps.Enqueuer == nil {
				log.Printf("[render-dispatch] no task queue, job %s left to simulation", in.JobID)
				return nil
			}

			data, err := json.Marshal(model.RenderDispatchPayload{
				JobID:        in.JobID,
				ProjectID:    in.ProjectID,
				VariantID:    in.VariantID,
				AspectRatio:  in.AspectRatio,
				Scenes:       in.Scenes,
				Music:        in.Music,
				Watermark:    in.Watermark,
				Quality:      in.Quality,
				BrandProfile: in.BrandProfile,
			})
			if err != nil {
				return fmt.Errorf("marshal dispatch payload: %w", err)
			}
			_, err = deps.Enqueuer.Enqueue(asynq.NewTask(service.TaskTypeRenderDispatch, data),
				asynq.Queue("render"),
				asynq.MaxRetry(3),
				asynq.Retention(24*time.Hour),
			)
			if err != nil {
				return fmt.Errorf("enqueue dispatch task %s: %w", in.JobID, err)
			}
			log.Printf("[render-dispatch] dispatch task enqueued jobId=%s", in.JobID)
			return nil
		})
}
