package step

import (
	"context"
	"log"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
)

// Flagged scripts are not dropped: the review step replaces each flagged
// variant's scenes with the neutral fallback script and rejoins the approved
// path, so a flagged project still produces renderable content.
func registerModerationReview(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("moderation-review",
		[]event.Topic{event.TopicModerationFlagged},
		[]event.Topic{event.TopicModerationPassed},
		func(ctx context.Context, payload any) error {
			in := payload.(event.ModerationFlagged)
			log.Printf("[moderation-review] reviewing flagged content projectId=%s", in.ProjectID)

			flagged := make(map[string]bool, len(in.Results))
			for _, r := range in.Results {
				if r.Flagged {
					flagged[r.VariantID] = true
				}
			}

			scripts := make([]model.Script, len(in.Scripts))
			copy(scripts, in.Scripts)
			for i := range scripts {
				if !flagged[scripts[i].VariantID] {
					continue
				}
				scripts[i].Scenes = fallbackScenes(&in.BrandProfile)
				scripts[i].Music = model.Music{Mood: "upbeat", Tempo: "fast"}
				e.RecordFallback(in.ProjectID, "moderation-review", "replaced flagged script for variant "+scripts[i].VariantID)
				log.Printf("[moderation-review] script replaced variantId=%s", scripts[i].VariantID)
			}

			results := make([]model.ModerationResult, len(in.Results))
			copy(results, in.Results)
			for i := range results {
				if results[i].Flagged {
					results[i].Flagged = false
					results[i].Note = "script replaced with fallback content"
				}
			}

			return e.Emit(ctx, event.TopicModerationPassed, event.ModerationPassed{
				ProjectID:    in.ProjectID,
				URL:          in.URL,
				ScrapedData:  in.ScrapedData,
				BrandProfile: in.BrandProfile,
				Scripts:      scripts,
				Results:      results,
			})
		})
}
