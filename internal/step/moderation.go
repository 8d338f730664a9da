package step

import (
	"context"
	"log"
	"strings"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
)

func registerModeration(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("content-moderation",
		[]event.Topic{event.TopicScriptsGenerated},
		[]event.Topic{event.TopicModerationPassed, event.TopicModerationFlagged},
		func(ctx context.Context, payload any) error {
			in := payload.(event.ScriptsGenerated)
			log.Printf("[content-moderation] starting moderation projectId=%s scripts=%d", in.ProjectID, len(in.Scripts))

			results := make([]model.ModerationResult, 0, len(in.Scripts))
			anyFlagged := false

			for _, script := range in.Scripts {
				result := moderateScript(ctx, deps.Moderation, &script)
				if result.Note != "" {
					e.RecordFallback(in.ProjectID, "content-moderation", result.Note+" for variant "+script.VariantID)
				}
				if result.Flagged {
					anyFlagged = true
				}
				results = append(results, result)
				log.Printf("[content-moderation] script moderated variantId=%s flagged=%t", script.VariantID, result.Flagged)
			}

			if anyFlagged {
				log.Printf("[content-moderation] content flagged projectId=%s", in.ProjectID)
				return e.Emit(ctx, event.TopicModerationFlagged, event.ModerationFlagged{
					ProjectID:    in.ProjectID,
					URL:          in.URL,
					ScrapedData:  in.ScrapedData,
					BrandProfile: in.BrandProfile,
					Scripts:      in.Scripts,
					Results:      results,
				})
			}

			log.Printf("[content-moderation] content passed projectId=%s", in.ProjectID)
			return e.Emit(ctx, event.TopicModerationPassed, event.ModerationPassed{
				ProjectID:    in.ProjectID,
				URL:          in.URL,
				ScrapedData:  in.ScrapedData,
				BrandProfile: in.BrandProfile,
				Scripts:      in.Scripts,
				Results:      results,
			})
		})
}

// moderateScript checks one script's overlay and voiceover text. An
// unavailable or failing moderation endpoint allows the content through with
// a note rather than blocking the pipeline.
func moderateScript(ctx context.Context, mod ModerationModel, script *model.Script) model.ModerationResult {
	var parts []string
	for _, scene := range script.Scenes {
		parts = append(parts, scene.TextOverlay, scene.Voiceover)
	}
	content := strings.TrimSpace(strings.Join(parts, " "))

	if mod == nil || !mod.IsConfigured() {
		return model.ModerationResult{
			VariantID: script.VariantID,
			Flagged:   false,
			Note:      "moderation check skipped",
		}
	}

	verdict, err := mod.Moderate(ctx, content)
	if err != nil {
		log.Printf("[content-moderation] moderation call failed, allowing content variantId=%s: %v", script.VariantID, err)
		return model.ModerationResult{
			VariantID: script.VariantID,
			Flagged:   false,
			Note:      "moderation check skipped",
		}
	}

	return model.ModerationResult{
		VariantID:  script.VariantID,
		Flagged:    verdict.Flagged,
		Categories: verdict.Categories,
		Scores:     verdict.Scores,
	}
}
