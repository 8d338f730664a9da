package step

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/state"
)

const analyticsSystem = "You are an expert ad performance analyst. Analyze video ad scripts and predict their effectiveness. Return only valid JSON."

func registerAnalytics(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("analytics-agent",
		[]event.Topic{event.TopicImagesGenerated},
		[]event.Topic{event.TopicAnalyticsScored},
		func(ctx context.Context, payload any) error {
			in := payload.(event.ImagesGenerated)
			log.Printf("[analytics-agent] starting performance analysis projectId=%s variants=%d", in.ProjectID, len(in.Variants))

			records := make([]model.AnalyticsRecord, 0, len(in.Scripts))
			for _, script := range in.Scripts {
				record, usedFallback := scoreScript(ctx, deps.Chat, &in.BrandProfile, &script)
				if usedFallback {
					e.RecordFallback(in.ProjectID, "analytics-agent", "default scores for variant "+script.VariantID)
				}
				records = append(records, record)
				log.Printf("[analytics-agent] variant analyzed variantId=%s overall=%d", script.VariantID, record.OverallScore)
			}

			report := model.AnalyticsReport{
				ProjectID:  in.ProjectID,
				Results:    records,
				AnalyzedAt: time.Now().UTC().Format(time.RFC3339),
			}
			if err := deps.Store.Set(ctx, state.NamespaceAnalytics, in.ProjectID, report); err != nil {
				return fmt.Errorf("store analytics report: %w", err)
			}

			return e.Emit(ctx, event.TopicAnalyticsScored, event.AnalyticsScored{
				ProjectID:    in.ProjectID,
				BrandProfile: in.BrandProfile,
				Scripts:      in.Scripts,
				Variants:     in.Variants,
				Analytics:    records,
			})
		})
}

func scoreScript(ctx context.Context, chat ChatModel, brand *model.BrandProfile, script *model.Script) (model.AnalyticsRecord, bool) {
	fallback := model.AnalyticsRecord{
		VariantID:             script.VariantID,
		AspectRatio:           script.AspectRatio,
		EngagementScore:       75,
		ClarityScore:          80,
		BrandAlignmentScore:   70,
		CTAEffectivenessScore: 75,
		OverallScore:          75,
		PredictedCTR:          "2.5%",
		Suggestions:           []string{"Unable to analyze - using default scores"},
	}

	if chat == nil || !chat.IsConfigured() {
		return fallback, true
	}

	var sceneLines []string
	for _, s := range script.Scenes {
		sceneLines = append(sceneLines, fmt.Sprintf("Scene %d: %q - %s", s.SceneNumber, s.TextOverlay, s.VisualDescription))
	}

	prompt := fmt.Sprintf(`Analyze this 5-second video ad script and predict performance:

Brand: %s
Target Audience: %s
Tone: %s
CTA: %s

Scenes:
%s

Provide scores (0-100) and brief suggestions in JSON format:
{
  "engagementScore": number,
  "clarityScore": number,
  "brandAlignmentScore": number,
  "ctaEffectivenessScore": number,
  "overallScore": number,
  "suggestions": ["suggestion1", "suggestion2"],
  "predictedCTR": "X.X%%"
}`,
		brand.BrandName, brand.Audience, brand.Tone, brand.CallToAction, strings.Join(sceneLines, "\n"))

	content, err := chat.ChatCompletionJSON(ctx, analyticsSystem, prompt, 0.3)
	if err != nil {
		log.Printf("[analytics-agent] model call failed for %s: %v", script.VariantID, err)
		return fallback, true
	}

	var record model.AnalyticsRecord
	if err := json.Unmarshal([]byte(content), &record); err != nil || record.OverallScore == 0 {
		log.Printf("[analytics-agent] unusable model output for %s", script.VariantID)
		return fallback, true
	}
	record.VariantID = script.VariantID
	record.AspectRatio = script.AspectRatio
	if record.PredictedCTR == "" {
		record.PredictedCTR = fallback.PredictedCTR
	}
	return record, false
}
