package step

import (
	"bytes"
	"context"
	"encoding/base64"
	"log"
	"strings"
	"time"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/client"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/state"
)

func registerTTS(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("tts",
		[]event.Topic{event.TopicAnalyticsScored},
		[]event.Topic{event.TopicTTSCompleted},
		func(ctx context.Context, payload any) error {
			in := payload.(event.AnalyticsScored)
			log.Printf("[tts] starting voiceover synthesis projectId=%s variants=%d", in.ProjectID, len(in.Scripts))

			provider, providerName := pickSpeechModel(deps)
			results := make([]model.TTSResult, 0, len(in.Scripts))

			for _, script := range in.Scripts {
				result := synthesizeVariant(ctx, deps, provider, providerName, in.ProjectID, &script)
				if result.Error != "" {
					e.RecordFallback(in.ProjectID, "tts", "silent voiceover for variant "+script.VariantID)
				}
				results = append(results, result)
				log.Printf("[tts] voiceover done variantId=%s provider=%s duration=%.1fs",
					script.VariantID, result.Provider, result.Duration)
			}

			return e.Emit(ctx, event.TopicTTSCompleted, event.TTSCompleted{
				ProjectID:    in.ProjectID,
				BrandProfile: in.BrandProfile,
				Scripts:      in.Scripts,
				Variants:     in.Variants,
				Analytics:    in.Analytics,
				TTSResults:   results,
			})
		})
}

// synthesizeVariant joins the variant's voiceover lines, synthesizes them and
// stores the audio in the state store under audio_<variantId>. Events carry
// only the key.
func synthesizeVariant(ctx context.Context, deps Deps, provider SpeechModel, providerName, projectID string, script *model.Script) model.TTSResult {
	failed := model.TTSResult{
		VariantID: script.VariantID,
		Duration:  5,
		Provider:  "failed",
		Error:     "TTS generation failed",
	}

	var lines []string
	for _, scene := range script.Scenes {
		if scene.Voiceover != "" {
			lines = append(lines, scene.Voiceover)
		}
	}
	fullVoiceover := strings.Join(lines, ". ")

	if provider == nil || fullVoiceover == "" {
		return failed
	}

	audio, err := provider.Synthesize(ctx, fullVoiceover)
	if err != nil {
		log.Printf("[tts] synthesis failed variantId=%s: %v", script.VariantID, err)
		return failed
	}

	blob := model.AudioBlob{
		Data:        base64.StdEncoding.EncodeToString(audio),
		ContentType: "audio/mpeg",
		CreatedAt:   time.Now().UnixMilli(),
	}

	// Mirror the track to object storage when available; renders stream from
	// the public URL instead of re-decoding the stored blob.
	if deps.Storage != nil {
		key := client.AudioObjectKey(projectID, script.VariantID)
		if url, err := deps.Storage.Upload(ctx, key, bytes.NewReader(audio), "audio/mpeg"); err != nil {
			log.Printf("[tts] audio upload failed variantId=%s: %v", script.VariantID, err)
		} else {
			blob.URL = url
		}
	}

	audioKey := "audio_" + script.VariantID
	if err := deps.Store.Set(ctx, state.NamespaceAudio, audioKey, blob); err != nil {
		log.Printf("[tts] audio store failed variantId=%s: %v", script.VariantID, err)
		return failed
	}

	words := len(strings.Fields(fullVoiceover))
	duration := float64(words) / 150 * 60
	if duration < 5 {
		duration = 5
	}

	return model.TTSResult{
		VariantID: script.VariantID,
		AudioKey:  audioKey,
		Duration:  duration,
		Provider:  providerName,
	}
}
