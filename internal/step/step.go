// Package step contains the ad-generation pipeline handlers. Each step
// subscribes to one topic, calls one external collaborator per unit of work,
// substitutes a deterministic fallback when the collaborator fails, and emits
// exactly one success topic (moderation branches passed|flagged). A partial
// failure degrades the output, it never stalls the pipeline.
package step

import (
	"context"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/client"
	"github.com/narriq/api/internal/model"
	"github.com/narriq/api/internal/service"
	"github.com/narriq/api/internal/state"
)

// SiteScraper fetches and parses a landing page.
type SiteScraper interface {
	Scrape(ctx context.Context, url string) (*model.ScrapedData, error)
}

// ChatModel drafts JSON-mode completions.
type ChatModel interface {
	ChatCompletionJSON(ctx context.Context, system, user string, temperature float64) (string, error)
	IsConfigured() bool
}

// ModerationModel checks script text for brand safety.
type ModerationModel interface {
	Moderate(ctx context.Context, input string) (*client.ModerationVerdict, error)
	IsConfigured() bool
}

// ImageModel generates one scene image and returns its URL.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string, ratio model.AspectRatio) (string, error)
	IsConfigured() bool
}

// SpeechModel synthesizes voiceover audio.
type SpeechModel interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	IsConfigured() bool
}

// Deps are the collaborators shared by the pipeline steps. Nil or
// unconfigured entries switch the owning step to its fallback path without
// attempting a network call.
type Deps struct {
	Store      state.Store
	Scraper    SiteScraper
	Chat       ChatModel
	Moderation ModerationModel
	// Images are tried on the primary provider (SDXL) and fall back to the
	// secondary (DALL-E) when the primary is absent.
	ImagePrimary   ImageModel
	ImageSecondary ImageModel
	// Speech prefers ElevenLabs, then OpenAI TTS.
	SpeechPrimary   SpeechModel
	SpeechSecondary SpeechModel
	Storage         client.StorageClient // optional, nil when R2 is not configured
	// Enqueuer hands pipeline-created render jobs to the task queue. Nil
	// leaves the jobs to the simulated progression.
	Enqueuer service.TaskEnqueuer
}

// RegisterAll wires every pipeline step into the engine.
func RegisterAll(e *bus.Engine, deps Deps) error {
	registrations := []func(*bus.Engine, Deps) error{
		registerScrape,
		registerBrandExtract,
		registerScriptGen,
		registerModeration,
		registerModerationReview,
		registerImageGen,
		registerAnalytics,
		registerTTS,
		registerEnqueueRenders,
		registerRenderDispatch,
	}
	for _, reg := range registrations {
		if err := reg(e, deps); err != nil {
			return err
		}
	}
	return nil
}

func pickImageModel(deps Deps) ImageModel {
	if deps.ImagePrimary != nil && deps.ImagePrimary.IsConfigured() {
		return deps.ImagePrimary
	}
	if deps.ImageSecondary != nil && deps.ImageSecondary.IsConfigured() {
		return deps.ImageSecondary
	}
	return nil
}

func pickSpeechModel(deps Deps) (SpeechModel, string) {
	if deps.SpeechPrimary != nil && deps.SpeechPrimary.IsConfigured() {
		return deps.SpeechPrimary, "elevenlabs"
	}
	if deps.SpeechSecondary != nil && deps.SpeechSecondary.IsConfigured() {
		return deps.SpeechSecondary, "openai"
	}
	return nil, ""
}
