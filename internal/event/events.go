// Package event defines the workflow topics and one validated payload struct
// per topic. Payloads are typed at the bus boundary instead of carrying
// free-form maps between steps, so a malformed emit fails at the producer
// rather than deep inside a downstream handler.
package event

import (
	"reflect"

	"github.com/narriq/api/internal/model"
)

type Topic string

const (
	TopicGenerationStarted   Topic = "ad.generation.started"
	TopicSiteScraped         Topic = "site.scraped"
	TopicBrandExtracted      Topic = "brand.extracted"
	TopicScriptsGenerated    Topic = "scripts.generated"
	TopicModerationPassed    Topic = "moderation.passed"
	TopicModerationFlagged   Topic = "moderation.flagged"
	TopicImagesGenerated     Topic = "images.generated"
	TopicAnalyticsScored     Topic = "analytics.scored"
	TopicTTSCompleted        Topic = "tts.completed"
	TopicRenderEnqueued      Topic = "render.enqueued"
	TopicGenerationCompleted Topic = "ad.generation.completed"
	TopicCleanupCompleted    Topic = "cleanup.completed"
)

// ProjectScoped payloads can be journaled against their project.
type ProjectScoped interface {
	ProjectKey() string
}

// GenerationStarted kicks off the pipeline for a new project skeleton.
type GenerationStarted struct {
	ProjectID    string              `json:"projectId" validate:"required"`
	URL          string              `json:"url" validate:"required,url"`
	AspectRatios []model.AspectRatio `json:"aspectRatios" validate:"required,min=1,max=3,dive,oneof=16:9 9:16 1:1"`
	BrandHints   *model.BrandHints   `json:"brandHints,omitempty"`
	Duration     float64             `json:"duration" validate:"required,gt=0"`
}

func (e GenerationStarted) ProjectKey() string { return e.ProjectID }

// SiteScraped carries the fixed scraped-data shape downstream.
type SiteScraped struct {
	ProjectID    string              `json:"projectId" validate:"required"`
	URL          string              `json:"url" validate:"required"`
	ScrapedData  model.ScrapedData   `json:"scrapedData"`
	BrandHints   *model.BrandHints   `json:"brandHints,omitempty"`
	AspectRatios []model.AspectRatio `json:"aspectRatios" validate:"required,min=1"`
	Duration     float64             `json:"duration" validate:"required,gt=0"`
}

func (e SiteScraped) ProjectKey() string { return e.ProjectID }

// BrandExtracted adds the complete brand profile; the profile is always fully
// populated, from the model or from the scrape-derived fallback.
type BrandExtracted struct {
	ProjectID    string              `json:"projectId" validate:"required"`
	URL          string              `json:"url" validate:"required"`
	ScrapedData  model.ScrapedData   `json:"scrapedData"`
	BrandProfile model.BrandProfile  `json:"brandProfile" validate:"required"`
	AspectRatios []model.AspectRatio `json:"aspectRatios" validate:"required,min=1"`
	Duration     float64             `json:"duration" validate:"required,gt=0"`
}

func (e BrandExtracted) ProjectKey() string { return e.ProjectID }

// ScriptsGenerated carries one drafted script per requested aspect ratio.
type ScriptsGenerated struct {
	ProjectID    string             `json:"projectId" validate:"required"`
	URL          string             `json:"url" validate:"required"`
	ScrapedData  model.ScrapedData  `json:"scrapedData"`
	BrandProfile model.BrandProfile `json:"brandProfile" validate:"required"`
	Scripts      []model.Script     `json:"scripts" validate:"required,min=1,dive"`
}

func (e ScriptsGenerated) ProjectKey() string { return e.ProjectID }

// ModerationPassed continues the approved path.
type ModerationPassed struct {
	ProjectID    string                   `json:"projectId" validate:"required"`
	URL          string                   `json:"url" validate:"required"`
	ScrapedData  model.ScrapedData        `json:"scrapedData"`
	BrandProfile model.BrandProfile       `json:"brandProfile" validate:"required"`
	Scripts      []model.Script           `json:"scripts" validate:"required,min=1,dive"`
	Results      []model.ModerationResult `json:"moderationResults"`
}

func (e ModerationPassed) ProjectKey() string { return e.ProjectID }

// ModerationFlagged branches to the remediation path when any script tripped
// a flag.
type ModerationFlagged struct {
	ProjectID    string                   `json:"projectId" validate:"required"`
	URL          string                   `json:"url" validate:"required"`
	ScrapedData  model.ScrapedData        `json:"scrapedData"`
	BrandProfile model.BrandProfile       `json:"brandProfile" validate:"required"`
	Scripts      []model.Script           `json:"scripts" validate:"required,min=1,dive"`
	Results      []model.ModerationResult `json:"moderationResults" validate:"required,min=1"`
}

func (e ModerationFlagged) ProjectKey() string { return e.ProjectID }

// ImagesGenerated adds per-scene image URLs (generated or placeholder).
type ImagesGenerated struct {
	ProjectID    string                `json:"projectId" validate:"required"`
	URL          string                `json:"url" validate:"required"`
	BrandProfile model.BrandProfile    `json:"brandProfile" validate:"required"`
	Scripts      []model.Script        `json:"scripts" validate:"required,min=1,dive"`
	Variants     []model.VariantImages `json:"variants" validate:"required,min=1"`
}

func (e ImagesGenerated) ProjectKey() string { return e.ProjectID }

// AnalyticsScored adds the predicted-performance records.
type AnalyticsScored struct {
	ProjectID    string                  `json:"projectId" validate:"required"`
	BrandProfile model.BrandProfile      `json:"brandProfile" validate:"required"`
	Scripts      []model.Script          `json:"scripts" validate:"required,min=1,dive"`
	Variants     []model.VariantImages   `json:"variants" validate:"required,min=1"`
	Analytics    []model.AnalyticsRecord `json:"analytics"`
}

func (e AnalyticsScored) ProjectKey() string { return e.ProjectID }

// TTSCompleted references synthesized voiceover audio by state-store key.
type TTSCompleted struct {
	ProjectID    string                  `json:"projectId" validate:"required"`
	BrandProfile model.BrandProfile      `json:"brandProfile" validate:"required"`
	Scripts      []model.Script          `json:"scripts" validate:"required,min=1,dive"`
	Variants     []model.VariantImages   `json:"variants" validate:"required,min=1"`
	Analytics    []model.AnalyticsRecord `json:"analytics"`
	TTSResults   []model.TTSResult       `json:"ttsResults"`
}

func (e TTSCompleted) ProjectKey() string { return e.ProjectID }

// RenderEnqueued announces one watermarked preview render job.
type RenderEnqueued struct {
	JobID        string              `json:"jobId" validate:"required"`
	ProjectID    string              `json:"projectId" validate:"required"`
	VariantID    string              `json:"variantId" validate:"required"`
	AspectRatio  model.AspectRatio   `json:"aspectRatio" validate:"required"`
	Scenes       []model.Scene       `json:"scenes" validate:"required,min=1,dive"`
	Music        model.Music         `json:"music"`
	Watermark    bool                `json:"watermark"`
	Quality      model.RenderQuality `json:"quality" validate:"required,oneof=preview hd 4k"`
	BrandProfile model.RenderBrand   `json:"brandProfile"`
}

func (e RenderEnqueued) ProjectKey() string { return e.ProjectID }

// GenerationCompleted closes the pipeline for a project.
type GenerationCompleted struct {
	ProjectID    string                  `json:"projectId" validate:"required"`
	BrandProfile model.BrandProfile      `json:"brandProfile" validate:"required"`
	Variants     []model.VariantRef      `json:"variants" validate:"required,min=1"`
	RenderJobs   []model.RenderJobRef    `json:"renderJobs"`
	Analytics    []model.AnalyticsRecord `json:"analytics"`
}

func (e GenerationCompleted) ProjectKey() string { return e.ProjectID }

// CleanupCompleted summarizes one cleanup sweep.
type CleanupCompleted struct {
	CleanedCount int    `json:"cleanedCount"`
	Timestamp    string `json:"timestamp" validate:"required"`
}

func (e CleanupCompleted) ProjectKey() string { return "" }

var payloadTypes = map[Topic]reflect.Type{
	TopicGenerationStarted:   reflect.TypeOf(GenerationStarted{}),
	TopicSiteScraped:         reflect.TypeOf(SiteScraped{}),
	TopicBrandExtracted:      reflect.TypeOf(BrandExtracted{}),
	TopicScriptsGenerated:    reflect.TypeOf(ScriptsGenerated{}),
	TopicModerationPassed:    reflect.TypeOf(ModerationPassed{}),
	TopicModerationFlagged:   reflect.TypeOf(ModerationFlagged{}),
	TopicImagesGenerated:     reflect.TypeOf(ImagesGenerated{}),
	TopicAnalyticsScored:     reflect.TypeOf(AnalyticsScored{}),
	TopicTTSCompleted:        reflect.TypeOf(TTSCompleted{}),
	TopicRenderEnqueued:      reflect.TypeOf(RenderEnqueued{}),
	TopicGenerationCompleted: reflect.TypeOf(GenerationCompleted{}),
	TopicCleanupCompleted:    reflect.TypeOf(CleanupCompleted{}),
}

// PayloadType returns the struct type registered for a topic.
func PayloadType(t Topic) (reflect.Type, bool) {
	rt, ok := payloadTypes[t]
	return rt, ok
}

// Known reports whether the topic is part of the workflow vocabulary.
func Known(t Topic) bool {
	_, ok := payloadTypes[t]
	return ok
}
