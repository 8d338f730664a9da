package model

import "fmt"

// BrandProfile is the inferred brand identity for a project.
type BrandProfile struct {
	BrandName      string      `json:"brandName" validate:"required"`
	Tagline        string      `json:"tagline" validate:"required"`
	Tone           Tone        `json:"tone" validate:"required,oneof=professional casual playful luxury technical friendly"`
	Audience       string      `json:"audience" validate:"required"`
	Industry       string      `json:"industry" validate:"required"`
	KeyMessages    []string    `json:"keyMessages" validate:"required,min=1"`
	PrimaryColor   string      `json:"primaryColor" validate:"required"`
	SecondaryColor string      `json:"secondaryColor" validate:"required"`
	AccentColor    string      `json:"accentColor" validate:"required"`
	FontStyle      FontStyle   `json:"fontStyle" validate:"required,oneof=modern classic bold elegant minimal"`
	VisualStyle    VisualStyle `json:"visualStyle" validate:"required,oneof=minimalist vibrant corporate artistic tech"`
	CallToAction   string      `json:"callToAction" validate:"required"`
}

// BrandHints are optional caller-supplied nudges for brand extraction.
type BrandHints struct {
	Tone     string   `json:"tone,omitempty"`
	Audience string   `json:"audience,omitempty"`
	Colors   []string `json:"colors,omitempty"`
}

// Music describes the soundtrack for a variant.
type Music struct {
	Mood  string `json:"mood"`
	Tempo string `json:"tempo"`
}

// Scene is one timed segment of a variant.
type Scene struct {
	SceneNumber       int          `json:"sceneNumber" validate:"required,min=1"`
	Duration          float64      `json:"duration" validate:"required,gt=0"`
	VisualDescription string       `json:"visualDescription" validate:"required"`
	TextOverlay       string       `json:"textOverlay,omitempty"`
	Voiceover         string       `json:"voiceover"`
	Transition        Transition   `json:"transition" validate:"required,oneof=fade cut dissolve"`
	CameraMotion      CameraMotion `json:"cameraMotion,omitempty"`
	ImageURL          string       `json:"imageUrl,omitempty"`
	ImagePrompt       string       `json:"imagePrompt,omitempty"`
	// Audio is referenced through the state store, never inlined, to keep
	// event payloads small.
	AudioKey string `json:"audioKey,omitempty"`
}

// Script is the drafted ad script for one variant, before images and audio
// are attached.
type Script struct {
	VariantID   string      `json:"variantId" validate:"required"`
	AspectRatio AspectRatio `json:"aspectRatio" validate:"required"`
	Duration    float64     `json:"duration" validate:"required,gt=0"`
	Scenes      []Scene     `json:"scenes" validate:"required,min=1,dive"`
	Music       Music       `json:"music"`
}

// Variant is one aspect-ratio rendition of the ad.
type Variant struct {
	VariantID   string        `json:"variantId"`
	AspectRatio AspectRatio   `json:"aspectRatio"`
	Status      VariantStatus `json:"status"`
	Scenes      []Scene       `json:"scenes,omitempty"`
	Music       Music         `json:"music,omitempty"`
}

// VariantRef is the lightweight form returned by list/summary responses.
type VariantRef struct {
	VariantID   string        `json:"variantId"`
	AspectRatio AspectRatio   `json:"aspectRatio"`
	Status      VariantStatus `json:"status"`
}

// RenderJobRef links a project to one of its enqueued preview renders.
type RenderJobRef struct {
	JobID     string    `json:"jobId"`
	VariantID string    `json:"variantId"`
	Status    JobStatus `json:"status"`
}

// Project is one ad-generation request and its resulting variants.
type Project struct {
	ProjectID    string         `json:"projectId"`
	URL          string         `json:"url,omitempty"`
	BrandProfile *BrandProfile  `json:"brandProfile,omitempty"`
	Variants     []Variant      `json:"variants"`
	RenderJobs   []RenderJobRef `json:"renderJobs,omitempty"`
	Status       ProjectStatus  `json:"status"`
	CreatedAt    int64          `json:"createdAt"` // epoch millis
}

// VariantByID returns the variant with the given id, if present.
func (p *Project) VariantByID(variantID string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].VariantID == variantID {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// VariantIDFor derives the deterministic variant identifier for a project and
// aspect ratio. Collision-free per project since ratios are unique within a
// request.
func VariantIDFor(projectID string, ratio AspectRatio) string {
	return fmt.Sprintf("%s-%s", projectID, ratio.Slug())
}

// ScrapedImage is one image reference found on the scraped page.
type ScrapedImage struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// ScrapedMetadata holds open-graph and favicon data from the page head.
type ScrapedMetadata struct {
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
	Favicon       string `json:"favicon,omitempty"`
}

// ScrapedData is the fixed shape produced by the site scraper.
type ScrapedData struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Headings    []string        `json:"headings"`
	Paragraphs  []string        `json:"paragraphs"`
	Images      []ScrapedImage  `json:"images"`
	Links       []string        `json:"links"`
	Metadata    ScrapedMetadata `json:"metadata"`
	Colors      []string        `json:"colors"`
	Fonts       []string        `json:"fonts"`
}

// SceneImage is a generated (or placeholder) image for one scene.
type SceneImage struct {
	SceneNumber int    `json:"sceneNumber"`
	ImageURL    string `json:"imageUrl"`
	ImagePrompt string `json:"imagePrompt"`
}

// VariantImages groups generated scene images per variant.
type VariantImages struct {
	VariantID   string       `json:"variantId"`
	AspectRatio AspectRatio  `json:"aspectRatio"`
	Scenes      []SceneImage `json:"scenes"`
}

// ModerationResult is the brand-safety verdict for one variant script.
type ModerationResult struct {
	VariantID  string             `json:"variantId"`
	Flagged    bool               `json:"flagged"`
	Categories map[string]bool    `json:"categories,omitempty"`
	Scores     map[string]float64 `json:"scores,omitempty"`
	Note       string             `json:"note,omitempty"`
}

// TTSResult references synthesized voiceover audio for one variant.
type TTSResult struct {
	VariantID string  `json:"variantId"`
	AudioKey  string  `json:"audioKey,omitempty"`
	Duration  float64 `json:"duration"`
	Provider  string  `json:"provider"`
	Error     string  `json:"error,omitempty"`
}

// AudioBlob is the stored voiceover payload, keyed by audioKey in the audio
// namespace.
type AudioBlob struct {
	Data        string `json:"data"` // base64 mp3
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"` // set when uploaded to object storage
	CreatedAt   int64  `json:"createdAt"`
}

// AnalyticsRecord is the predicted-performance score for one variant. Written
// once, never mutated.
type AnalyticsRecord struct {
	VariantID             string      `json:"variantId"`
	AspectRatio           AspectRatio `json:"aspectRatio"`
	EngagementScore       int         `json:"engagementScore"`
	ClarityScore          int         `json:"clarityScore"`
	BrandAlignmentScore   int         `json:"brandAlignmentScore"`
	CTAEffectivenessScore int         `json:"ctaEffectivenessScore"`
	OverallScore          int         `json:"overallScore"`
	PredictedCTR          string      `json:"predictedCTR"`
	Suggestions           []string    `json:"suggestions"`
}

// AnalyticsReport is the per-project analytics document stored in the
// analytics namespace.
type AnalyticsReport struct {
	ProjectID  string            `json:"projectId"`
	Results    []AnalyticsRecord `json:"results"`
	AnalyzedAt string            `json:"analyzedAt"`
}

// Storyboard is the sketch-to-storyboard result.
type Storyboard struct {
	Scenes         []Scene `json:"scenes"`
	TotalDuration  float64 `json:"totalDuration"`
	Mood           string  `json:"mood"`
	SuggestedMusic string  `json:"suggestedMusic"`
}
