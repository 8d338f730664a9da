package model

// GenerateRequest starts the ad-generation pipeline for a website.
// Either URL or GoogleMapsID must be present (checked in the handler since
// the requirement spans two fields).
type GenerateRequest struct {
	URL          string        `json:"url,omitempty" validate:"omitempty,url"`
	GoogleMapsID string        `json:"googleMapsId,omitempty"`
	AspectRatios []AspectRatio `json:"aspectRatios,omitempty" validate:"omitempty,max=3,unique,dive,oneof=16:9 9:16 1:1"`
	BrandHints   *BrandHints   `json:"brandHints,omitempty"`
	Duration     float64       `json:"duration,omitempty" validate:"omitempty,eq=5"`
}

// GenerateResponse acknowledges the request; generation continues
// asynchronously and the caller polls the project endpoint.
type GenerateResponse struct {
	ProjectID     string       `json:"projectId"`
	Status        string       `json:"status"`
	Variants      []VariantRef `json:"variants"`
	EstimatedTime int          `json:"estimatedTime"`
	Message       string       `json:"message"`
}

// ProjectResponse is the project record merged with its analytics.
type ProjectResponse struct {
	Project
	Analytics []AnalyticsRecord `json:"analytics"`
}

// RenderRequest starts a render job for an existing variant.
type RenderRequest struct {
	ProjectID string        `json:"projectId" validate:"required"`
	VariantID string        `json:"variantId" validate:"required"`
	Quality   RenderQuality `json:"quality,omitempty" validate:"omitempty,oneof=preview hd 4k"`
	Watermark *bool         `json:"watermark,omitempty"`
}

// RenderResponse acknowledges a queued render job.
type RenderResponse struct {
	JobID         string    `json:"jobId"`
	Status        JobStatus `json:"status"`
	Message       string    `json:"message"`
	EstimatedTime int       `json:"estimatedTime"`
}

// RenderStatusResponse is the polling-friendly job view.
type RenderStatusResponse struct {
	JobID     string        `json:"jobId"`
	Status    JobStatus     `json:"status"`
	Progress  int           `json:"progress"`
	ProjectID string        `json:"projectId,omitempty"`
	VariantID string        `json:"variantId,omitempty"`
	Quality   RenderQuality `json:"quality,omitempty"`
	OutputURL *string       `json:"outputUrl"`
}

// DownloadResponse resolves a completed job to its variant assets. Video
// compositing happens in the external worker; scene images stand in for the
// encoded file here.
type DownloadResponse struct {
	JobID       string      `json:"jobId"`
	ProjectID   string      `json:"projectId"`
	VariantID   string      `json:"variantId"`
	AspectRatio AspectRatio `json:"aspectRatio"`
	Status      string      `json:"status"`
	Type        string      `json:"type"`
	Images      []string    `json:"images"`
	Scenes      []Scene     `json:"scenes"`
	BrandName   string      `json:"brandName,omitempty"`
}

// StoryboardRequest converts a sketch image into a storyboard.
type StoryboardRequest struct {
	ImageData string           `json:"imageData" validate:"required"`
	ProjectID string           `json:"projectId,omitempty"`
	Hints     *StoryboardHints `json:"hints,omitempty"`
}

// StoryboardHints nudge the storyboard interpretation.
type StoryboardHints struct {
	BrandName string  `json:"brandName,omitempty"`
	Tone      string  `json:"tone,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// StoryboardResponse always carries a usable storyboard; Fallback marks a
// best-effort default when the vision call could not be made.
type StoryboardResponse struct {
	Success    bool       `json:"success"`
	Storyboard Storyboard `json:"storyboard"`
	Fallback   bool       `json:"fallback,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// AnalyticsOverview is the global analytics listing.
type AnalyticsOverview struct {
	Count    int               `json:"count"`
	Projects []AnalyticsReport `json:"projects"`
}
