package model

// RenderJob tracks one request to composite a variant's scenes into a video.
//
// Invariants enforced by the render service: progress is monotonically
// non-decreasing while the job is live, completed implies progress=100, and
// terminal states never revert.
type RenderJob struct {
	JobID     string        `json:"jobId"`
	ProjectID string        `json:"projectId"`
	VariantID string        `json:"variantId"`
	Quality   RenderQuality `json:"quality"`
	Watermark bool          `json:"watermark"`
	Status    JobStatus     `json:"status"`
	Progress  int           `json:"progress"`
	Message   string        `json:"message,omitempty"`
	OutputURL string        `json:"outputUrl,omitempty"`
	Error     string        `json:"error,omitempty"`
	// WorkerDriven is set once a render worker reports in; from then on the
	// time-simulated poll recomputation leaves the record alone and worker
	// callbacks are the single authoritative writer.
	WorkerDriven bool   `json:"workerDriven,omitempty"`
	CreatedAt    int64  `json:"createdAt"` // epoch millis
	UpdatedAt    int64  `json:"updatedAt,omitempty"`
	StartedAt    *int64 `json:"startedAt,omitempty"`
	CompletedAt  *int64 `json:"completedAt,omitempty"`
}

// RenderDispatchPayload is what the external FFmpeg worker receives for a job.
type RenderDispatchPayload struct {
	JobID        string        `json:"jobId"`
	ProjectID    string        `json:"projectId"`
	VariantID    string        `json:"variantId"`
	AspectRatio  AspectRatio   `json:"aspectRatio"`
	Scenes       []Scene       `json:"scenes"`
	Music        Music         `json:"music"`
	Watermark    bool          `json:"watermark"`
	Quality      RenderQuality `json:"quality"`
	BrandProfile RenderBrand   `json:"brandProfile"`
}

// RenderBrand is the trimmed brand subset the compositor needs for the
// watermark and color grading.
type RenderBrand struct {
	BrandName      string `json:"brandName"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
}

// WorkerProgressReport is posted by the render worker while encoding.
type WorkerProgressReport struct {
	Progress int    `json:"progress" validate:"min=0,max=100"`
	Message  string `json:"message,omitempty"`
}

// WorkerCompleteReport is posted by the render worker on success.
type WorkerCompleteReport struct {
	OutputURL string  `json:"outputUrl" validate:"required"`
	Duration  float64 `json:"duration,omitempty"`
	FileSize  int64   `json:"fileSize,omitempty"`
}

// WorkerFailedReport is posted by the render worker on failure.
type WorkerFailedReport struct {
	Error string `json:"error" validate:"required"`
}
