package model

// Aspect ratios supported for ad variants
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

var ValidAspectRatios = []AspectRatio{
	AspectLandscape, AspectPortrait, AspectSquare,
}

// Dimensions returns the render resolution for the ratio.
func (a AspectRatio) Dimensions() (width, height int) {
	switch a {
	case AspectPortrait:
		return 1080, 1920
	case AspectSquare:
		return 1080, 1080
	default:
		return 1920, 1080
	}
}

// Slug returns the filesystem/identifier safe form, e.g. "16x9".
func (a AspectRatio) Slug() string {
	switch a {
	case AspectPortrait:
		return "9x16"
	case AspectSquare:
		return "1x1"
	default:
		return "16x9"
	}
}

// Brand tone
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneCasual       Tone = "casual"
	TonePlayful      Tone = "playful"
	ToneLuxury       Tone = "luxury"
	ToneTechnical    Tone = "technical"
	ToneFriendly     Tone = "friendly"
)

// Font styles
type FontStyle string

const (
	FontModern  FontStyle = "modern"
	FontClassic FontStyle = "classic"
	FontBold    FontStyle = "bold"
	FontElegant FontStyle = "elegant"
	FontMinimal FontStyle = "minimal"
)

// Visual styles
type VisualStyle string

const (
	VisualMinimalist VisualStyle = "minimalist"
	VisualVibrant    VisualStyle = "vibrant"
	VisualCorporate  VisualStyle = "corporate"
	VisualArtistic   VisualStyle = "artistic"
	VisualTech       VisualStyle = "tech"
)

// Scene transitions
type Transition string

const (
	TransitionFade     Transition = "fade"
	TransitionCut      Transition = "cut"
	TransitionDissolve Transition = "dissolve"
)

// Camera motions
type CameraMotion string

const (
	CameraZoomIn   CameraMotion = "zoom-in"
	CameraZoomOut  CameraMotion = "zoom-out"
	CameraPanLeft  CameraMotion = "pan-left"
	CameraPanRight CameraMotion = "pan-right"
	CameraStatic   CameraMotion = "static"
)

// Project status
type ProjectStatus string

const (
	ProjectStatusPending ProjectStatus = "pending"
	ProjectStatusReady   ProjectStatus = "ready"
)

// Variant status
type VariantStatus string

const (
	VariantStatusPending    VariantStatus = "pending"
	VariantStatusGenerating VariantStatus = "generating"
	VariantStatusReady      VariantStatus = "ready"
	VariantStatusFailed     VariantStatus = "failed"
)

// Render job status
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Render quality
type RenderQuality string

const (
	QualityPreview RenderQuality = "preview"
	QualityHD      RenderQuality = "hd"
	Quality4K      RenderQuality = "4k"
)
