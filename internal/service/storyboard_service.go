package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/narriq/api/internal/model"
)

const storyboardSystem = `You are a storyboard analyst. Analyze the sketch/drawing and convert it into a video ad storyboard. Return JSON:
{
  "scenes": [
    {
      "sceneNumber": 1,
      "duration": 2.5,
      "visualDescription": "Description of what to show",
      "textOverlay": "Text to display",
      "cameraMotion": "zoom-in|zoom-out|pan-left|pan-right|static",
      "transition": "fade|cut|dissolve"
    }
  ],
  "totalDuration": 5,
  "mood": "upbeat|calm|energetic|professional",
  "suggestedMusic": "description of music style"
}
Create 2 scenes for a 5-second ad based on the sketch elements.`

// VisionModel analyzes an image alongside a text instruction.
type VisionModel interface {
	ChatCompletionVision(ctx context.Context, system, text, imageURL string) (string, error)
	IsConfigured() bool
}

// StoryboardService converts sketch images into storyboards. It never fails
// outward: any vision problem yields the deterministic fallback storyboard.
type StoryboardService struct {
	vision VisionModel
}

func NewStoryboardService(vision VisionModel) *StoryboardService {
	return &StoryboardService{vision: vision}
}

func (s *StoryboardService) FromSketch(ctx context.Context, req *model.StoryboardRequest) *model.StoryboardResponse {
	if len(req.ImageData) < 100 {
		log.Printf("[storyboard] no usable image data, returning fallback")
		return &model.StoryboardResponse{
			Success:    true,
			Storyboard: fallbackStoryboard(req.Hints),
			Fallback:   true,
			Message:    "No sketch detected, using default storyboard",
		}
	}

	if s.vision == nil || !s.vision.IsConfigured() {
		return &model.StoryboardResponse{
			Success:    true,
			Storyboard: fallbackStoryboard(req.Hints),
			Fallback:   true,
		}
	}

	imageURL := req.ImageData
	if !strings.HasPrefix(imageURL, "data:") {
		imageURL = "data:image/png;base64," + imageURL
	}

	var instruction strings.Builder
	instruction.WriteString("Analyze this sketch and create a 5-second video ad storyboard.")
	if req.Hints != nil {
		if req.Hints.BrandName != "" {
			fmt.Fprintf(&instruction, " Brand: %s.", req.Hints.BrandName)
		}
		if req.Hints.Tone != "" {
			fmt.Fprintf(&instruction, " Tone: %s.", req.Hints.Tone)
		}
	}

	content, err := s.vision.ChatCompletionVision(ctx, storyboardSystem, instruction.String(), imageURL)
	if err != nil {
		log.Printf("[storyboard] vision call failed: %v", err)
		return &model.StoryboardResponse{
			Success:    true,
			Storyboard: fallbackStoryboard(req.Hints),
			Fallback:   true,
		}
	}

	var storyboard model.Storyboard
	if err := json.Unmarshal([]byte(content), &storyboard); err != nil || len(storyboard.Scenes) == 0 {
		log.Printf("[storyboard] unusable vision output")
		return &model.StoryboardResponse{
			Success:    true,
			Storyboard: fallbackStoryboard(req.Hints),
			Fallback:   true,
		}
	}

	log.Printf("[storyboard] storyboard generated scenes=%d duration=%.1f", len(storyboard.Scenes), storyboard.TotalDuration)
	return &model.StoryboardResponse{
		Success:    true,
		Storyboard: storyboard,
	}
}

func fallbackStoryboard(hints *model.StoryboardHints) model.Storyboard {
	brandOverlay := "Your Brand"
	if hints != nil && hints.BrandName != "" {
		brandOverlay = hints.BrandName
	}
	return model.Storyboard{
		Scenes: []model.Scene{
			{
				SceneNumber:       1,
				Duration:          2.5,
				VisualDescription: "Opening scene with brand introduction",
				TextOverlay:       brandOverlay,
				CameraMotion:      model.CameraZoomIn,
				Transition:        model.TransitionFade,
			},
			{
				SceneNumber:       2,
				Duration:          2.5,
				VisualDescription: "Call to action with engaging visuals",
				TextOverlay:       "Learn More",
				CameraMotion:      model.CameraStatic,
				Transition:        model.TransitionFade,
			},
		},
		TotalDuration:  5,
		Mood:           "professional",
		SuggestedMusic: "Upbeat corporate background music",
	}
}
