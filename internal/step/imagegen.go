package step

import (
	"context"
	"fmt"
	"log"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
)

var visualStyleGuide = map[model.VisualStyle]string{
	model.VisualMinimalist: "clean, simple, lots of white space, modern",
	model.VisualVibrant:    "colorful, energetic, bold colors, dynamic",
	model.VisualCorporate:  "professional, polished, business-like, trustworthy",
	model.VisualArtistic:   "creative, unique, artistic, expressive",
	model.VisualTech:       "futuristic, sleek, digital, innovative",
}

var placeholderDims = map[model.AspectRatio]string{
	model.AspectLandscape: "1920x1080",
	model.AspectPortrait:  "1080x1920",
	model.AspectSquare:    "1080x1080",
}

func registerImageGen(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("image-gen",
		[]event.Topic{event.TopicModerationPassed},
		[]event.Topic{event.TopicImagesGenerated},
		func(ctx context.Context, payload any) error {
			in := payload.(event.ModerationPassed)
			log.Printf("[image-gen] starting image generation projectId=%s variants=%d", in.ProjectID, len(in.Scripts))

			provider := pickImageModel(deps)
			variants := make([]model.VariantImages, 0, len(in.Scripts))
			total := 0

			for _, script := range in.Scripts {
				images := make([]model.SceneImage, 0, len(script.Scenes))
				for _, scene := range script.Scenes {
					prompt := imagePrompt(scene.VisualDescription, &in.BrandProfile, script.AspectRatio)
					url, usedFallback := generateSceneImage(ctx, provider, prompt, script.AspectRatio)
					if usedFallback {
						e.RecordFallback(in.ProjectID, "image-gen",
							fmt.Sprintf("placeholder image for variant %s scene %d", script.VariantID, scene.SceneNumber))
					}
					images = append(images, model.SceneImage{
						SceneNumber: scene.SceneNumber,
						ImageURL:    url,
						ImagePrompt: prompt,
					})
					total++
				}
				variants = append(variants, model.VariantImages{
					VariantID:   script.VariantID,
					AspectRatio: script.AspectRatio,
					Scenes:      images,
				})
			}

			log.Printf("[image-gen] all images generated projectId=%s total=%d", in.ProjectID, total)

			return e.Emit(ctx, event.TopicImagesGenerated, event.ImagesGenerated{
				ProjectID:    in.ProjectID,
				URL:          in.URL,
				BrandProfile: in.BrandProfile,
				Scripts:      in.Scripts,
				Variants:     variants,
			})
		})
}

func generateSceneImage(ctx context.Context, provider ImageModel, prompt string, ratio model.AspectRatio) (string, bool) {
	if provider == nil {
		return placeholderImage(ratio), true
	}
	url, err := provider.GenerateImage(ctx, prompt, ratio)
	if err != nil || url == "" {
		log.Printf("[image-gen] image generation failed, using placeholder: %v", err)
		return placeholderImage(ratio), true
	}
	return url, false
}

func imagePrompt(visualDescription string, brand *model.BrandProfile, ratio model.AspectRatio) string {
	style, ok := visualStyleGuide[brand.VisualStyle]
	if !ok {
		style = "professional"
	}
	return fmt.Sprintf("%s. Style: %s. Brand colors: %s, %s. High quality, %s aspect ratio, suitable for video ad, no text overlays.",
		visualDescription, style, brand.PrimaryColor, brand.SecondaryColor, ratio)
}

func placeholderImage(ratio model.AspectRatio) string {
	dims, ok := placeholderDims[ratio]
	if !ok {
		dims = "1920x1080"
	}
	return fmt.Sprintf("https://placehold.co/%s/2563eb/ffffff?text=Scene+Preview", dims)
}
