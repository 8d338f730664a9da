package step

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
)

const brandExtractSystem = `You are a brand analyst expert. Analyze the provided website content and extract a comprehensive brand profile. Return your analysis as a JSON object with the following structure:
{
  "brandName": "string - the brand/company name",
  "tagline": "string - a catchy tagline for the brand",
  "tone": "professional|casual|playful|luxury|technical|friendly",
  "audience": "string - target audience description",
  "industry": "string - industry/sector",
  "keyMessages": ["array of 3-5 key marketing messages"],
  "primaryColor": "hex color code",
  "secondaryColor": "hex color code",
  "accentColor": "hex color code",
  "fontStyle": "modern|classic|bold|elegant|minimal",
  "visualStyle": "minimalist|vibrant|corporate|artistic|tech",
  "callToAction": "string - suggested CTA text"
}

Use the detected colors from the website when possible. Be creative but stay true to the brand's apparent identity.`

func registerBrandExtract(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("brand-extract",
		[]event.Topic{event.TopicSiteScraped},
		[]event.Topic{event.TopicBrandExtracted},
		func(ctx context.Context, payload any) error {
			in := payload.(event.SiteScraped)
			log.Printf("[brand-extract] starting brand extraction projectId=%s", in.ProjectID)

			profile, usedFallback := extractBrand(ctx, deps.Chat, in.URL, &in.ScrapedData, in.BrandHints)
			if usedFallback {
				e.RecordFallback(in.ProjectID, "brand-extract", "brand model unavailable, derived profile from scrape")
			}

			log.Printf("[brand-extract] brand extraction completed projectId=%s brand=%s tone=%s",
				in.ProjectID, profile.BrandName, profile.Tone)

			return e.Emit(ctx, event.TopicBrandExtracted, event.BrandExtracted{
				ProjectID:    in.ProjectID,
				URL:          in.URL,
				ScrapedData:  in.ScrapedData,
				BrandProfile: profile,
				AspectRatios: in.AspectRatios,
				Duration:     in.Duration,
			})
		})
}

func extractBrand(ctx context.Context, chat ChatModel, url string, scraped *model.ScrapedData, hints *model.BrandHints) (model.BrandProfile, bool) {
	fallback := fallbackBrandProfile(scraped)

	if chat == nil || !chat.IsConfigured() {
		return fallback, true
	}

	content, err := chat.ChatCompletionJSON(ctx, brandExtractSystem, brandContext(url, scraped, hints), 0.7)
	if err != nil {
		log.Printf("[brand-extract] model call failed: %v", err)
		return fallback, true
	}

	var profile model.BrandProfile
	if err := json.Unmarshal([]byte(content), &profile); err != nil {
		log.Printf("[brand-extract] unparsable model output: %v", err)
		return fallback, true
	}

	// Every downstream step assumes a fully populated profile; backfill any
	// field the model left empty from the scrape-derived defaults.
	fillBrandDefaults(&profile, &fallback)
	return profile, false
}

func brandContext(url string, scraped *model.ScrapedData, hints *model.BrandHints) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Website: %s\n", url)
	fmt.Fprintf(&b, "Title: %s\n", scraped.Title)
	fmt.Fprintf(&b, "Description: %s\n", scraped.Description)
	fmt.Fprintf(&b, "\nHeadings:\n%s\n", strings.Join(scraped.Headings, "\n"))

	excerpts := scraped.Paragraphs
	if len(excerpts) > 5 {
		excerpts = excerpts[:5]
	}
	fmt.Fprintf(&b, "\nContent excerpts:\n%s\n", strings.Join(excerpts, "\n\n"))
	fmt.Fprintf(&b, "\nDetected colors: %s\n", strings.Join(scraped.Colors, ", "))
	fmt.Fprintf(&b, "Detected fonts: %s\n", strings.Join(scraped.Fonts, ", "))

	if hints != nil {
		if hints.Tone != "" {
			fmt.Fprintf(&b, "\nCaller hint - preferred tone: %s\n", hints.Tone)
		}
		if hints.Audience != "" {
			fmt.Fprintf(&b, "Caller hint - target audience: %s\n", hints.Audience)
		}
		if len(hints.Colors) > 0 {
			fmt.Fprintf(&b, "Caller hint - brand colors: %s\n", strings.Join(hints.Colors, ", "))
		}
	}
	return strings.TrimSpace(b.String())
}

func fallbackBrandProfile(scraped *model.ScrapedData) model.BrandProfile {
	profile := model.BrandProfile{
		BrandName:      "Brand",
		Tagline:        "Your trusted partner",
		Tone:           model.ToneProfessional,
		Audience:       "General consumers",
		Industry:       "Business",
		KeyMessages:    []string{"Quality products and services"},
		PrimaryColor:   "#2563eb",
		SecondaryColor: "#1e40af",
		AccentColor:    "#f59e0b",
		FontStyle:      model.FontModern,
		VisualStyle:    model.VisualMinimalist,
		CallToAction:   "Learn More",
	}
	if scraped.Title != "" {
		profile.BrandName = scraped.Title
	}
	if scraped.Description != "" {
		// Truncate on a rune boundary; scraped descriptions are not ASCII-only.
		tagline := []rune(scraped.Description)
		if len(tagline) > 50 {
			tagline = tagline[:50]
		}
		profile.Tagline = string(tagline)
	}
	if len(scraped.Headings) > 0 {
		profile.KeyMessages = []string{scraped.Headings[0]}
	}
	if len(scraped.Colors) > 0 {
		profile.PrimaryColor = scraped.Colors[0]
	}
	if len(scraped.Colors) > 1 {
		profile.SecondaryColor = scraped.Colors[1]
	}
	if len(scraped.Colors) > 2 {
		profile.AccentColor = scraped.Colors[2]
	}
	return profile
}

func fillBrandDefaults(p, fallback *model.BrandProfile) {
	if p.BrandName == "" {
		p.BrandName = fallback.BrandName
	}
	if p.Tagline == "" {
		p.Tagline = fallback.Tagline
	}
	if !validTone(p.Tone) {
		p.Tone = fallback.Tone
	}
	if p.Audience == "" {
		p.Audience = fallback.Audience
	}
	if p.Industry == "" {
		p.Industry = fallback.Industry
	}
	if len(p.KeyMessages) == 0 {
		p.KeyMessages = fallback.KeyMessages
	}
	if p.PrimaryColor == "" {
		p.PrimaryColor = fallback.PrimaryColor
	}
	if p.SecondaryColor == "" {
		p.SecondaryColor = fallback.SecondaryColor
	}
	if p.AccentColor == "" {
		p.AccentColor = fallback.AccentColor
	}
	if !validFontStyle(p.FontStyle) {
		p.FontStyle = fallback.FontStyle
	}
	if !validVisualStyle(p.VisualStyle) {
		p.VisualStyle = fallback.VisualStyle
	}
	if p.CallToAction == "" {
		p.CallToAction = fallback.CallToAction
	}
}

func validTone(t model.Tone) bool {
	switch t {
	case model.ToneProfessional, model.ToneCasual, model.TonePlayful,
		model.ToneLuxury, model.ToneTechnical, model.ToneFriendly:
		return true
	}
	return false
}

func validFontStyle(f model.FontStyle) bool {
	switch f {
	case model.FontModern, model.FontClassic, model.FontBold,
		model.FontElegant, model.FontMinimal:
		return true
	}
	return false
}

func validVisualStyle(v model.VisualStyle) bool {
	switch v {
	case model.VisualMinimalist, model.VisualVibrant, model.VisualCorporate,
		model.VisualArtistic, model.VisualTech:
		return true
	}
	return false
}
