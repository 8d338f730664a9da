package step

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narriq/api/internal/model"
)

type stubChat struct {
	configured bool
	content    string
	err        error
	lastSystem string
	lastUser   string
}

func (c *stubChat) ChatCompletionJSON(ctx context.Context, system, user string, temperature float64) (string, error) {
	c.lastSystem = system
	c.lastUser = user
	return c.content, c.err
}

func (c *stubChat) IsConfigured() bool { return c.configured }

func TestFallbackBrandProfile_EmptyScrape(t *testing.T) {
	profile := fallbackBrandProfile(&model.ScrapedData{})

	assert.Equal(t, "Brand", profile.BrandName)
	assert.Equal(t, "Your trusted partner", profile.Tagline)
	assert.Equal(t, model.ToneProfessional, profile.Tone)
	assert.Equal(t, "General consumers", profile.Audience)
	assert.Equal(t, "Business", profile.Industry)
	assert.Equal(t, []string{"Quality products and services"}, profile.KeyMessages)
	assert.Equal(t, "#2563eb", profile.PrimaryColor)
	assert.Equal(t, "#1e40af", profile.SecondaryColor)
	assert.Equal(t, "#f59e0b", profile.AccentColor)
	assert.Equal(t, model.FontModern, profile.FontStyle)
	assert.Equal(t, model.VisualMinimalist, profile.VisualStyle)
	assert.Equal(t, "Learn More", profile.CallToAction)
}

func TestFallbackBrandProfile_UsesScrapedContent(t *testing.T) {
	long := "An unreasonably long marketing description that should get truncated for the tagline field"
	profile := fallbackBrandProfile(&model.ScrapedData{
		Title:       "Acme Corp",
		Description: long,
		Headings:    []string{"Rockets delivered fast", "About us"},
		Colors:      []string{"#111111", "#222222", "#333333", "#444444"},
	})

	assert.Equal(t, "Acme Corp", profile.BrandName)
	assert.Equal(t, long[:50], profile.Tagline)
	assert.Equal(t, []string{"Rockets delivered fast"}, profile.KeyMessages)
	assert.Equal(t, "#111111", profile.PrimaryColor)
	assert.Equal(t, "#222222", profile.SecondaryColor)
	assert.Equal(t, "#333333", profile.AccentColor)
}

func TestFallbackBrandProfile_TruncatesTaglineOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ü", 60)
	profile := fallbackBrandProfile(&model.ScrapedData{
		Title:       "Müller GmbH",
		Description: long,
	})

	assert.Equal(t, strings.Repeat("ü", 50), profile.Tagline)
	assert.True(t, utf8.ValidString(profile.Tagline))
}

func TestExtractBrand_UnconfiguredModelUsesFallback(t *testing.T) {
	profile, usedFallback := extractBrand(context.Background(), &stubChat{configured: false},
		"https://example.com", &model.ScrapedData{Title: "Acme"}, nil)

	assert.True(t, usedFallback)
	assert.Equal(t, "Acme", profile.BrandName)
}

func TestExtractBrand_ModelErrorUsesFallback(t *testing.T) {
	profile, usedFallback := extractBrand(context.Background(),
		&stubChat{configured: true, err: errors.New("timeout")},
		"https://example.com", &model.ScrapedData{}, nil)

	assert.True(t, usedFallback)
	assert.Equal(t, "Brand", profile.BrandName)
}

func TestExtractBrand_BackfillsPartialModelOutput(t *testing.T) {
	chat := &stubChat{
		configured: true,
		content:    `{"brandName":"Acme","tone":"shouty","primaryColor":"#ff0000"}`,
	}
	profile, usedFallback := extractBrand(context.Background(), chat,
		"https://example.com", &model.ScrapedData{}, nil)

	assert.False(t, usedFallback)
	assert.Equal(t, "Acme", profile.BrandName)
	assert.Equal(t, "#ff0000", profile.PrimaryColor)
	// Invalid enum values and empty fields fall back to the derived defaults.
	assert.Equal(t, model.ToneProfessional, profile.Tone)
	assert.Equal(t, "Your trusted partner", profile.Tagline)
	assert.Equal(t, model.FontModern, profile.FontStyle)
	assert.Equal(t, model.VisualMinimalist, profile.VisualStyle)
	assert.NotEmpty(t, profile.KeyMessages)
}

func TestBrandContext_IncludesHints(t *testing.T) {
	ctx := brandContext("https://example.com", &model.ScrapedData{
		Title:      "Acme",
		Paragraphs: []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"},
	}, &model.BrandHints{Tone: "playful", Audience: "gamers", Colors: []string{"#00ff00"}})

	assert.Contains(t, ctx, "preferred tone: playful")
	assert.Contains(t, ctx, "target audience: gamers")
	assert.Contains(t, ctx, "#00ff00")
	assert.Contains(t, ctx, "p5")
	// Only the first five paragraphs feed the prompt.
	assert.NotContains(t, ctx, "p6")
}

func TestExtractBrand_ValidModelOutput(t *testing.T) {
	chat := &stubChat{
		configured: true,
		content: `{"brandName":"Nimbus","tagline":"Weather, solved","tone":"technical","audience":"Developers",
			"industry":"SaaS","keyMessages":["Accurate forecasts"],"primaryColor":"#0ea5e9","secondaryColor":"#0369a1",
			"accentColor":"#fbbf24","fontStyle":"minimal","visualStyle":"tech","callToAction":"Start free"}`,
	}
	profile, usedFallback := extractBrand(context.Background(), chat,
		"https://nimbus.example", &model.ScrapedData{}, nil)

	require.False(t, usedFallback)
	assert.Equal(t, "Nimbus", profile.BrandName)
	assert.Equal(t, model.ToneTechnical, profile.Tone)
	assert.Equal(t, model.VisualTech, profile.VisualStyle)
	assert.Equal(t, "Start free", profile.CallToAction)
}
