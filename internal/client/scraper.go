package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/narriq/api/internal/config"
	"github.com/narriq/api/internal/model"
)

// Scraper fetches a landing page and extracts the raw material for brand
// analysis: text content, imagery, colors and fonts.
type Scraper struct {
	httpClient *http.Client
	userAgent  string
}

var (
	hexColorRe = regexp.MustCompile(`#(?:[0-9a-fA-F]{6}|[0-9a-fA-F]{3})\b`)
	fontRe     = regexp.MustCompile(`font-family:\s*([^;}"']+)`)
)

// NewScraper creates a page scraper.
func NewScraper(cfg *config.ScrapeConfig) *Scraper {
	return &Scraper{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		userAgent: cfg.UserAgent,
	}
}

// Scrape fetches the page at rawURL and extracts structured content.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*model.ScrapedData, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	data := &model.ScrapedData{
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		Metadata: extractMetadata(doc, base),
	}

	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		data.Description = strings.TrimSpace(desc)
	}
	if data.Description == "" {
		data.Description = data.Metadata.OGDescription
	}

	doc.Find("h1, h2, h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			data.Headings = append(data.Headings, text)
		}
		return len(data.Headings) < 10
	})

	doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); len(text) > 20 {
			data.Paragraphs = append(data.Paragraphs, text)
		}
		return len(data.Paragraphs) < 10
	})

	doc.Find("img[src]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, _ := sel.Attr("src")
		abs := absoluteURL(base, src)
		if abs == "" {
			return true
		}
		alt, _ := sel.Attr("alt")
		data.Images = append(data.Images, model.ScrapedImage{Src: abs, Alt: alt})
		return len(data.Images) < 20
	})

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if abs := absoluteURL(base, href); abs != "" {
			data.Links = append(data.Links, abs)
		}
		return len(data.Links) < 20
	})

	data.Colors = extractColors(doc)
	data.Fonts = extractFonts(doc)

	return data, nil
}

func extractMetadata(doc *goquery.Document, base *url.URL) model.ScrapedMetadata {
	meta := model.ScrapedMetadata{}
	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		meta.OGTitle = strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		meta.OGDescription = strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		meta.OGImage = strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).First().Attr("href"); ok {
		meta.Favicon = absoluteURL(base, v)
	}
	return meta
}

// extractColors pulls hex colors from inline styles and style blocks,
// deduplicated, capped at 10. The black/white default keeps downstream brand
// extraction deterministic on pages without styling.
func extractColors(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var colors []string

	add := func(text string) {
		for _, m := range hexColorRe.FindAllString(text, -1) {
			c := strings.ToLower(m)
			if !seen[c] && len(colors) < 10 {
				seen[c] = true
				colors = append(colors, c)
			}
		}
	}

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		add(style)
	})
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})

	if len(colors) == 0 {
		colors = []string{"#000000", "#ffffff"}
	}
	return colors
}

func extractFonts(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var fonts []string

	add := func(text string) {
		for _, m := range fontRe.FindAllStringSubmatch(text, -1) {
			family := strings.TrimSpace(strings.Trim(strings.Split(m[1], ",")[0], `"' `))
			if family != "" && !seen[family] && len(fonts) < 5 {
				seen[family] = true
				fonts = append(fonts, family)
			}
		}
	}

	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		add(style)
	})
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		add(sel.Text())
	})

	return fonts
}

func absoluteURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "javascript:") || strings.HasPrefix(ref, "#") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}
