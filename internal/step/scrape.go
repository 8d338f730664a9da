package step

import (
	"context"
	"log"
	"net/url"

	"github.com/narriq/api/internal/bus"
	"github.com/narriq/api/internal/event"
	"github.com/narriq/api/internal/model"
)

func registerScrape(e *bus.Engine, deps Deps) error {
	return e.RegisterStep("scrape-site",
		[]event.Topic{event.TopicGenerationStarted},
		[]event.Topic{event.TopicSiteScraped},
		func(ctx context.Context, payload any) error {
			in := payload.(event.GenerationStarted)
			log.Printf("[scrape-site] starting scrape projectId=%s url=%s", in.ProjectID, in.URL)

			var data *model.ScrapedData
			if deps.Scraper != nil {
				scraped, err := deps.Scraper.Scrape(ctx, in.URL)
				if err != nil {
					log.Printf("[scrape-site] scrape failed, using fallback projectId=%s: %v", in.ProjectID, err)
					e.RecordFallback(in.ProjectID, "scrape-site", "scrape failed: "+err.Error())
				} else {
					data = scraped
				}
			}
			if data == nil {
				data = fallbackScrapedData(in.URL)
			}

			log.Printf("[scrape-site] scrape completed projectId=%s images=%d paragraphs=%d",
				in.ProjectID, len(data.Images), len(data.Paragraphs))

			return e.Emit(ctx, event.TopicSiteScraped, event.SiteScraped{
				ProjectID:    in.ProjectID,
				URL:          in.URL,
				ScrapedData:  *data,
				BrandHints:   in.BrandHints,
				AspectRatios: in.AspectRatios,
				Duration:     in.Duration,
			})
		})
}

// fallbackScrapedData keeps the pipeline moving on unreachable or unparsable
// sites: the brand extractor works from the hostname and constant defaults.
func fallbackScrapedData(rawURL string) *model.ScrapedData {
	title := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		title = u.Hostname()
	}
	return &model.ScrapedData{
		Title:  title,
		Colors: []string{"#000000", "#ffffff"},
	}
}
