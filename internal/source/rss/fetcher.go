// Package rss fetches remote RSS/Atom documents and projects them into the
// fixed Notifier shape.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"feed_notifier/internal/domain"
)

// Config holds fetcher configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves and parses one feed per call. It keeps no state and
// performs no retries; retry policy lives in the scheduler.
type Fetcher struct {
	httpClient *http.Client
	parser     *gofeed.Parser
	userAgent  string
	logger     *slog.Logger
}

// NewFetcher creates an RSS/Atom fetcher.
func NewFetcher(cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		parser:    gofeed.NewParser(),
		userAgent: cfg.UserAgent,
		logger:    logger.With("component", "fetcher"),
	}
}

// Fetch downloads and parses the feed at url. Network, HTTP status, parse
// and projection failures are all returned as errors; persisted state is
// never touched here.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	doc, err := f.project(parsed)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched feed",
		"url", url,
		"title", doc.Title,
		"items", len(doc.Items),
	)

	return doc, nil
}

// project maps the parsed document onto the fixed Notifier fields. Items
// must carry a guid or a link; duplicates of an identity within one
// snapshot keep only their first occurrence.
func (f *Fetcher) project(parsed *gofeed.Feed) (*domain.Feed, error) {
	doc := &domain.Feed{
		Title:       parsed.Title,
		Description: parsed.Description,
		Link:        parsed.Link,
		Language:    parsed.Language,
		Copyright:   parsed.Copyright,
		Generator:   parsed.Generator,
		PubDate:     parsed.Published,
	}

	if parsed.Image != nil {
		doc.Image = domain.Image{
			URL:   parsed.Image.URL,
			Title: parsed.Image.Title,
			Link:  parsed.Link,
		}
	}

	if len(parsed.Authors) > 0 {
		author := parsed.Authors[0]
		doc.ManagingEditor = author.Email
		if doc.ManagingEditor == "" {
			doc.ManagingEditor = author.Name
		}
	}

	seen := make(map[string]struct{}, len(parsed.Items))
	doc.Items = make([]domain.Item, 0, len(parsed.Items))

	for _, entry := range parsed.Items {
		identity := entry.GUID
		if identity == "" {
			identity = entry.Link
		}
		if identity == "" {
			return nil, fmt.Errorf("%w: item %q has neither guid nor link", domain.ErrMalformedFeed, entry.Title)
		}
		if _, dup := seen[identity]; dup {
			f.logger.Debug("dropping duplicate item", "identity", identity)
			continue
		}
		seen[identity] = struct{}{}

		item := domain.Item{
			GUID:                  entry.GUID,
			Title:                 entry.Title,
			Link:                  entry.Link,
			PubDate:               entry.Published,
			Content:               entry.Description,
			ContentSnippet:        Snippet(entry.Description),
			ContentEncoded:        entry.Content,
			ContentEncodedSnippet: Snippet(entry.Content),
		}
		if entry.PublishedParsed != nil {
			item.ISODate = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			item.ISODate = entry.UpdatedParsed.UTC()
		}

		doc.Items = append(doc.Items, item)
	}

	return doc, nil
}
