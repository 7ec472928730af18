package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/rss-herald/internal/metrics"
)

const maxFeedSize = 10 << 20

type Fetcher struct {
	sources   []Source
	filterer  *Filterer
	userAgent string
	timeout   time.Duration
}

func NewFetcher(sources []Source, filterer *Filterer, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		sources:   sources,
		filterer:  filterer,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// FetchAll polls every source concurrently and returns the entries whose
// normalized link is not in seen and that pass the source filters. A failing
// source contributes nothing and never affects the others.
func (f *Fetcher) FetchAll(ctx context.Context, client *http.Client, seen Seen) []Entry {
	perSource := f.fetchSources(ctx, client)

	var fresh []Entry
	for i, entries := range perSource {
		source := f.sources[i]

		unseen := make([]Entry, 0, len(entries))
		for _, entry := range entries {
			if seen.Contains(Normalize(entry.Link)) {
				continue
			}
			unseen = append(unseen, entry)
		}

		kept, reasons := f.filterer.Run(unseen, source.Filters)
		for _, reason := range reasons {
			slog.Debug("Entry filtered", "source", source.Category, "reason", reason)
		}

		metrics.EntriesDiscovered.WithLabelValues(source.Category).Add(float64(len(kept)))
		slog.Info("Feed checked", "source", source.Category, "total", len(entries), "new", len(kept), "filtered", len(unseen)-len(kept))

		fresh = append(fresh, kept...)
	}

	return fresh
}

// FetchBaseline returns the normalized link of every entry currently offered
// by the sources, without seen or keyword filtering.
func (f *Fetcher) FetchBaseline(ctx context.Context, client *http.Client) []string {
	perSource := f.fetchSources(ctx, client)

	var links []string
	for _, entries := range perSource {
		for _, entry := range entries {
			links = append(links, Normalize(entry.Link))
		}
	}

	return links
}

func (f *Fetcher) fetchSources(ctx context.Context, client *http.Client) [][]Entry {
	results := make([][]Entry, len(f.sources))

	var g errgroup.Group
	for i, source := range f.sources {
		g.Go(func() error {
			results[i] = f.fetchSource(ctx, client, source)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *Fetcher) fetchSource(ctx context.Context, client *http.Client, source Source) []Entry {
	slog.Debug("Fetching feed", "source", source.Category, "url", source.URL)

	data, err := f.fetchFeed(ctx, client, source.URL)
	if err != nil {
		metrics.FeedFetches.WithLabelValues(source.Category, "fetch_error").Inc()
		slog.Warn("Failed to fetch feed", "source", source.Category, "url", source.URL, "error", err)
		return nil
	}

	entries, err := NewParser().Run(data, source.Category)
	if err != nil {
		if len(entries) == 0 {
			metrics.FeedFetches.WithLabelValues(source.Category, "parse_error").Inc()
			slog.Warn("Failed to parse feed", "source", source.Category, "url", source.URL, "error", err)
			return nil
		}
		slog.Warn("Feed may be malformed, using recovered entries", "source", source.Category, "recovered", len(entries), "error", err)
	}

	metrics.FeedFetches.WithLabelValues(source.Category, "ok").Inc()
	return entries
}

func (f *Fetcher) fetchFeed(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
