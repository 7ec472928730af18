package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-herald/internal/content"
	"github.com/lysyi3m/rss-herald/internal/feed"
	"github.com/lysyi3m/rss-herald/internal/linkstore"
	"github.com/lysyi3m/rss-herald/internal/metrics"
	"github.com/lysyi3m/rss-herald/internal/publisher"
	"github.com/lysyi3m/rss-herald/internal/summarizer"
)

type FeedFetcher interface {
	FetchAll(ctx context.Context, client *http.Client, seen feed.Seen) []feed.Entry
	FetchBaseline(ctx context.Context, client *http.Client) []string
}

type Enricher interface {
	Enrich(ctx context.Context, client *http.Client, entry feed.Entry) content.Enriched
}

type Summarizer interface {
	Summarize(ctx context.Context, title, text, emoji string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, post publisher.Post) error
}

type Config struct {
	PostDelay time.Duration // after a published article
	IdleDelay time.Duration // between cycles
	SkipDelay time.Duration // after a failed summary
}

type Pipeline struct {
	fetcher    FeedFetcher
	enricher   Enricher
	summarizer Summarizer
	publisher  Publisher
	store      linkstore.Store
	config     Config

	seen      *SeenSet
	newClient func() *http.Client
	sleep     summarizer.Sleeper
	now       func() time.Time

	mu     sync.RWMutex
	status Status
	loaded bool
}

func New(fetcher FeedFetcher, enricher Enricher, summ Summarizer, pub Publisher, store linkstore.Store, config Config) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		enricher:   enricher,
		summarizer: summ,
		publisher:  pub,
		store:      store,
		config:     config,
		newClient:  newSession,
		sleep:      summarizer.Sleep,
		now:        time.Now,
		seen:       NewSeenSet(nil),
		status:     Status{State: StateStarting},
	}
}

// WithSleeper replaces the pacing sleep, mainly for tests.
func (p *Pipeline) WithSleeper(sleep summarizer.Sleeper) *Pipeline {
	p.sleep = sleep
	return p
}

// WithClientFactory replaces the per-cycle HTTP session constructor.
func (p *Pipeline) WithClientFactory(newClient func() *http.Client) *Pipeline {
	p.newClient = newClient
	return p
}

// Run loads the published links and polls until ctx is done. Only a failure
// to load the store is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	links, err := p.store.ListAll(ctx)
	if err != nil {
		p.setState(StateStopped)
		return fmt.Errorf("failed to load published links: %w", err)
	}
	p.Load(links)

	slog.Info("Pipeline started", "known_links", len(links), "baseline_pending", len(links) == 0)

	for {
		if err := p.RunCycle(ctx); err != nil {
			slog.Error("Cycle failed", "error", err)
		}
		if ctx.Err() != nil {
			break
		}

		p.setState(StateIdleWait)
		slog.Info("Waiting for next cycle", "delay", p.config.IdleDelay)
		if err := p.sleep(ctx, p.config.IdleDelay); err != nil {
			break
		}
	}

	p.setState(StateStopped)
	slog.Info("Pipeline stopped")
	return nil
}

// Load seeds the seen-set. An empty store leaves the baseline pending.
func (p *Pipeline) Load(links []string) {
	p.seen.Add(links...)
	p.mu.Lock()
	p.loaded = true
	p.status.BaselinePending = len(links) == 0
	p.mu.Unlock()
}

// RunCycle performs one polling cycle: the baseline when it is pending, then
// the chronological publishing queue.
func (p *Pipeline) RunCycle(ctx context.Context) error {
	p.mu.RLock()
	loaded := p.loaded
	p.mu.RUnlock()
	if !loaded {
		p.Load(nil)
	}

	cycleID := uuid.NewString()
	cycleStart := p.now()
	logger := slog.With("cycle", cycleID)

	p.updateStatus(func(s *Status) {
		s.Cycle = cycleID
		s.Cycles++
		s.LastCycleStart = cycleStart
		s.Queued = 0
	})
	defer p.updateStatus(func(s *Status) {
		s.LastCycleEnd = p.now()
	})

	client := p.newClient()
	defer client.CloseIdleConnections()

	if p.Status().BaselinePending {
		done, err := p.baseline(ctx, client, logger)
		if err != nil || !done {
			return err
		}
	}

	p.setState(StatePolling)
	entries := p.fetcher.FetchAll(ctx, client, p.seen)
	if len(entries) == 0 {
		logger.Info("No new articles")
		return nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SortTime(cycleStart).Before(entries[j].SortTime(cycleStart))
	})

	p.setState(StateQueuedPublishing)
	p.updateStatus(func(s *Status) { s.Queued = len(entries) })
	logger.Info("Publishing queue ready", "articles", len(entries))

	for i, entry := range entries {
		delay := p.processEntry(ctx, client, entry, logger)
		p.updateStatus(func(s *Status) { s.Queued = len(entries) - i - 1 })

		if delay > 0 {
			if err := p.sleep(ctx, delay); err != nil {
				logger.Info("Publishing interrupted", "remaining", len(entries)-i-1)
				return nil
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}

	return nil
}

// baseline records every currently offered link without publishing. It
// reports false when nothing was observed, leaving the store cold.
func (p *Pipeline) baseline(ctx context.Context, client *http.Client, logger *slog.Logger) (bool, error) {
	p.setState(StateBaselining)

	links := p.fetcher.FetchBaseline(ctx, client)
	if len(links) == 0 {
		logger.Warn("Baseline found no articles, will retry next cycle")
		return false, nil
	}

	if err := p.store.InsertBulk(ctx, links); err != nil {
		return false, fmt.Errorf("failed to store baseline: %w", err)
	}

	p.seen.Add(links...)
	p.updateStatus(func(s *Status) { s.BaselinePending = false })
	logger.Info("Baseline recorded", "links", len(links))
	return true, nil
}

// processEntry handles one queued article and returns the pause to take
// before the next one.
func (p *Pipeline) processEntry(ctx context.Context, client *http.Client, entry feed.Entry, logger *slog.Logger) (delay time.Duration) {
	link := feed.Normalize(entry.Link)
	logger = logger.With("link", link)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Article processing panicked", "panic", r)
			p.skip("panic")
			delay = 0
		}
	}()

	if p.seen.Contains(link) {
		logger.Debug("Article already published")
		return 0
	}

	logger.Info("Processing article", "title", entry.Title, "source", entry.Category)

	enriched := p.enricher.Enrich(ctx, client, entry)

	summary, err := p.summarizer.Summarize(ctx, entry.Title, enriched.Text, entry.Emoji())
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		logger.Warn("Skipping article without summary", "error", err)
		p.skip("summary")
		return p.config.SkipDelay
	}

	post := publisher.Post{
		Body:     summary,
		Link:     enriched.FinalURL,
		ImageURL: enriched.ImageURL,
	}
	if err := p.publisher.Publish(ctx, post); err != nil {
		logger.Error("Failed to publish article", "error", err)
		p.skip("publish")
		return 0
	}

	if err := p.store.Insert(context.WithoutCancel(ctx), link); err != nil {
		logger.Error("Failed to persist published link", "error", err)
	}
	p.seen.Add(link)

	metrics.ArticlesPublished.Inc()
	p.updateStatus(func(s *Status) { s.Published++ })
	logger.Info("Article published", "image", post.ImageURL != "")

	return p.config.PostDelay
}

func (p *Pipeline) skip(reason string) {
	metrics.ArticlesSkipped.WithLabelValues(reason).Inc()
	p.updateStatus(func(s *Status) { s.Skipped++ })
}

// newSession returns a client with its own connection pool so that every
// cycle starts from fresh connections.
func newSession() *http.Client {
	return &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
}
