package content

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/unicode/norm"

	"github.com/lysyi3m/rss-herald/internal/feed"
	"github.com/lysyi3m/rss-herald/internal/metrics"
)

const maxPageSize = 5 << 20

type Enriched struct {
	Text     string
	ImageURL string // empty when no candidate passed validation
	FinalURL string // post-redirect URL shown to readers
}

type Enricher struct {
	extractor     Extractor
	prober        *ImageProber
	policy        *bluemonday.Policy
	userAgent     string
	timeout       time.Duration
	maxTextLength int
}

func NewEnricher(extractor Extractor, prober *ImageProber, userAgent string, timeout time.Duration, maxTextLength int) *Enricher {
	return &Enricher{
		extractor:     extractor,
		prober:        prober,
		policy:        bluemonday.StrictPolicy(),
		userAgent:     userAgent,
		timeout:       timeout,
		maxTextLength: maxTextLength,
	}
}

// Enrich fetches the article page and derives its text and lead image. It
// never fails: an unreachable page degrades to the feed summary and no image.
func (e *Enricher) Enrich(ctx context.Context, client *http.Client, entry feed.Entry) Enriched {
	page, err := e.fetchPage(ctx, client, entry.Link)
	if err != nil {
		slog.Warn("Failed to fetch article page", "url", entry.Link, "error", err)
		metrics.EnrichmentResults.WithLabelValues("degraded", "none").Inc()
		return Enriched{
			Text:     e.plainSummary(entry.RawSummary),
			FinalURL: entry.Link,
		}
	}

	enriched := Enriched{FinalURL: page.URL.String()}

	enriched.Text = e.clean(e.extractor.Run(page))
	if enriched.Text == "" {
		enriched.Text = e.plainSummary(entry.RawSummary)
	}

	enriched.ImageURL = e.prober.Pick(ctx, client, e.imageCandidates(page, entry))

	imageResult := "none"
	if enriched.ImageURL != "" {
		imageResult = "found"
	}
	metrics.EnrichmentResults.WithLabelValues("fetched", imageResult).Inc()

	slog.Debug("Article enriched",
		"url", enriched.FinalURL,
		"text_length", len([]rune(enriched.Text)),
		"image", enriched.ImageURL)

	return enriched
}

func (e *Enricher) fetchPage(ctx context.Context, client *http.Client, link string) (Page, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, link, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return Page{}, fmt.Errorf("failed to detect page charset: %w", err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse page: %w", err)
	}

	region := mainRegion(doc)
	if region != nil {
		region.Find("script, style").Remove()
	}

	return Page{
		URL:    resp.Request.URL,
		HTML:   data,
		Doc:    doc,
		Region: region,
	}, nil
}

// imageCandidates lists region images in document order, then feed media,
// then og:image, resolved against the page URL with duplicates dropped.
func (e *Enricher) imageCandidates(page Page, entry feed.Entry) []string {
	var raw []string

	if page.Region != nil {
		page.Region.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok {
				raw = append(raw, src)
			}
		})
	}

	raw = append(raw, entry.MediaCandidates...)

	if page.Doc != nil {
		if og, ok := page.Doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
			raw = append(raw, og)
		}
	}

	seen := make(map[string]bool, len(raw))
	candidates := make([]string, 0, len(raw))
	for _, candidate := range raw {
		resolved := resolve(page.URL, candidate)
		if resolved == "" || seen[resolved] {
			continue
		}
		seen[resolved] = true
		candidates = append(candidates, resolved)
	}

	return candidates
}

// clean collapses whitespace, normalizes to NFC and bounds the rune count.
func (e *Enricher) clean(text string) string {
	text = norm.NFC.String(strings.Join(strings.Fields(text), " "))

	runes := []rune(text)
	if e.maxTextLength > 0 && len(runes) > e.maxTextLength {
		text = string(runes[:e.maxTextLength])
	}
	return text
}

func (e *Enricher) plainSummary(raw string) string {
	return e.clean(html.UnescapeString(e.policy.Sanitize(raw)))
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}
