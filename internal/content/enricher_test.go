package content

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/lysyi3m/rss-herald/internal/feed"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, path)
}

func (l *requestLog) contains(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.paths {
		if p == path {
			return true
		}
	}
	return false
}

func newSite(t *testing.T, page string) (*httptest.Server, *requestLog) {
	t.Helper()

	small := pngBytes(t, 300, 150)
	big := pngBytes(t, 500, 300)
	log := &requestLog{}

	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/article", http.StatusFound)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		switch {
		case strings.Contains(r.URL.Path, "small"):
			w.Write(small)
		case strings.Contains(r.URL.Path, "broken"):
			w.Write([]byte("not an image"))
		default:
			w.Write(big)
		}
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, log
}

func newTestEnricher(extractor Extractor, maxTextLength int) *Enricher {
	prober := NewImageProber(400, 200, "herald-test", 5*time.Second)
	return NewEnricher(extractor, prober, "herald-test", 5*time.Second, maxTextLength)
}

const articlePage = `<!DOCTYPE html>
<html>
<head>
	<meta property="og:image" content="/img/og.png">
	<title>Page</title>
</head>
<body>
	<nav>Site navigation</nav>
	<article>
		<h1>Headline</h1>
		<script>var tracking = true;</script>
		<style>.x { color: red; }</style>
		<img src="/img/site-logo.png">
		<img src="/img/small.png">
		<p>First    paragraph
		of the story.</p>
		<img src="/img/big.png">
		<p>Second paragraph.</p>
	</article>
</body>
</html>`

func TestEnrichExtractsTextAndImage(t *testing.T) {
	server, log := newSite(t, articlePage)
	enricher := newTestEnricher(SelectorExtractor{}, 12000)

	entry := feed.Entry{Link: server.URL + "/moved", RawSummary: "feed summary"}
	result := enricher.Enrich(context.Background(), server.Client(), entry)

	if result.FinalURL != server.URL+"/article" {
		t.Errorf("Expected final URL after redirect, got: %s", result.FinalURL)
	}
	if result.Text != "Headline First paragraph of the story. Second paragraph." {
		t.Errorf("Expected collapsed article text, got: %q", result.Text)
	}
	if strings.Contains(result.Text, "tracking") || strings.Contains(result.Text, "color") {
		t.Errorf("Expected script and style to be removed, got: %q", result.Text)
	}
	if strings.Contains(result.Text, "navigation") {
		t.Errorf("Expected text outside the article to be ignored, got: %q", result.Text)
	}
	if result.ImageURL != server.URL+"/img/big.png" {
		t.Errorf("Expected the first large image, got: %s", result.ImageURL)
	}
	if log.contains("/img/site-logo.png") {
		t.Error("Expected logo-like URL to never be requested")
	}
	if !log.contains("/img/small.png") {
		t.Error("Expected small image to be probed before the large one")
	}
	if log.contains("/img/og.png") {
		t.Error("Expected og:image to be skipped once an earlier candidate passed")
	}
}

func TestEnrichFallsBackToFeedCandidatesAndOpenGraph(t *testing.T) {
	page := `<html><head><meta property="og:image" content="/img/og.png"></head>
<body><div class="post-content"><p>Body text</p><img src="/img/small.png"></div></body></html>`
	server, log := newSite(t, page)
	enricher := newTestEnricher(SelectorExtractor{}, 12000)

	entry := feed.Entry{
		Link:            server.URL + "/article",
		MediaCandidates: []string{"/img/broken.png", "/img/small.png"},
	}
	result := enricher.Enrich(context.Background(), server.Client(), entry)

	if result.Text != "Body text" {
		t.Errorf("Expected post-content text, got: %q", result.Text)
	}
	if result.ImageURL != server.URL+"/img/og.png" {
		t.Errorf("Expected og:image as last resort, got: %s", result.ImageURL)
	}
	if !log.contains("/img/broken.png") {
		t.Error("Expected feed media candidate to be probed")
	}
}

func TestEnrichDegradesOnUnreachablePage(t *testing.T) {
	server, log := newSite(t, articlePage)
	enricher := newTestEnricher(SelectorExtractor{}, 12000)

	entry := feed.Entry{
		Link:            server.URL + "/down",
		RawSummary:      "<p>Feed &amp; <b>summary</b></p>",
		MediaCandidates: []string{server.URL + "/img/big.png"},
	}
	result := enricher.Enrich(context.Background(), server.Client(), entry)

	if result.Text != "Feed & summary" {
		t.Errorf("Expected plain feed summary, got: %q", result.Text)
	}
	if result.FinalURL != entry.Link {
		t.Errorf("Expected entry link as final URL, got: %s", result.FinalURL)
	}
	if result.ImageURL != "" {
		t.Errorf("Expected no image for an unreachable page, got: %s", result.ImageURL)
	}
	if log.contains("/img/big.png") {
		t.Error("Expected no image probes for an unreachable page")
	}
}

func TestEnrichEmptyRegionUsesFeedSummary(t *testing.T) {
	server, _ := newSite(t, `<html><body><article>   </article></body></html>`)
	enricher := newTestEnricher(SelectorExtractor{}, 12000)

	entry := feed.Entry{Link: server.URL + "/article", RawSummary: "Only the summary"}
	result := enricher.Enrich(context.Background(), server.Client(), entry)

	if result.Text != "Only the summary" {
		t.Errorf("Expected feed summary fallback, got: %q", result.Text)
	}
}

func TestEnrichTruncatesByRunes(t *testing.T) {
	server, _ := newSite(t, `<html><body><article>`+strings.Repeat("ж", 50)+`</article></body></html>`)
	enricher := newTestEnricher(SelectorExtractor{}, 10)

	result := enricher.Enrich(context.Background(), server.Client(), feed.Entry{Link: server.URL + "/article"})

	if result.Text != strings.Repeat("ж", 10) {
		t.Errorf("Expected 10 runes, got: %q", result.Text)
	}
}

func TestEnrichDecodesDeclaredCharset(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String(`<html><body><article>Привет, мир</article></body></html>`)
	if err != nil {
		t.Fatalf("Failed to encode page: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		w.Write([]byte(encoded))
	}))
	defer server.Close()

	enricher := newTestEnricher(SelectorExtractor{}, 12000)
	result := enricher.Enrich(context.Background(), server.Client(), feed.Entry{Link: server.URL})

	if result.Text != "Привет, мир" {
		t.Errorf("Expected decoded text, got: %q", result.Text)
	}
}

func TestReadabilityExtractor(t *testing.T) {
	paragraph := "This is the main content of the article. It contains several sentences of meaningful text that the readability scoring should prefer over the surrounding chrome. "
	page := `<!DOCTYPE html><html><head><title>Test Article</title></head><body>
<header><nav>Navigation</nav></header>
<main><div class="story">
<p>` + strings.Repeat(paragraph, 3) + `</p>
<p>` + strings.Repeat(paragraph, 3) + `</p>
</div></main>
<aside><div>Advertisement</div></aside>
</body></html>`
	server, _ := newSite(t, page)
	enricher := newTestEnricher(NewExtractor("readability"), 12000)

	result := enricher.Enrich(context.Background(), server.Client(), feed.Entry{Link: server.URL + "/article"})

	if !strings.Contains(result.Text, "main content of the article") {
		t.Errorf("Expected main content, got: %q", result.Text)
	}
	if strings.Contains(result.Text, "Advertisement") {
		t.Errorf("Expected advertisement to be excluded, got: %q", result.Text)
	}
}
