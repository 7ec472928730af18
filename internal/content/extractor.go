package content

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

// Page is a fetched article page, decoded to UTF-8.
type Page struct {
	URL    *url.URL
	HTML   []byte
	Doc    *goquery.Document
	Region *goquery.Selection // main content region, script and style removed
}

// Extractor turns a page into plain article text.
type Extractor interface {
	Run(page Page) string
}

// SelectorExtractor returns the text of the main region as is.
type SelectorExtractor struct{}

func (SelectorExtractor) Run(page Page) string {
	if page.Region == nil {
		return ""
	}
	return page.Region.Text()
}

// ReadabilityExtractor scores the page for its main content block and falls
// back to the selector region when nothing readable is found.
type ReadabilityExtractor struct {
	fallback SelectorExtractor
}

func (e ReadabilityExtractor) Run(page Page) string {
	article, err := readability.FromReader(bytes.NewReader(page.HTML), page.URL)
	if err != nil {
		slog.Debug("Readability extraction failed", "url", page.URL, "error", err)
		return e.fallback.Run(page)
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		slog.Debug("Readability rendering failed", "url", page.URL, "error", err)
		return e.fallback.Run(page)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return e.fallback.Run(page)
	}
	return text
}

// NewExtractor returns the extractor registered under name; unknown names get
// the selector extractor.
func NewExtractor(name string) Extractor {
	switch name {
	case "readability":
		return ReadabilityExtractor{}
	default:
		return SelectorExtractor{}
	}
}

// mainRegion picks the first article, else the first div.post-content, else
// the body.
func mainRegion(doc *goquery.Document) *goquery.Selection {
	for _, selector := range []string{"article", "div.post-content", "body"} {
		if region := doc.Find(selector).First(); region.Length() > 0 {
			return region
		}
	}
	return nil
}
