package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses a feed document into entries for the given source category.
// A malformed document still yields whatever items were recovered together
// with the parse error; callers decide whether to use them.
func (p *Parser) Run(data []byte, category string) ([]Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if feed == nil && err == nil {
		err = fmt.Errorf("empty feed document")
	}
	if err != nil && (feed == nil || len(feed.Items) == 0) {
		if recovered := p.salvage(data); recovered != nil {
			feed = recovered
		}
	}
	if feed == nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entry, ok := p.normalizeItem(item, category)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	if err != nil {
		return entries, fmt.Errorf("feed document is malformed: %w", err)
	}

	return entries, nil
}

// maxSalvageAttempts bounds how many item boundaries salvage backs off over.
const maxSalvageAttempts = 3

var itemEndTags = [][]byte{[]byte("</item>"), []byte("</entry>")}

// salvage re-parses the document cut after its last complete item, with the
// elements still open at the cut closed in order. When that prefix is also
// broken it backs off one item at a time.
func (p *Parser) salvage(data []byte) *gofeed.Feed {
	end := len(data)
	for range maxSalvageAttempts {
		cut := lastItemEnd(data[:end])
		if cut < 0 {
			return nil
		}

		prefix := data[:cut]
		repaired := append(bytes.Clone(prefix), closeOpenElements(prefix)...)
		if feed, err := p.gofeedParser.Parse(bytes.NewReader(repaired)); err == nil && feed != nil {
			return feed
		}
		end = cut - 1
	}
	return nil
}

func lastItemEnd(data []byte) int {
	best := -1
	for _, tag := range itemEndTags {
		if i := bytes.LastIndex(data, tag); i >= 0 && i+len(tag) > best {
			best = i + len(tag)
		}
	}
	return best
}

// closeOpenElements returns the end tags for every element left open at the
// end of prefix, innermost first.
func closeOpenElements(prefix []byte) []byte {
	decoder := xml.NewDecoder(bytes.NewReader(prefix))
	decoder.Strict = false

	var open []string
	for {
		token, err := decoder.RawToken()
		if err != nil {
			break
		}
		switch t := token.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if t.Name.Space != "" {
				name = t.Name.Space + ":" + name
			}
			open = append(open, name)
		case xml.EndElement:
			if len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}

	var closing bytes.Buffer
	for i := len(open) - 1; i >= 0; i-- {
		closing.WriteString("</" + open[i] + ">")
	}
	return closing.Bytes()
}

func (p *Parser) normalizeItem(item *gofeed.Item, category string) (Entry, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return Entry{}, false
	}

	entry := Entry{
		Title:           cmp.Or(strings.TrimSpace(item.Title), DefaultTitle),
		Link:            link,
		RawSummary:      cmp.Or(item.Description, item.Content),
		MediaCandidates: p.extractMedia(item),
		Categories:      item.Categories,
		Category:        category,
	}

	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		entry.PublishedAt = &published
	} else if item.UpdatedParsed != nil {
		updated := *item.UpdatedParsed
		entry.PublishedAt = &updated
	}

	return entry, true
}

// extractMedia collects feed-supplied image URLs: the first media:content,
// otherwise every image enclosure, then the item image.
func (p *Parser) extractMedia(item *gofeed.Item) []string {
	var urls []string

	if media, ok := item.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if u := strings.TrimSpace(content.Attrs["url"]); u != "" {
				urls = append(urls, u)
				break
			}
		}
	}

	if len(urls) == 0 {
		for _, enclosure := range item.Enclosures {
			if enclosure == nil || enclosure.URL == "" {
				continue
			}
			if strings.Contains(strings.ToLower(enclosure.Type), "image") {
				urls = append(urls, enclosure.URL)
			}
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		duplicate := false
		for _, u := range urls {
			if u == item.Image.URL {
				duplicate = true
				break
			}
		}
		if !duplicate {
			urls = append(urls, item.Image.URL)
		}
	}

	return urls
}
