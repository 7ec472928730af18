package feed

import (
	"strings"
	"time"
)

const DefaultTitle = "Untitled"

type Entry struct {
	Title           string
	Link            string
	RawSummary      string
	PublishedAt     *time.Time // nil when the feed carried no usable timestamp
	MediaCandidates []string
	Categories      []string // categories declared by the feed item itself
	Category        string   // label of the configured source
}

// SortTime returns the publication time, or fallback for undated entries so
// that they sort after every dated one.
func (e Entry) SortTime(fallback time.Time) time.Time {
	if e.PublishedAt == nil {
		return fallback
	}
	return *e.PublishedAt
}

// Emoji returns the trailing token of the source label, used to decorate posts.
func (e Entry) Emoji() string {
	fields := strings.Fields(e.Category)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Seen answers whether a normalized link has already been handled.
type Seen interface {
	Contains(link string) bool
}

type Source struct {
	Category string
	URL      string
	Filters  []Filter
}

type Filter struct {
	Field    string
	Includes []string
	Excludes []string
}
