package feed

import (
	"fmt"
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run keeps the entries that pass every filter of the source. Exclusions win
// over inclusions.
func (f *Filterer) Run(entries []Entry, filters []Filter) ([]Entry, []string) {
	if len(filters) == 0 {
		return entries, nil
	}

	kept := make([]Entry, 0, len(entries))
	var reasons []string
	for _, entry := range entries {
		if rejected, reason := f.applyFilters(entry, filters); rejected {
			reasons = append(reasons, reason)
			continue
		}
		kept = append(kept, entry)
	}

	return kept, reasons
}

func (f *Filterer) applyFilters(entry Entry, filters []Filter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(entry, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(entry Entry, field string) string {
	switch field {
	case "title":
		return entry.Title
	case "description":
		return entry.RawSummary
	case "link":
		return entry.Link
	case "categories":
		return strings.Join(entry.Categories, " ")
	default:
		return ""
	}
}

// FilterFields lists the entry fields a filter may target.
var FilterFields = map[string]bool{
	"title":       true,
	"description": true,
	"link":        true,
	"categories":  true,
}
