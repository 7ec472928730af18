package feed

import (
	"net/url"
	"strings"
)

// Normalize strips the query string and fragment from a link so that the same
// article reached through different tracking parameters maps to one key.
// The rest of the link is kept byte for byte, including unescaped path
// characters. Links that fail to parse are returned unchanged.
func Normalize(raw string) string {
	if _, err := url.Parse(raw); err != nil {
		return raw
	}

	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}
