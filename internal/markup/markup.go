// Package markup keeps Telegram Markdown bodies well formed.
package markup

import (
	"strings"
	"unicode/utf16"
)

var markers = []string{"*", "_", "`"}

// Sanitize closes no markers. It cuts the text at the last occurrence of any
// emphasis form that appears an odd number of times, checking the triple,
// double and single forms of each marker in turn.
func Sanitize(text string) string {
	for _, marker := range markers {
		for _, form := range []string{strings.Repeat(marker, 3), strings.Repeat(marker, 2), marker} {
			if strings.Count(text, form)%2 != 0 {
				text = text[:strings.LastIndex(text, form)]
			}
		}
	}
	return strings.TrimSpace(text)
}

// Strip removes every emphasis marker, leaving plain text.
func Strip(text string) string {
	for _, marker := range markers {
		text = strings.ReplaceAll(text, marker, "")
	}
	return strings.TrimSpace(text)
}

// Length reports the size of text in UTF-16 code units, the unit Telegram
// uses for message and caption limits.
func Length(text string) int {
	n := 0
	for _, r := range text {
		n += unitLen(r)
	}
	return n
}

func unitLen(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

// Truncate shortens text to at most limit UTF-16 code units, ending with an
// ellipsis when it had to cut. A surrogate pair is never split.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if Length(text) <= limit {
		return text
	}

	budget := limit - 1
	if limit == 1 {
		budget = 1
	}

	end, used := 0, 0
	for i, r := range text {
		n := unitLen(r)
		if used+n > budget {
			end = i
			break
		}
		used += n
	}

	if limit == 1 {
		return text[:end]
	}
	return strings.TrimRightFunc(text[:end], isSpace) + "…"
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}
