// Copyright 2024-2026 Aiku AI

// Package mdfmt builds small pieces of Mattermost markdown.
package mdfmt

import (
	"regexp"
	"strconv"
	"strings"
)

// specialRe matches characters that change meaning in Mattermost markdown.
var specialRe = regexp.MustCompile("[\\\\`*_~\\[\\]()#>|<]")

// Escape backslash-escapes markdown control characters so that user
// supplied text, such as a display name, renders literally.
func Escape(text string) string {
	return specialRe.ReplaceAllString(text, `\$0`)
}

// Italic wraps already escaped text in underscores. Empty text stays empty.
func Italic(text string) string {
	if text == "" {
		return ""
	}
	return "_" + text + "_"
}

// Bold wraps already escaped text in double asterisks.
func Bold(text string) string {
	if text == "" {
		return ""
	}
	return "**" + text + "**"
}

// Heading renders a heading of the given level, clamped to 1..6.
func Heading(level int, text string) string {
	level = min(max(level, 1), 6)
	return strings.Repeat("#", level) + " " + text
}

// NumberedList renders items as an ordered list, one per line.
func NumberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(item)
	}
	return b.String()
}
