// Copyright 2024-2026 Aiku AI

package mdfmt

import (
	"testing"
)

func TestEscape(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice Smith", "Alice Smith"},
		{"underscore", "snake_case_name", `snake\_case\_name`},
		{"asterisks", "**bold**", `\*\*bold\*\*`},
		{"link syntax", "[x](y)", `\[x\]\(y\)`},
		{"backslash", `a\b`, `a\\b`},
		{"code and strike", "`a` ~b~", "\\`a\\` \\~b\\~"},
		{"heading and quote", "# h > q", `\# h \> q`},
		{"empty", "", ""},
		{"unicode untouched", "Zoë 日本", "Zoë 日本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmphasis(t *testing.T) {
	t.Parallel()
	if got := Italic("hi"); got != "_hi_" {
		t.Errorf("Italic = %q", got)
	}
	if got := Italic(""); got != "" {
		t.Errorf("Italic(empty) = %q", got)
	}
	if got := Bold("hi"); got != "**hi**" {
		t.Errorf("Bold = %q", got)
	}
	if got := Bold(""); got != "" {
		t.Errorf("Bold(empty) = %q", got)
	}
}

func TestHeading(t *testing.T) {
	t.Parallel()
	tests := []struct {
		level int
		want  string
	}{
		{0, "# T"},
		{2, "## T"},
		{9, "###### T"},
	}
	for _, tt := range tests {
		if got := Heading(tt.level, "T"); got != tt.want {
			t.Errorf("Heading(%d) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestNumberedList(t *testing.T) {
	t.Parallel()
	if got := NumberedList(nil); got != "" {
		t.Errorf("NumberedList(nil) = %q", got)
	}
	want := "1. a\n2. b"
	if got := NumberedList([]string{"a", "b"}); got != want {
		t.Errorf("NumberedList = %q, want %q", got, want)
	}
}
