// Copyright 2024-2026 Aiku AI

package linkfix

import (
	"iter"
	"regexp"
	"strings"
)

// pathChars matches the non-whitespace tail of a link. It excludes Unicode
// spaces as well as ASCII ones so that a non-breaking space ends the link.
const pathChars = `[^\s\v\p{Z}\x{85}\x{1c}-\x{1f}]+`

// CandidateLink is a link found in message text. Start and End are byte
// offsets into the scanned text; Raw is text[Start:End].
type CandidateLink struct {
	Raw   string
	Start int
	End   int
	// Host is the matched host without any "www." prefix.
	Host string
}

// Matcher finds links to the hosts of a rule set.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles a matcher for every host in rules.
func NewMatcher(rules Rules) *Matcher {
	hosts := rules.Hosts()
	quoted := make([]string, len(hosts))
	for i, host := range hosts {
		quoted[i] = regexp.QuoteMeta(host)
	}
	pattern := `https?://(?:www\.)?(` + strings.Join(quoted, "|") + `)/` + pathChars
	return &Matcher{re: regexp.MustCompile(pattern)}
}

// Scan returns the candidate links in text from left to right. The sequence
// is lazy and can be iterated more than once.
func (m *Matcher) Scan(text string) iter.Seq[CandidateLink] {
	return func(yield func(CandidateLink) bool) {
		offset := 0
		for offset < len(text) {
			loc := m.re.FindStringSubmatchIndex(text[offset:])
			if loc == nil {
				return
			}
			link := CandidateLink{
				Raw:   text[offset+loc[0] : offset+loc[1]],
				Start: offset + loc[0],
				End:   offset + loc[1],
				Host:  text[offset+loc[2] : offset+loc[3]],
			}
			offset += loc[1]
			if !yield(link) {
				return
			}
		}
	}
}

// First returns the leftmost candidate link in text.
func (m *Matcher) First(text string) (CandidateLink, bool) {
	for link := range m.Scan(text) {
		return link, true
	}
	return CandidateLink{}, false
}
