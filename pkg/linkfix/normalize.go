// Copyright 2024-2026 Aiku AI

package linkfix

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformed is returned for links that are not valid URLs.
var ErrMalformed = errors.New("malformed link")

// NormalizedLink is the canonical form of a candidate link.
type NormalizedLink struct {
	URL string
}

func (n NormalizedLink) String() string {
	return n.URL
}

// Normalizer strips tracking parameters and rewrites source hosts to their
// mirrors. It is safe for concurrent use.
type Normalizer struct {
	rewrites  map[string]string
	canonical map[string]struct{}
	tracking  map[string]struct{}
}

// NewNormalizer builds a normalizer from rules.
func NewNormalizer(rules Rules) *Normalizer {
	n := &Normalizer{
		rewrites:  make(map[string]string, len(rules.Rewrites)),
		canonical: make(map[string]struct{}, len(rules.Rewrites)),
		tracking:  make(map[string]struct{}, len(rules.TrackingParams)),
	}
	for src, dst := range rules.Rewrites {
		n.rewrites[src] = dst
		n.canonical[dst] = struct{}{}
	}
	for _, key := range rules.TrackingParams {
		n.tracking[key] = struct{}{}
	}
	return n
}

var defaultNormalizer = NewNormalizer(DefaultRules())

// Normalize normalizes rawURL with the default rules.
func Normalize(rawURL string) (NormalizedLink, error) {
	return defaultNormalizer.Normalize(rawURL)
}

// Normalize returns the canonical form of rawURL.
//
// Only the query string is re-encoded. Scheme, authority, path and fragment
// are kept byte for byte, apart from the host rewrite.
func (n *Normalizer) Normalize(rawURL string) (NormalizedLink, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return NormalizedLink{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return NormalizedLink{}, fmt.Errorf("%w: %q has no scheme or host", ErrMalformed, rawURL)
	}

	head, query, fragment := splitURL(rawURL)
	cleaned := head
	if q := n.cleanQuery(query); q != "" {
		cleaned += "?" + q
	}
	if fragment != "" {
		cleaned += "#" + fragment
	}

	// Hosts are compared case-sensitively, like the matcher does.
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	if _, ok := n.canonical[host]; ok {
		return NormalizedLink{URL: cleaned}, nil
	}
	target, ok := n.rewrites[host]
	if !ok {
		return NormalizedLink{URL: cleaned}, nil
	}
	return NormalizedLink{URL: strings.ReplaceAll(cleaned, host, target)}, nil
}

// splitURL cuts a URL into everything before the query, the raw query and
// the raw fragment. The fragment is split off first, so a '?' inside it
// stays there.
func splitURL(rawURL string) (head, query, fragment string) {
	head, fragment, _ = strings.Cut(rawURL, "#")
	head, query, _ = strings.Cut(head, "?")
	return head, query, fragment
}

// cleanQuery drops tracking and empty-valued pairs from a raw query and
// re-encodes the rest in their original order.
func (n *Normalizer) cleanQuery(query string) string {
	if query == "" {
		return ""
	}
	pairs := strings.Split(query, "&")
	kept := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, value := unescapeLenient(rawKey), unescapeLenient(rawValue)
		if _, blocked := n.tracking[key]; blocked || value == "" {
			continue
		}
		kept = append(kept, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}
	return strings.Join(kept, "&")
}

// unescapeLenient decodes form-encoded text. Invalid percent escapes are
// kept as literal text instead of failing the whole pair.
func unescapeLenient(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 < len(s) {
				if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 2
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
