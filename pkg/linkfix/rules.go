// Copyright 2024-2026 Aiku AI

package linkfix

import (
	"slices"
	"strings"
)

// DefaultTrackingParams are query keys known to carry analytics or referral
// data on X/Twitter share links.
var DefaultTrackingParams = []string{
	"s", "t", "twclid", "ref_src", "ref_url", "cxt", "src", "partner", "medium",
	"source", "campaign", "ref", "feature", "vertical", "linkId", "attr_userid",
}

// Rules describes the host allow-list and the rewrite applied to it.
type Rules struct {
	// Rewrites maps each source host to its canonical mirror host. The
	// mirror hosts are recognized as links too.
	Rewrites map[string]string
	// TrackingParams are the query keys removed from every link.
	TrackingParams []string
}

// DefaultRules returns the x.com/twitter.com rewrite rules.
func DefaultRules() Rules {
	return Rules{
		Rewrites: map[string]string{
			"x.com":       "fixupx.com",
			"twitter.com": "fxtwitter.com",
		},
		TrackingParams: slices.Clone(DefaultTrackingParams),
	}
}

// WithTrackingParams returns a copy of the rules with extra tracking keys
// appended. Duplicates and empty keys are skipped.
func (r Rules) WithTrackingParams(extra ...string) Rules {
	out := Rules{
		Rewrites:       r.Rewrites,
		TrackingParams: slices.Clone(r.TrackingParams),
	}
	for _, key := range extra {
		key = strings.TrimSpace(key)
		if key == "" || slices.Contains(out.TrackingParams, key) {
			continue
		}
		out.TrackingParams = append(out.TrackingParams, key)
	}
	return out
}

// SourceHosts returns the hosts that get rewritten, sorted.
func (r Rules) SourceHosts() []string {
	hosts := make([]string, 0, len(r.Rewrites))
	for src := range r.Rewrites {
		hosts = append(hosts, src)
	}
	slices.Sort(hosts)
	return hosts
}

// CanonicalHosts returns the mirror hosts, sorted and deduplicated.
func (r Rules) CanonicalHosts() []string {
	hosts := make([]string, 0, len(r.Rewrites))
	for _, dst := range r.Rewrites {
		hosts = append(hosts, dst)
	}
	slices.Sort(hosts)
	return slices.Compact(hosts)
}

// Hosts returns every recognized host: sources first, then mirrors.
func (r Rules) Hosts() []string {
	return append(r.SourceHosts(), r.CanonicalHosts()...)
}
