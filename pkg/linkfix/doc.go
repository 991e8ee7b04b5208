// Copyright 2024-2026 Aiku AI

// Package linkfix finds links to X/Twitter in free text and rewrites them
// into their privacy-friendly mirror form.
//
// Matching is purely lexical. [Matcher.Scan] yields every candidate link in
// left-to-right order; nothing is fetched or validated over the network.
//
// [Normalizer.Normalize] strips known tracking query parameters and maps a
// source host onto its canonical mirror (x.com to fixupx.com, twitter.com to
// fxtwitter.com). Links that already point at a mirror only have their query
// cleaned, so normalizing twice gives the same result as normalizing once.
//
// The host rewrite is a literal substring replacement over the whole cleaned
// URL, not just the host field. A path or query that contains the source host
// text verbatim is rewritten as well. Existing deployments depend on that
// output, so it is kept and pinned by tests.
package linkfix
