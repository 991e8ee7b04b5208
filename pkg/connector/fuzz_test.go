// Copyright 2024-2026 Aiku AI

package connector

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// FuzzIsRelayUsername: echo prevention must be deterministic and must
// always catch the bot's own name and prefixed names.
// ---------------------------------------------------------------------------

func FuzzIsRelayUsername(f *testing.F) {
	f.Add("fixupx", "fixupx", "")
	f.Add("relay_bot", "fixupx", "relay_")
	f.Add("alice", "", "")
	f.Add("", "", "")
	f.Add(string([]byte{0x00}), "", "") // null byte

	f.Fuzz(func(t *testing.T, username, own, prefix string) {
		result := isRelayUsername(username, own, prefix)
		if result != isRelayUsername(username, own, prefix) {
			t.Fatalf("non-deterministic for (%q, %q, %q)", username, own, prefix)
		}
		if own != "" && username == own && !result {
			t.Errorf("own username %q not matched", own)
		}
		if prefix != "" && strings.HasPrefix(username, prefix) && !result {
			t.Errorf("prefixed username %q not matched with prefix %q", username, prefix)
		}
		if own == "" && prefix == "" && result {
			t.Errorf("nothing configured but %q matched", username)
		}
	})
}

// ---------------------------------------------------------------------------
// FuzzHttpToWS: the scheme swap never touches anything after the scheme.
// ---------------------------------------------------------------------------

func FuzzHttpToWS(f *testing.F) {
	f.Add("https://mm.example.com")
	f.Add("http://localhost:8065")
	f.Add("")

	f.Fuzz(func(t *testing.T, url string) {
		got := httpToWS(url)
		switch {
		case strings.HasPrefix(url, "https://"):
			if got != "wss://"+url[len("https://"):] {
				t.Errorf("httpToWS(%q) = %q", url, got)
			}
		case strings.HasPrefix(url, "http://"):
			if got != "ws://"+url[len("http://"):] {
				t.Errorf("httpToWS(%q) = %q", url, got)
			}
		default:
			if got != url {
				t.Errorf("httpToWS(%q) = %q, want unchanged", url, got)
			}
		}
	})
}
