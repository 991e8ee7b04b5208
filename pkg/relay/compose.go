// Copyright 2024-2026 Aiku AI

package relay

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/aiku/fixupx-relay/pkg/linkfix"
	"github.com/aiku/fixupx-relay/pkg/mdfmt"
)

// DefaultAttributionTemplate renders the first line of every repost.
const DefaultAttributionTemplate = "_Originally posted by {{.DisplayName}} on {{.Date}} at {{.Time}}:_"

// AttributionParams holds the values available to the attribution template.
type AttributionParams struct {
	DisplayName string
	Username    string
	Date        string
	Time        string
	Timestamp   time.Time
}

var attributionFuncs = template.FuncMap{
	"escape": mdfmt.Escape,
	"italic": mdfmt.Italic,
	"bold":   mdfmt.Bold,
}

// Composer builds repost texts.
type Composer struct {
	attribution *template.Template
	location    *time.Location
}

// NewComposer parses the attribution template. An empty template selects
// DefaultAttributionTemplate; a nil location selects UTC.
func NewComposer(attributionTemplate string, loc *time.Location) (*Composer, error) {
	if attributionTemplate == "" {
		attributionTemplate = DefaultAttributionTemplate
	}
	tmpl, err := template.New("attribution").Funcs(attributionFuncs).Parse(attributionTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse attribution template: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Composer{attribution: tmpl, location: loc}, nil
}

// Compose returns the repost text for msg: the attribution line, the text
// surrounding link (if any) and the normalized link, separated by blank
// lines. The message timestamp is used, not the current time.
func (c *Composer) Compose(msg *IncomingMessage, link linkfix.CandidateLink, normalized linkfix.NormalizedLink, displayName string) string {
	sections := []string{c.Attribution(msg, displayName)}
	if userText := surroundingText(msg.Text, link); userText != "" {
		sections = append(sections, userText)
	}
	sections = append(sections, normalized.URL)
	return strings.Join(sections, "\n\n")
}

// Attribution renders the attribution line. If the template fails, a plain
// fallback naming the poster is returned.
func (c *Composer) Attribution(msg *IncomingMessage, displayName string) string {
	ts := msg.Timestamp.In(c.location)
	params := AttributionParams{
		DisplayName: displayName,
		Username:    msg.AuthorUsername,
		Date:        ts.Format(time.DateOnly),
		Time:        ts.Format(time.TimeOnly),
		Timestamp:   ts,
	}
	var buf strings.Builder
	if err := c.attribution.Execute(&buf, params); err != nil {
		return mdfmt.Italic("Originally posted by " + displayName + ":")
	}
	return buf.String()
}

func surroundingText(text string, link linkfix.CandidateLink) string {
	if link.Start < 0 || link.End > len(text) || link.Start > link.End {
		return ""
	}
	before := strings.TrimSpace(text[:link.Start])
	after := strings.TrimSpace(text[link.End:])
	return strings.TrimSpace(before + " " + after)
}
