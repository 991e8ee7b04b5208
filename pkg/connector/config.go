// Copyright 2024-2026 Aiku AI

package connector

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDisplaynameTemplate = "@{{.Username}}"
	DefaultWorkers             = 8
	DefaultReconnectDelay      = 5 * time.Second
)

// Config holds the Mattermost connector configuration.
type Config struct {
	ServerURL   string `yaml:"server_url"`
	AccessToken string `yaml:"access_token"`
	// DisplaynameTemplate renders the author name used in repost attributions.
	DisplaynameTemplate string `yaml:"displayname_template"`
	// BotPrefix is a username prefix for echo prevention. Posts from any
	// username starting with it are ignored. Leave empty to disable.
	BotPrefix string `yaml:"bot_prefix"`
	// Workers bounds the number of posts handled concurrently.
	Workers        int           `yaml:"workers"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	displaynameTemplate *template.Template `yaml:"-"`
}

// DisplaynameParams holds the parameters for rendering the displayname template.
type DisplaynameParams struct {
	Username  string
	Nickname  string
	FirstName string
	LastName  string
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type rawConfig Config
	return node.Decode((*rawConfig)(c))
}

// PostProcess validates the config, fills defaults and compiles the
// displayname template.
func (c *Config) PostProcess() error {
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if c.ServerURL == "" {
		return fmt.Errorf("mattermost.server_url is required")
	}
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("mattermost.server_url must start with http:// or https://, got %q", c.ServerURL)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("mattermost.access_token is required")
	}
	if c.DisplaynameTemplate == "" {
		c.DisplaynameTemplate = DefaultDisplaynameTemplate
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	var err error
	c.displaynameTemplate, err = template.New("displayname").Parse(c.DisplaynameTemplate)
	if err != nil {
		return fmt.Errorf("mattermost.displayname_template: %w", err)
	}
	return nil
}

// FormatDisplayname renders the displayname template, falling back to the
// username when the template is missing, fails or renders blank.
func (c *Config) FormatDisplayname(params DisplaynameParams) string {
	if c.displaynameTemplate == nil {
		return params.Username
	}
	var sb strings.Builder
	if err := c.displaynameTemplate.Execute(&sb, params); err != nil {
		return params.Username
	}
	if strings.TrimSpace(sb.String()) == "" {
		return params.Username
	}
	return sb.String()
}
