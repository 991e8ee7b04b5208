// Copyright 2024-2026 Aiku AI

package relay

import (
	"fmt"
	"slices"
	"time"
)

// Config is the relay section of the configuration file.
type Config struct {
	// CommandPrefix starts every chat command, e.g. "!delete".
	CommandPrefix string `yaml:"command_prefix"`
	// BotAdmins are the user IDs allowed to run the stats command.
	BotAdmins []string `yaml:"bot_admins"`
	// DenialDelay is how long a denied delete request stays visible.
	DenialDelay time.Duration `yaml:"denial_delay"`
	// Timezone is an IANA zone name used for attribution timestamps.
	Timezone            string   `yaml:"timezone"`
	AttributionTemplate string   `yaml:"attribution_template"`
	ExtraTrackingParams []string `yaml:"extra_tracking_params"`
	// PersistProvenance keeps repost ownership in the database so that
	// delete requests keep working after a restart.
	PersistProvenance bool `yaml:"persist_provenance"`

	location *time.Location `yaml:"-"`
}

// PostProcess fills defaults and resolves the time zone.
func (c *Config) PostProcess() error {
	if c.CommandPrefix == "" {
		c.CommandPrefix = "!"
	}
	if c.DenialDelay <= 0 {
		c.DenialDelay = DefaultDenialDelay
	}
	if c.AttributionTemplate == "" {
		c.AttributionTemplate = DefaultAttributionTemplate
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location returns the resolved time zone, or UTC before PostProcess.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// IsBotAdmin reports whether userID may view statistics.
func (c *Config) IsBotAdmin(userID string) bool {
	return userID != "" && slices.Contains(c.BotAdmins, userID)
}
