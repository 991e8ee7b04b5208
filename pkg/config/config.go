// Copyright 2024-2026 Aiku AI

// Package config loads the relay's YAML configuration file.
package config

import (
	_ "embed"
	"fmt"
	"os"

	up "go.mau.fi/util/configupgrade"
	"go.mau.fi/zeroconfig"
	"gopkg.in/yaml.v3"

	"github.com/aiku/fixupx-relay/pkg/connector"
	"github.com/aiku/fixupx-relay/pkg/relay"
)

//go:embed example-config.yaml
var ExampleConfig string

// AccessTokenEnv overrides mattermost.access_token when set.
const AccessTokenEnv = "FIXUPX_ACCESS_TOKEN"

// Config is the whole configuration file.
type Config struct {
	Mattermost connector.Config  `yaml:"mattermost"`
	Relay      relay.Config      `yaml:"relay"`
	Database   DatabaseConfig    `yaml:"database"`
	AdminAPI   AdminAPIConfig    `yaml:"admin_api"`
	Logging    zeroconfig.Config `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AdminAPIConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

func upgradeConfig(helper up.Helper) {
	helper.Copy(up.Str, "mattermost", "server_url")
	helper.Copy(up.Str, "mattermost", "access_token")
	helper.Copy(up.Str, "mattermost", "displayname_template")
	helper.Copy(up.Str, "mattermost", "bot_prefix")
	helper.Copy(up.Int, "mattermost", "workers")
	helper.Copy(up.Str, "mattermost", "reconnect_delay")

	helper.Copy(up.Str, "relay", "command_prefix")
	helper.Copy(up.List, "relay", "bot_admins")
	helper.Copy(up.Str, "relay", "denial_delay")
	helper.Copy(up.Str, "relay", "timezone")
	helper.Copy(up.Str, "relay", "attribution_template")
	helper.Copy(up.List, "relay", "extra_tracking_params")
	helper.Copy(up.Bool, "relay", "persist_provenance")

	helper.Copy(up.Str, "database", "path")

	helper.Copy(up.Str, "admin_api", "addr")
	helper.Copy(up.Str|up.Null, "admin_api", "api_key")

	helper.Copy(up.Map, "logging")
}

// Upgrader merges an existing config file into the current example config,
// keeping user values and adding new keys with their defaults.
var Upgrader = &up.StructUpgrader{
	SimpleUpgrader: up.SimpleUpgrader(upgradeConfig),
	Blocks: [][]string{
		{"relay"},
		{"database"},
		{"admin_api"},
		{"logging"},
	},
	Base: ExampleConfig,
}

// Load reads the config at path. Unless noUpdate is set, the file is first
// upgraded in place to the current layout.
func Load(path string, noUpdate bool) (*Config, error) {
	var data []byte
	var err error
	if noUpdate {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		data, _, err = up.Do(path, true, Upgrader)
		if err != nil {
			return nil, fmt.Errorf("failed to upgrade config: %w", err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates a config document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if tok := os.Getenv(AccessTokenEnv); tok != "" {
		cfg.Mattermost.AccessToken = tok
	}
	if err := cfg.PostProcess(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PostProcess validates every section and fills defaults.
func (c *Config) PostProcess() error {
	if err := c.Mattermost.PostProcess(); err != nil {
		return err
	}
	if err := c.Relay.PostProcess(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
