// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command fixupx-relay watches Mattermost channels for X/Twitter links and
// reposts them through an embed-friendly mirror with the author attributed.
// The original post is removed, and authors or channel admins can remove
// the repost again with a chat command.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exzerolog"

	"github.com/aiku/fixupx-relay/pkg/adminapi"
	"github.com/aiku/fixupx-relay/pkg/config"
	"github.com/aiku/fixupx-relay/pkg/connector"
	"github.com/aiku/fixupx-relay/pkg/relay"
	"github.com/aiku/fixupx-relay/pkg/stats"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const shutdownTimeout = 30 * time.Second

type options struct {
	ConfigPath            string `short:"c" long:"config" env:"FIXUPX_CONFIG" default:"config.yaml" description:"Path to the config file"`
	GenerateExampleConfig bool   `short:"e" long:"generate-example-config" description:"Write the example config to the config path and exit"`
	NoUpdate              bool   `long:"no-update" description:"Don't upgrade the config file to the current layout"`
	Version               bool   `long:"version" description:"Print the version and exit"`
}

func versionString() string {
	return fmt.Sprintf("fixupx-relay %s (commit %s, built %s)", Tag, Commit, BuildTime)
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Println(versionString())
		return
	}
	if opts.GenerateExampleConfig {
		if err := writeExampleConfig(opts.ConfigPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("Wrote example config to", opts.ConfigPath)
		return
	}

	cfg, err := config.Load(opts.ConfigPath, opts.NoUpdate)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(10)
	}
	log, err := cfg.Logging.Compile()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to initialize logger:", err)
		os.Exit(11)
	}
	exzerolog.SetupDefaults(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *log, cfg); err != nil {
		log.Fatal().Err(err).Msg("Relay stopped with error")
	}
}

func writeExampleConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	return os.WriteFile(path, []byte(config.ExampleConfig), 0o600)
}

func run(ctx context.Context, log zerolog.Logger, cfg *config.Config) error {
	log.Info().Str("version", Tag).Str("commit", Commit).Msg("Starting fixupx-relay")

	store, err := stats.Open(ctx, cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}()

	var provenance interface {
		relay.ProvenanceTracker
		adminapi.ProvenanceCounter
	}
	if cfg.Relay.PersistProvenance {
		provenance = store.Provenance()
	} else {
		provenance = relay.NewMemoryTracker()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(registry)

	mm := connector.NewMattermostClient(log, &cfg.Mattermost)
	if err := mm.Connect(ctx); err != nil {
		return err
	}

	pipeline, err := relay.NewPipeline(log, cfg.Relay, relay.Deps{
		Transport:  mm,
		Stats:      store,
		Reporter:   store,
		Provenance: provenance,
		Scheduler:  relay.TimerScheduler{},
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	var admin *adminapi.Server
	if cfg.AdminAPI.Addr != "" {
		admin = adminapi.New(log, adminapi.Options{
			Addr:       cfg.AdminAPI.Addr,
			APIKey:     cfg.AdminAPI.APIKey,
			Version:    Tag,
			Reporter:   store,
			Provenance: provenance,
			Database:   store,
			Gatherer:   registry,
		})
		admin.Start()
	}

	err = mm.Run(ctx, pipeline)
	log.Info().Msg("Shutting down")

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Admin API shutdown failed")
		}
	}
	return err
}
