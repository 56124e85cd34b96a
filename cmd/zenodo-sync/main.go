// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the zenodo-sync CLI.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/zenodo-sync/internal/config"
	"github.com/pdiddy/zenodo-sync/internal/logging"
	"github.com/pdiddy/zenodo-sync/internal/secrets"
	"github.com/pdiddy/zenodo-sync/internal/zenodo"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile  string
	settings types.Config
	logger   = zap.NewNop()
	closeLog = func() error { return nil }
)

// rootCmd is the base command for the zenodo-sync CLI.
var rootCmd = &cobra.Command{
	Use:   "zenodo-sync",
	Short: "Mirror Zenodo community records into a local directory tree",
	Long: `zenodo-sync retrieves record metadata and attached files from a
Zenodo-compatible API and writes them to a structured local tree. It also
updates, publishes, shows, and deletes single records.

Settings come from zenodo-sync.yaml, a .env file, ZENODO_* and
ZENODO_SYNC_* environment variables, and .secrets/zenodo-access-token.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return closeLog() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./zenodo-sync.yaml or ~/.config/zenodo-sync/zenodo-sync.yaml)")
}

// setup resolves configuration, builds the logger, and validates settings
// shared by every command.
func setup(cmd *cobra.Command, args []string) error {
	dotenvErr := config.LoadDotEnv(".env")

	v := config.New()
	used, err := config.ReadFile(v, cfgFile)
	if err != nil {
		return err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}

	log, closeFn, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	logger, closeLog = log, closeFn

	if dotenvErr != nil {
		log.Warn("no .env file loaded", zap.Error(dotenvErr))
	}
	if used != "" {
		log.Info("using config file", zap.String("path", used))
	}

	loaded, err := secrets.Load(afero.NewOsFs(), secrets.DefaultDir, log)
	if err != nil {
		return err
	}
	if len(loaded) > 0 {
		log.Info("loaded secrets", zap.Strings("keys", secrets.Keys(loaded)))
	}
	config.ApplySecrets(&cfg, loaded)

	if err := config.Validate(cfg); err != nil {
		return err
	}
	log.Info("configuration", zap.Any("config", config.Masked(cfg)))
	settings = cfg
	return nil
}

// connect returns a client for the configured API after checking that the
// base URL answers.
func connect(ctx context.Context, cfg types.Config) (*zenodo.Client, error) {
	client, err := zenodo.New(&http.Client{Timeout: cfg.Zenodo.Timeout}, cfg.Zenodo, logger)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func overrideString(cmd *cobra.Command, flag string, dst *string) {
	if cmd.Flags().Changed(flag) {
		*dst, _ = cmd.Flags().GetString(flag)
	}
}

func overrideBool(cmd *cobra.Command, flag string, dst *bool) {
	if cmd.Flags().Changed(flag) {
		*dst, _ = cmd.Flags().GetBool(flag)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
