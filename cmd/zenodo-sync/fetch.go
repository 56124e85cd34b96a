// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/zenodo-sync/internal/catalog"
	"github.com/pdiddy/zenodo-sync/internal/config"
	"github.com/pdiddy/zenodo-sync/internal/fetch"
	"github.com/pdiddy/zenodo-sync/internal/layout"
	"github.com/pdiddy/zenodo-sync/internal/projection"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Mirror every record of a community with its versions and files",
	Long: `Fetch pages through the records of a community, resolves each record's
version history, writes metadata documents for every version, and downloads
the attached files. Rerunning fetch overwrites the tree in place.

Individual record, version, or file failures are logged and counted; they
never change the exit status. Use --dry-run to write metadata only.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("community-id", "", "community whose records are mirrored (default from config)")
	fetchCmd.Flags().String("output-dir", "", "root of the local tree (default ./records)")
	fetchCmd.Flags().Bool("dry-run", false, "write directories and metadata but download no files")
	fetchCmd.Flags().String("layout", "", "directory layout: concept or flat (default concept)")
	fetchCmd.Flags().String("template", "", "metadata projection template (JSON)")
	fetchCmd.Flags().String("catalog", "", "SQLite catalog updated with every mirrored version")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := settings
	overrideString(cmd, "community-id", &cfg.Zenodo.CommunityID)
	overrideString(cmd, "output-dir", &cfg.Fetch.OutputDir)
	overrideBool(cmd, "dry-run", &cfg.Fetch.DryRun)
	overrideString(cmd, "template", &cfg.Fetch.TemplatePath)
	overrideString(cmd, "catalog", &cfg.Fetch.CatalogPath)
	if cmd.Flags().Changed("layout") {
		kind, _ := cmd.Flags().GetString("layout")
		cfg.Fetch.Layout = types.Layout(kind)
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.ValidateFetch(cfg); err != nil {
		return err
	}

	fs := afero.NewOsFs()
	tree, err := newTree(fs, cfg.Fetch.OutputDir, cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}

	runLog := logger.With(zap.String("run_id", uuid.NewString()))
	fetcher := fetch.New(client, tree, fs, runLog, fetch.Options{
		CommunityID: cfg.Zenodo.CommunityID,
		PageSize:    cfg.Zenodo.PageSize,
		DryRun:      cfg.Fetch.DryRun,
	})

	if cfg.Fetch.CatalogPath != "" {
		store, err := catalog.Open(cfg.Fetch.CatalogPath, catalog.WithFs(fs))
		if err != nil {
			return err
		}
		defer store.Close()
		fetcher.WithRecorder(store)
	}

	runLog.Info("fetching records",
		zap.String("community_id", cfg.Zenodo.CommunityID),
		zap.String("output_dir", cfg.Fetch.OutputDir),
		zap.String("layout", string(tree.Kind())))
	stats := fetcher.Run(ctx)
	if stats.HasFailures() {
		runLog.Warn("fetch finished with failures",
			zap.Int("failed_records", stats.FailedRecords),
			zap.Int("failed_files", stats.FailedFiles))
	}
	return nil
}

// newTree builds the layout writer for root, loading the metadata template
// when one is configured. An unreadable template is a setup error.
func newTree(fs afero.Fs, root string, cfg types.Config) (*layout.Writer, error) {
	opts := []layout.Option{layout.WithStripSections(cfg.Fetch.StripSections)}
	if cfg.Fetch.TemplatePath != "" {
		tmpl, err := projection.Load(fs, cfg.Fetch.TemplatePath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, layout.WithTemplate(tmpl))
	}
	return layout.NewWriter(fs, root, cfg.Fetch.Layout, opts...)
}
