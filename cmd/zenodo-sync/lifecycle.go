// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/pdiddy/zenodo-sync/internal/layout"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// recordAPI is the single-record surface of the Zenodo client.
type recordAPI interface {
	Record(ctx context.Context, id string) (types.Record, error)
	UpdateRecord(ctx context.Context, id string, body []byte) (types.Record, error)
	PublishRecord(ctx context.Context, id string) (types.Record, error)
	DeleteRecord(ctx context.Context, id string) error
}

// --- update ---

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Upload a record's local metadata.json to the server",
	Long: `Update finds the metadata.json that fetch wrote for the record and sends
it as the record's new metadata. In the flat layout this is
{output-dir}/{record-id}/metadata.json; in the concept layout the version
directory whose metadata.json carries the record id is used. When the file
holds a full record only its "metadata" section is sent.`,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg := settings
	overrideString(cmd, "output-dir", &cfg.Fetch.OutputDir)
	recordID, _ := cmd.Flags().GetString("record-id")

	fs := afero.NewOsFs()
	tree, err := newTree(fs, cfg.Fetch.OutputDir, cfg)
	if err != nil {
		return err
	}
	path, err := tree.MetadataPath(recordID)
	if err != nil {
		return err
	}
	body, err := updateBody(fs, path)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	updateRecord(ctx, client, recordID, body)
	return nil
}

// updateBody reads the metadata document at path and returns the request
// body for an update. Only the metadata section of a full record document is
// sent; a bare metadata document is wrapped as {"metadata": ...}.
func updateBody(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("metadata %s is not valid JSON", path)
	}
	if meta := gjson.GetBytes(data, "metadata"); meta.IsObject() {
		data = []byte(meta.Raw)
	}
	return sjson.SetRawBytes([]byte(`{}`), "metadata", data)
}

func updateRecord(ctx context.Context, api recordAPI, id string, body []byte) {
	rec, err := api.UpdateRecord(ctx, id, body)
	if err != nil {
		logger.Error("update failed", zap.String("record_id", id), zap.Error(err))
		return
	}
	logger.Info("update complete", zap.String("record_id", rec.ID), zap.String("title", rec.Title))
}

// --- publish ---

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a draft record",
	RunE:  runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg := settings
	overrideBool(cmd, "dry-run", &cfg.Fetch.DryRun)
	recordID, _ := cmd.Flags().GetString("record-id")

	ctx := context.Background()
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	publishRecord(ctx, client, recordID, cfg.Fetch.DryRun)
	return nil
}

func publishRecord(ctx context.Context, api recordAPI, id string, dryRun bool) {
	if dryRun {
		logger.Info("dry run: record not published", zap.String("record_id", id))
		return
	}
	rec, err := api.PublishRecord(ctx, id)
	if err != nil {
		logger.Error("publish failed", zap.String("record_id", id), zap.Error(err))
		return
	}
	logger.Info("publish complete", zap.String("record_id", rec.ID), zap.String("version", rec.Version))
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a record's metadata",
	Long: `Show fetches a record and prints it as indented JSON. With --output-dir
the record is also written to the local tree using the configured layout.`,
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg := settings
	recordID, _ := cmd.Flags().GetString("record-id")

	var tree *layout.Writer
	if cmd.Flags().Changed("output-dir") {
		overrideString(cmd, "output-dir", &cfg.Fetch.OutputDir)
		t, err := newTree(afero.NewOsFs(), cfg.Fetch.OutputDir, cfg)
		if err != nil {
			return err
		}
		tree = t
	}

	ctx := context.Background()
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	showRecord(ctx, client, tree, cmd.OutOrStdout(), recordID)
	return nil
}

func showRecord(ctx context.Context, api recordAPI, tree *layout.Writer, w io.Writer, id string) {
	rec, err := api.Record(ctx, id)
	if err != nil {
		logger.Error("show failed", zap.String("record_id", id), zap.Error(err))
		return
	}
	w.Write(pretty.Pretty(rec.Raw))

	if tree == nil {
		return
	}
	dir, err := tree.WriteRecord(rec)
	if err != nil {
		logger.Error("writing record failed", zap.String("record_id", id), zap.Error(err))
		return
	}
	logger.Info("record written", zap.String("record_id", id), zap.String("dir", dir))
}

// --- delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a record on the server",
	RunE:  runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg := settings
	overrideBool(cmd, "dry-run", &cfg.Fetch.DryRun)
	recordID, _ := cmd.Flags().GetString("record-id")

	ctx := context.Background()
	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	deleteRecord(ctx, client, recordID, cfg.Fetch.DryRun)
	return nil
}

func deleteRecord(ctx context.Context, api recordAPI, id string, dryRun bool) {
	if dryRun {
		logger.Info("dry run: record not deleted", zap.String("record_id", id))
		return
	}
	if err := api.DeleteRecord(ctx, id); err != nil {
		logger.Error("delete failed", zap.String("record_id", id), zap.Error(err))
		return
	}
	logger.Info("delete complete", zap.String("record_id", id))
}

func init() {
	for _, c := range []*cobra.Command{updateCmd, publishCmd, showCmd, deleteCmd} {
		c.Flags().String("record-id", "", "id of the record")
		_ = c.MarkFlagRequired("record-id")
		rootCmd.AddCommand(c)
	}
	updateCmd.Flags().String("output-dir", "", "root of the local tree (default ./records)")
	showCmd.Flags().String("output-dir", "", "also write the record to this tree")
	publishCmd.Flags().Bool("dry-run", false, "log the action without sending it")
	deleteCmd.Flags().Bool("dry-run", false, "log the action without sending it")
}
