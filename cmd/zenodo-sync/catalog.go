// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/zenodo-sync/internal/catalog"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

const defaultCatalogPath = "records/catalog.db"

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the local catalog of mirrored versions",
	Long: `Catalog reads the SQLite index that fetch --catalog maintains. Use
subcommands to list mirrored versions or export them.`,
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mirrored versions",
	RunE:  runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	store, err := catalog.Open(catalogPath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), catalogQuery(cmd))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatCatalog(cmd.OutOrStdout(), entries, jsonOutput)
}

func formatCatalog(w io.Writer, entries []types.CatalogEntry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No versions in catalog.")
		return nil
	}

	fmt.Fprintf(w, "%-10s  %-10s  %-12s  %-40s  %5s\n", "Concept", "Record", "Version", "Title", "Files")
	fmt.Fprintln(w, strings.Repeat("-", 85))
	for _, e := range entries {
		fmt.Fprintf(w, "%-10s  %-10s  %-12s  %-40s  %5d\n",
			e.ConceptID, e.RecordID, truncate(e.Label, 12), truncate(e.Title, 40), e.Files)
	}
	fmt.Fprintf(w, "\n%d versions\n", len(entries))
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes the catalog (or the entries of one record) to
catalog.yaml or catalog.json next to the database.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := catalog.Open(catalogPath(cmd))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	opts := catalogQuery(cmd)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(ctx, opts)
	case "json":
		path, err = store.ExportJSON(ctx, opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Exported to", path)
	return nil
}

// --- shared helpers ---

func catalogPath(cmd *cobra.Command) string {
	path := settings.Fetch.CatalogPath
	overrideString(cmd, "catalog", &path)
	if path == "" {
		path = defaultCatalogPath
	}
	return path
}

func catalogQuery(cmd *cobra.Command) catalog.QueryOptions {
	recordID, _ := cmd.Flags().GetString("record-id")
	conceptID, _ := cmd.Flags().GetString("concept-id")
	return catalog.QueryOptions{RecordID: recordID, ConceptID: conceptID}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("catalog", "", "catalog database (default fetch.catalog_path or "+defaultCatalogPath+")")
	catalogCmd.PersistentFlags().String("record-id", "", "only entries of this record")
	catalogCmd.PersistentFlags().String("concept-id", "", "only entries of this concept")

	catalogListCmd.Flags().Bool("json", false, "output entries as JSON")
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
