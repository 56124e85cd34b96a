// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// UnknownVersion labels a version whose metadata carries no version string.
const UnknownVersion = "unknown_version"

// FileEntry is one downloadable attachment of a version.
type FileEntry struct {
	// Name is the file name as published (e.g. "data.csv").
	Name string `json:"name" yaml:"name"`

	// DownloadURL is the link the binary content is fetched from.
	DownloadURL string `json:"download_url" yaml:"download_url"`
}

// Record is a read-only snapshot of a remote record.
type Record struct {
	// ID is the record identifier.
	ID string `json:"id" yaml:"id"`

	// ConceptID identifies the version group the record belongs to.
	ConceptID string `json:"concept_id" yaml:"concept_id"`

	// Title is metadata.title, kept for log lines and the catalog.
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	// Version is metadata.version, empty when the record carries none.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Raw is the record document exactly as the server returned it.
	Raw json.RawMessage `json:"raw" yaml:"-"`

	// Files lists the record's attachments in document order.
	Files []FileEntry `json:"files,omitempty" yaml:"files,omitempty"`
}

// AsVersion returns the record as a version of itself. Records whose
// version history is empty are traversed this way.
func (r Record) AsVersion() Version {
	label := r.Version
	if label == "" {
		label = UnknownVersion
	}
	return Version{ID: r.ID, Label: label, Raw: r.Raw, Files: r.Files}
}

// Version is one immutable snapshot within a record's version history.
type Version struct {
	ID    string          `json:"id" yaml:"id"`
	Label string          `json:"label" yaml:"label"`
	Raw   json.RawMessage `json:"raw" yaml:"-"`
	Files []FileEntry     `json:"files,omitempty" yaml:"files,omitempty"`
}

// RunStats accumulates counters for a single fetch run. It lives only for
// the duration of the run and is logged at the end.
type RunStats struct {
	Records       int `json:"records"`
	Versions      int `json:"versions"`
	Files         int `json:"files"`
	FailedRecords int `json:"failed_records"`
	FailedFiles   int `json:"failed_files"`
}

// HasFailures reports whether any record or file could not be processed.
func (s RunStats) HasFailures() bool {
	return s.FailedRecords > 0 || s.FailedFiles > 0
}

// CatalogEntry describes one mirrored version in the local catalog.
type CatalogEntry struct {
	RecordID  string `json:"record_id" yaml:"record_id"`
	ConceptID string `json:"concept_id" yaml:"concept_id"`
	Title     string `json:"title" yaml:"title"`
	VersionID string `json:"version_id" yaml:"version_id"`
	Label     string `json:"label" yaml:"label"`
	Dir       string `json:"dir" yaml:"dir"`
	Files     int    `json:"files" yaml:"files"`
}
