// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Layout names an on-disk directory scheme for mirrored records.
type Layout string

const (
	// LayoutConcept groups versions under their concept id:
	// {concept_id}/versions/{version_label}/.
	LayoutConcept Layout = "concept"

	// LayoutFlat keys directories by record id and splits each record into
	// zenodo.json, metadata.json, and files.json.
	LayoutFlat Layout = "flat"
)

// ZenodoConfig holds the remote API settings.
type ZenodoConfig struct {
	// BaseURL is the API root (e.g. "https://zenodo.org/api").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// AccessToken is sent as a bearer token when non-empty. Without it only
	// public records are visible.
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty" mapstructure:"access_token"`

	// CommunityID selects the community whose records fetch mirrors.
	CommunityID string `json:"community_id" yaml:"community_id" mapstructure:"community_id"`

	// PageSize is the number of records requested per page (default 1000).
	PageSize int `json:"page_size" yaml:"page_size" mapstructure:"page_size"`

	// Timeout is the HTTP request timeout (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// FetchConfig holds settings for the fetch traversal and the local tree.
type FetchConfig struct {
	// OutputDir is the root of the local mirror (default "./records").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// DryRun writes directories and metadata but skips file downloads.
	DryRun bool `json:"dry_run" yaml:"dry_run" mapstructure:"dry_run"`

	// TemplatePath points at an optional metadata projection template.
	TemplatePath string `json:"template_path,omitempty" yaml:"template_path,omitempty" mapstructure:"template_path"`

	// Layout selects the directory scheme: concept or flat.
	Layout Layout `json:"layout" yaml:"layout" mapstructure:"layout"`

	// StripSections lists top-level record sections dropped before writing.
	StripSections []string `json:"strip_sections" yaml:"strip_sections" mapstructure:"strip_sections"`

	// CatalogPath is an optional SQLite database indexing mirrored versions.
	CatalogPath string `json:"catalog_path,omitempty" yaml:"catalog_path,omitempty" mapstructure:"catalog_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// File is an optional log file that receives JSON lines in addition to stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`

	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Config groups all settings for a zenodo-sync run.
type Config struct {
	Zenodo ZenodoConfig `json:"zenodo" yaml:"zenodo" mapstructure:"zenodo"`
	Fetch  FetchConfig  `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Log    LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}
