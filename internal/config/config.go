// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves zenodo-sync settings from defaults, a YAML config
// file, a .env file, and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/zenodo-sync/internal/layout"
	"github.com/pdiddy/zenodo-sync/internal/secrets"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

const (
	// Name is the config file base name, without extension.
	Name = "zenodo-sync"

	// EnvPrefix prefixes the environment override of every key, e.g.
	// ZENODO_SYNC_FETCH_OUTPUT_DIR.
	EnvPrefix = "ZENODO_SYNC"

	DefaultBaseURL   = "https://zenodo.org/api"
	DefaultPageSize  = 1000
	DefaultTimeout   = 60 * time.Second
	DefaultOutputDir = "./records"
	DefaultUserAgent = "zenodo-sync/0.1"

	maskedSecret = "************"
)

// shortEnv lists the unprefixed variables the original tool read.
var shortEnv = map[string]string{
	"zenodo.base_url":     "ZENODO_BASE_URL",
	"zenodo.access_token": "ZENODO_ACCESS_TOKEN",
	"zenodo.community_id": "ZENODO_COMMUNITY_ID",
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("zenodo.base_url", DefaultBaseURL)
	v.SetDefault("zenodo.access_token", "")
	v.SetDefault("zenodo.community_id", "")
	v.SetDefault("zenodo.page_size", DefaultPageSize)
	v.SetDefault("zenodo.timeout", DefaultTimeout)
	v.SetDefault("zenodo.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.output_dir", DefaultOutputDir)
	v.SetDefault("fetch.dry_run", false)
	v.SetDefault("fetch.template_path", "")
	v.SetDefault("fetch.layout", string(types.LayoutConcept))
	v.SetDefault("fetch.strip_sections", layout.DefaultStripSections)
	v.SetDefault("fetch.catalog_path", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, short := range shortEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, prefixed, short)
	}
	return v
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. Callers treat a returned error as a warning;
// it runs before the logger exists so that .env can configure logging.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ReadFile reads the config file. An explicit path must exist; otherwise
// zenodo-sync.yaml is searched in the working directory and in
// ~/.config/zenodo-sync/, and a missing file is not an error. It returns the
// file used, or "".
func ReadFile(v *viper.Viper, explicit string) (string, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Decode unmarshals the resolved settings.
func Decode(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// ApplySecrets fills the access token from the secrets directory when no
// other source configured one.
func ApplySecrets(cfg *types.Config, loaded map[string]string) {
	if cfg.Zenodo.AccessToken != "" {
		return
	}
	if tok, ok := loaded[secrets.AccessTokenKey]; ok {
		cfg.Zenodo.AccessToken = tok
	}
}

// Validate checks settings every command needs. A missing token is not an
// error; the client warns about it.
func Validate(cfg types.Config) error {
	if strings.TrimSpace(cfg.Zenodo.BaseURL) == "" {
		return errors.New("base URL for the Zenodo API is not defined (set zenodo.base_url or ZENODO_BASE_URL)")
	}
	if cfg.Zenodo.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", cfg.Zenodo.PageSize)
	}
	if _, err := layout.PolicyFor(cfg.Fetch.Layout); err != nil {
		return err
	}
	return nil
}

// ValidateFetch adds the checks specific to fetch.
func ValidateFetch(cfg types.Config) error {
	if strings.TrimSpace(cfg.Zenodo.CommunityID) == "" {
		return errors.New("community id is not defined (set zenodo.community_id, ZENODO_COMMUNITY_ID, or --community-id)")
	}
	if strings.TrimSpace(cfg.Fetch.OutputDir) == "" {
		return errors.New("output directory is not defined")
	}
	return nil
}

// Masked returns a copy of cfg safe to log.
func Masked(cfg types.Config) types.Config {
	if cfg.Zenodo.AccessToken != "" {
		cfg.Zenodo.AccessToken = maskedSecret
	}
	cfg.Fetch.StripSections = slices.Clone(cfg.Fetch.StripSections)
	return cfg
}
