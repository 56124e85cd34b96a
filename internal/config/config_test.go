// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/zenodo-sync/internal/secrets"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ZENODO_BASE_URL", "ZENODO_ACCESS_TOKEN", "ZENODO_COMMUNITY_ID",
		"ZENODO_SYNC_ZENODO_BASE_URL", "ZENODO_SYNC_ZENODO_ACCESS_TOKEN",
		"ZENODO_SYNC_ZENODO_COMMUNITY_ID", "ZENODO_SYNC_FETCH_OUTPUT_DIR",
		"ZENODO_SYNC_FETCH_LAYOUT", "ZENODO_SYNC_ZENODO_TIMEOUT",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zenodo-sync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDecode_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Decode(New())
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Zenodo.BaseURL)
	assert.Equal(t, DefaultPageSize, cfg.Zenodo.PageSize)
	assert.Equal(t, DefaultTimeout, cfg.Zenodo.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.Zenodo.UserAgent)
	assert.Equal(t, DefaultOutputDir, cfg.Fetch.OutputDir)
	assert.Equal(t, types.LayoutConcept, cfg.Fetch.Layout)
	assert.Equal(t, []string{"ui", "swh", "custom_fields"}, cfg.Fetch.StripSections)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Fetch.DryRun)
}

func TestReadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
zenodo:
  base_url: https://sandbox.zenodo.org/api
  community_id: ecfa
  page_size: 25
  timeout: 5s
fetch:
  output_dir: mirror
  layout: flat
  strip_sections: [ui]
log:
  level: debug
`)
	v := New()
	used, err := ReadFile(v, path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	cfg, err := Decode(v)
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.zenodo.org/api", cfg.Zenodo.BaseURL)
	assert.Equal(t, "ecfa", cfg.Zenodo.CommunityID)
	assert.Equal(t, 25, cfg.Zenodo.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Zenodo.Timeout)
	assert.Equal(t, "mirror", cfg.Fetch.OutputDir)
	assert.Equal(t, types.LayoutFlat, cfg.Fetch.Layout)
	assert.Equal(t, []string{"ui"}, cfg.Fetch.StripSections)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestReadFile_ExplicitMissing(t *testing.T) {
	_, err := ReadFile(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "zenodo:\n  community_id: from-file\n")
	t.Setenv("ZENODO_COMMUNITY_ID", "from-env")
	t.Setenv("ZENODO_BASE_URL", "http://localhost:5000/api")
	t.Setenv("ZENODO_SYNC_FETCH_OUTPUT_DIR", "elsewhere")
	t.Setenv("ZENODO_SYNC_ZENODO_TIMEOUT", "90s")

	v := New()
	_, err := ReadFile(v, path)
	require.NoError(t, err)
	cfg, err := Decode(v)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Zenodo.CommunityID)
	assert.Equal(t, "http://localhost:5000/api", cfg.Zenodo.BaseURL)
	assert.Equal(t, "elsewhere", cfg.Fetch.OutputDir)
	assert.Equal(t, 90*time.Second, cfg.Zenodo.Timeout)
}

func TestEnvOverrides_PrefixedWinsOverShort(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENODO_ACCESS_TOKEN", "short")
	t.Setenv("ZENODO_SYNC_ZENODO_ACCESS_TOKEN", "prefixed")

	cfg, err := Decode(New())
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Zenodo.AccessToken)
}

func TestLoadDotEnv(t *testing.T) {
	const name = "ZENODO_SYNC_TEST_DOTENV_VALUE"
	t.Cleanup(func() { os.Unsetenv(name) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(name+"=loaded\n"), 0o644))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv(name))

	err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestApplySecrets(t *testing.T) {
	loaded := map[string]string{secrets.AccessTokenKey: "from-secrets"}

	cfg := types.Config{}
	ApplySecrets(&cfg, loaded)
	assert.Equal(t, "from-secrets", cfg.Zenodo.AccessToken)

	cfg = types.Config{Zenodo: types.ZenodoConfig{AccessToken: "configured"}}
	ApplySecrets(&cfg, loaded)
	assert.Equal(t, "configured", cfg.Zenodo.AccessToken)
}

func validConfig() types.Config {
	return types.Config{
		Zenodo: types.ZenodoConfig{BaseURL: DefaultBaseURL, PageSize: 10, AccessToken: "tok", CommunityID: "c"},
		Fetch:  types.FetchConfig{OutputDir: "records", Layout: types.LayoutConcept},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*types.Config)
		errMsg string
	}{
		{name: "valid", modify: func(*types.Config) {}},
		{name: "missing base URL", modify: func(c *types.Config) { c.Zenodo.BaseURL = " " }, errMsg: "base URL"},
		{name: "zero page size", modify: func(c *types.Config) { c.Zenodo.PageSize = 0 }, errMsg: "page size"},
		{name: "unknown layout", modify: func(c *types.Config) { c.Fetch.Layout = "nested" }, errMsg: "unknown layout"},
		{name: "empty layout selects default", modify: func(c *types.Config) { c.Fetch.Layout = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			err := Validate(cfg)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateFetch(t *testing.T) {
	require.NoError(t, ValidateFetch(validConfig()))

	cfg := validConfig()
	cfg.Zenodo.CommunityID = ""
	err := ValidateFetch(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "community id")

	cfg = validConfig()
	cfg.Fetch.OutputDir = ""
	require.Error(t, ValidateFetch(cfg))
}

func TestMasked(t *testing.T) {
	cfg := validConfig()
	cfg.Fetch.StripSections = []string{"ui"}

	masked := Masked(cfg)
	assert.Equal(t, "************", masked.Zenodo.AccessToken)
	assert.Equal(t, "tok", cfg.Zenodo.AccessToken)

	masked.Fetch.StripSections[0] = "changed"
	assert.Equal(t, "ui", cfg.Fetch.StripSections[0])

	cfg.Zenodo.AccessToken = ""
	assert.Empty(t, Masked(cfg).Zenodo.AccessToken)
}
