// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/pdiddy/zenodo-sync/internal/projection"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

const sampleRecord = `{
  "id": "101",
  "conceptrecid": "100",
  "metadata": {"title": "Sea ice extent", "version": "v2", "creators": [{"name": "Ada"}]},
  "files": {"enabled": true, "entries": {"ice.csv": {"key": "ice.csv", "links": {"content": "http://x/ice.csv"}}}},
  "ui": {"publication_date_l10n_long": "May 1, 2024"},
  "swh": {"swhid": "swh:1:dir:abc"},
  "custom_fields": {"code:repo": "x"},
  "stats": {"views": 10}
}`

func sample() (types.Record, types.Version) {
	rec := types.Record{ID: "101", ConceptID: "100", Version: "v2", Raw: []byte(sampleRecord)}
	return rec, rec.AsVersion()
}

func readJSON(t *testing.T, fs afero.Fs, p string) gjson.Result {
	t.Helper()
	data, err := afero.ReadFile(fs, p)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(data), "invalid JSON in %s", p)
	return gjson.ParseBytes(data)
}

func keys(r gjson.Result) []string {
	var out []string
	r.ForEach(func(k, _ gjson.Result) bool {
		out = append(out, k.String())
		return true
	})
	return out
}

func TestPolicyFor(t *testing.T) {
	p, err := PolicyFor("")
	require.NoError(t, err)
	assert.Equal(t, types.LayoutConcept, p.Kind())

	p, err = PolicyFor(types.LayoutFlat)
	require.NoError(t, err)
	assert.Equal(t, types.LayoutFlat, p.Kind())

	_, err = PolicyFor("nested")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown layout")
}

func TestConceptLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "records", types.LayoutConcept)
	require.NoError(t, err)

	rec, v := sample()
	recDir, err := w.WriteRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("records", "100"), recDir)

	verDir, err := w.WriteVersion(rec, v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("records", "100", "versions", "v2"), verDir)
	assert.Equal(t, filepath.Join(verDir, "files"), w.FilesDir(verDir))

	meta := readJSON(t, fs, filepath.Join(recDir, "metadata.json"))
	assert.Equal(t, []string{"id", "conceptrecid", "metadata", "files", "stats"}, keys(meta),
		"volatile sections are stripped and source order kept")

	exists, err := afero.Exists(fs, filepath.Join(verDir, "metadata.json"))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = afero.DirExists(fs, w.FilesDir(verDir))
	require.NoError(t, err)
	assert.False(t, exists, "files directory is created by the materializer only")
}

func TestConceptLayout_Template(t *testing.T) {
	fs := afero.NewMemMapFs()
	tmpl, err := projection.Parse([]byte(`{"metadata": {"version": true, "title": true, "missing": true}, "id": true}`))
	require.NoError(t, err)
	w, err := NewWriter(fs, "out", types.LayoutConcept, WithTemplate(tmpl))
	require.NoError(t, err)

	rec, v := sample()
	verDir, err := w.WriteVersion(rec, v)
	require.NoError(t, err)

	meta := readJSON(t, fs, filepath.Join(verDir, "metadata.json"))
	assert.Equal(t, []string{"metadata", "id"}, keys(meta))
	assert.Equal(t, []string{"version", "title"}, keys(meta.Get("metadata")))
	assert.False(t, meta.Get("metadata.missing").Exists())
}

func TestFlatLayout(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "records", types.LayoutFlat)
	require.NoError(t, err)

	rec, v := sample()
	recDir, err := w.WriteRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("records", "101"), recDir)

	zen := readJSON(t, fs, filepath.Join(recDir, "zenodo.json"))
	assert.Equal(t, "!include metadata.json", zen.Get("metadata").String())
	assert.Equal(t, "!include files.json", zen.Get("files").String())
	assert.False(t, zen.Get("ui").Exists())
	assert.False(t, zen.Get("swh").Exists())
	assert.False(t, zen.Get("custom_fields").Exists())
	assert.Equal(t, []string{"id", "conceptrecid", "metadata", "files", "stats"}, keys(zen))

	meta := readJSON(t, fs, filepath.Join(recDir, "metadata.json"))
	assert.Equal(t, "Sea ice extent", meta.Get("title").String())

	files := readJSON(t, fs, filepath.Join(recDir, "files.json"))
	assert.True(t, files.Get("enabled").Bool())

	verDir, err := w.WriteVersion(rec, v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("records", "101", "versions", "101"), verDir)
}

func TestFlatLayout_NoSubDocuments(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "records", types.LayoutFlat, WithStripSections(nil))
	require.NoError(t, err)

	rec := types.Record{ID: "7", ConceptID: "7", Raw: []byte(`{"id": "7", "ui": {"x": 1}}`)}
	dir, err := w.WriteRecord(rec)
	require.NoError(t, err)

	zen := readJSON(t, fs, filepath.Join(dir, "zenodo.json"))
	assert.True(t, zen.Get("ui").Exists(), "strip list was replaced by an empty one")
	for _, name := range []string{"metadata.json", "files.json"} {
		exists, err := afero.Exists(fs, filepath.Join(dir, name))
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
}

func TestWriter_StableFormattingAndIdempotence(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "records", types.LayoutConcept)
	require.NoError(t, err)

	rec, v := sample()
	dir, err := w.WriteVersion(rec, v)
	require.NoError(t, err)
	first, err := afero.ReadFile(fs, filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)

	dir2, err := w.WriteVersion(rec, v)
	require.NoError(t, err)
	assert.Equal(t, dir, dir2)
	second, err := afero.ReadFile(fs, filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(string(first), "{\n  \""), "two-space indentation")

	entries, err := afero.ReadDir(fs, filepath.Join("records", "100", "versions"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriter_OneElementPerLine(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "records", types.LayoutConcept)
	require.NoError(t, err)

	raw := `{"id":"7","conceptrecid":"6","metadata":{"keywords":["a","b"],"empty":[],"none":{}}}`
	rec := types.Record{ID: "7", ConceptID: "6", Raw: []byte(raw)}
	dir, err := w.WriteRecord(rec)
	require.NoError(t, err)

	got, err := afero.ReadFile(fs, filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	want := `{
  "id": "7",
  "conceptrecid": "6",
  "metadata": {
    "keywords": [
      "a",
      "b"
    ],
    "empty": [],
    "none": {}
  }
}
`
	assert.Equal(t, want, string(got))
}

func TestSegment(t *testing.T) {
	tests := []struct{ in, want string }{
		{"v1.0", "v1.0"},
		{"1.0/beta", "1.0_beta"},
		{`a\b`, "a_b"},
		{"..", "___"},
		{".", "__"},
		{"", "_"},
		{"  spaced ", "spaced"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Segment(tt.in), tt.in)
	}
}

func TestFilePath(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"data.csv", filepath.Join("d", "data.csv"), false},
		{"../../etc/passwd", filepath.Join("d", "passwd"), false},
		{`sub\file.txt`, filepath.Join("d", "file.txt"), false},
		{"..", "", true},
		{"", "", true},
		{"/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilePath("d", tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetadataPath_Flat(t *testing.T) {
	w, err := NewWriter(afero.NewMemMapFs(), "records", types.LayoutFlat)
	require.NoError(t, err)
	p, err := w.MetadataPath("55")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("records", "55", "metadata.json"), p)
}

func TestMetadataPath_Concept(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "records", types.LayoutConcept)
	require.NoError(t, err)
	rec, v := sample()
	_, err = w.WriteRecord(rec)
	require.NoError(t, err)
	_, err = w.WriteVersion(rec, v)
	require.NoError(t, err)

	p, err := w.MetadataPath(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("records", "100", "versions", "v2", "metadata.json"), p)

	_, err = w.MetadataPath("404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 404 not found")
}

func TestMetadataPath_ConceptRecordOnly(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewWriter(fs, "records", types.LayoutConcept)
	require.NoError(t, err)
	rec, _ := sample()
	_, err = w.WriteRecord(rec)
	require.NoError(t, err)

	p, err := w.MetadataPath(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("records", "100", "metadata.json"), p)
}

func TestMetadataPath_ConceptTemplateWithoutID(t *testing.T) {
	tmpl, err := projection.Parse([]byte(`{"metadata": {"title": true}}`))
	require.NoError(t, err)
	w, err := NewWriter(afero.NewMemMapFs(), "records", types.LayoutConcept, WithTemplate(tmpl))
	require.NoError(t, err)
	rec, v := sample()
	_, err = w.WriteVersion(rec, v)
	require.NoError(t, err)

	_, err = w.MetadataPath(rec.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"id"`)
}
