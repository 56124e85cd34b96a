// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package layout materializes records and versions as a directory tree.
//
// Two policies are supported. The concept layout groups versions under the
// record's concept id:
//
//	{concept_id}/metadata.json
//	{concept_id}/versions/{version_label}/metadata.json
//	{concept_id}/versions/{version_label}/files/
//
// The flat layout keys directories by record id and splits every document
// into zenodo.json, metadata.json, and files.json:
//
//	{record_id}/zenodo.json
//	{record_id}/versions/{version_id}/zenodo.json
//	{record_id}/versions/{version_id}/files/
//
// All JSON is written with two-space indentation and keeps the key order of
// its source (or of the projection template when one is configured).
package layout

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/pdiddy/zenodo-sync/internal/projection"
	"github.com/pdiddy/zenodo-sync/pkg/types"
)

const (
	versionsDir  = "versions"
	filesDir     = "files"
	metadataFile = "metadata.json"
	filesFile    = "files.json"
	recordFile   = "zenodo.json"
	includeRef   = "!include "
)

// DefaultStripSections are the top-level record sections that change
// between fetches or only matter to the web UI.
var DefaultStripSections = []string{"ui", "swh", "custom_fields"}

// jsonStyle puts every array element and object member on its own line.
// A width of 1 keeps pretty from joining short arrays onto one line.
var jsonStyle = &pretty.Options{Width: 1, Prefix: "", Indent: "  ", SortKeys: false}

// Policy decides where records and versions live and which documents they
// produce.
type Policy interface {
	Kind() types.Layout
	RecordDir(rec types.Record) string
	VersionDir(rec types.Record, v types.Version) string
	writeDocuments(w *Writer, dir string, raw []byte) error
	metadataPath(w *Writer, id string) (string, error)
}

// PolicyFor returns the policy for kind. The empty kind selects the
// concept layout.
func PolicyFor(kind types.Layout) (Policy, error) {
	switch kind {
	case types.LayoutConcept, "":
		return conceptPolicy{}, nil
	case types.LayoutFlat:
		return flatPolicy{}, nil
	}
	return nil, fmt.Errorf("unknown layout %q: use %q or %q", kind, types.LayoutConcept, types.LayoutFlat)
}

// Writer creates directories and metadata documents below a root directory.
type Writer struct {
	fs       afero.Fs
	root     string
	policy   Policy
	template *projection.Template
	strip    []string
}

// Option configures a Writer.
type Option func(*Writer)

// WithTemplate makes metadata.json the template projection of the raw record.
func WithTemplate(t *projection.Template) Option {
	return func(w *Writer) { w.template = t }
}

// WithStripSections replaces DefaultStripSections.
func WithStripSections(sections []string) Option {
	return func(w *Writer) { w.strip = sections }
}

// NewWriter returns a writer rooted at root using the layout named by kind.
func NewWriter(fs afero.Fs, root string, kind types.Layout, opts ...Option) (*Writer, error) {
	policy, err := PolicyFor(kind)
	if err != nil {
		return nil, err
	}
	w := &Writer{fs: fs, root: root, policy: policy, strip: DefaultStripSections}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Kind returns the configured layout.
func (w *Writer) Kind() types.Layout { return w.policy.Kind() }

// WriteRecord writes the record-level documents and returns the record
// directory.
func (w *Writer) WriteRecord(rec types.Record) (string, error) {
	dir := filepath.Join(w.root, w.policy.RecordDir(rec))
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := w.policy.writeDocuments(w, dir, rec.Raw); err != nil {
		return "", fmt.Errorf("writing record %s: %w", rec.ID, err)
	}
	return dir, nil
}

// WriteVersion writes the documents of v below rec and returns the version
// directory. It does not create the files directory.
func (w *Writer) WriteVersion(rec types.Record, v types.Version) (string, error) {
	dir := filepath.Join(w.root, w.policy.VersionDir(rec, v))
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := w.policy.writeDocuments(w, dir, v.Raw); err != nil {
		return "", fmt.Errorf("writing version %s: %w", v.ID, err)
	}
	return dir, nil
}

// FilesDir returns the binaries directory of a version directory.
func (w *Writer) FilesDir(versionDir string) string {
	return filepath.Join(versionDir, filesDir)
}

// MetadataPath locates the metadata.json written for record id.
func (w *Writer) MetadataPath(id string) (string, error) {
	return w.policy.metadataPath(w, id)
}

// FilePath joins dir with the base name of a remote file name. Names that
// reduce to nothing or to a parent reference are rejected.
func FilePath(dir, name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("unsafe file name %q", name)
	}
	return filepath.Join(dir, base), nil
}

// Segment turns a remote identifier or label into a single path element.
func Segment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	switch s {
	case "", ".", "..":
		return strings.Repeat("_", len(s)+1)
	}
	return s
}

// projected returns the template projection of raw. The boolean is false
// when no template is configured. A projection that yields no value becomes
// an empty object so every version still gets a metadata.json.
func (w *Writer) projected(raw []byte) ([]byte, bool) {
	if w.template == nil {
		return nil, false
	}
	out, ok := w.template.Apply(raw)
	if !ok {
		return []byte("{}"), true
	}
	return out, true
}

// stripped removes the configured volatile sections from raw.
func (w *Writer) stripped(raw []byte) ([]byte, error) {
	out := raw
	for _, section := range w.strip {
		if !gjson.GetBytes(out, escapeKey(section)).Exists() {
			continue
		}
		var err error
		out, err = sjson.DeleteBytes(out, escapeKey(section))
		if err != nil {
			return nil, fmt.Errorf("stripping %s: %w", section, err)
		}
	}
	return out, nil
}

func (w *Writer) writeJSON(p string, raw []byte) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("%s: document is not valid JSON", p)
	}
	if err := afero.WriteFile(w.fs, p, pretty.PrettyOptions(raw, jsonStyle), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}

// escapeKey escapes gjson/sjson path syntax in a literal top-level key.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
