// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package layout

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/pdiddy/zenodo-sync/pkg/types"
)

type conceptPolicy struct{}

func (conceptPolicy) Kind() types.Layout { return types.LayoutConcept }

func (conceptPolicy) RecordDir(rec types.Record) string {
	return Segment(rec.ConceptID)
}

func (p conceptPolicy) VersionDir(rec types.Record, v types.Version) string {
	return filepath.Join(p.RecordDir(rec), versionsDir, Segment(v.Label))
}

// writeDocuments writes a single metadata.json: the projection when a
// template is set, the stripped record otherwise.
func (conceptPolicy) writeDocuments(w *Writer, dir string, raw []byte) error {
	doc, ok := w.projected(raw)
	if !ok {
		var err error
		if doc, err = w.stripped(raw); err != nil {
			return err
		}
	}
	return w.writeJSON(filepath.Join(dir, metadataFile), doc)
}

// metadataPath searches version directories first, then concept
// directories, for a metadata.json whose top-level "id" is id. Directories
// here are named by concept id and label, so the record id is only known
// from the documents themselves.
func (conceptPolicy) metadataPath(w *Writer, id string) (string, error) {
	var candidates []string
	for _, pattern := range []string{
		filepath.Join(w.root, "*", versionsDir, "*", metadataFile),
		filepath.Join(w.root, "*", metadataFile),
	} {
		matches, err := afero.Glob(w.fs, pattern)
		if err != nil {
			return "", fmt.Errorf("searching %s: %w", w.root, err)
		}
		candidates = append(candidates, matches...)
	}

	for _, p := range candidates {
		data, err := afero.ReadFile(w.fs, p)
		if err != nil {
			continue
		}
		if gjson.GetBytes(data, "id").String() == id {
			return p, nil
		}
	}
	return "", fmt.Errorf("record %s not found below %s: the concept layout finds records by the \"id\" field of metadata.json, which a template that omits \"id\" removes", id, w.root)
}

type flatPolicy struct{}

func (flatPolicy) Kind() types.Layout { return types.LayoutFlat }

func (flatPolicy) RecordDir(rec types.Record) string {
	return Segment(rec.ID)
}

func (p flatPolicy) VersionDir(rec types.Record, v types.Version) string {
	return filepath.Join(p.RecordDir(rec), versionsDir, Segment(v.ID))
}

// writeDocuments splits raw into metadata.json and files.json and writes the
// remainder as zenodo.json with include references in their place.
func (flatPolicy) writeDocuments(w *Writer, dir string, raw []byte) error {
	doc, err := w.stripped(raw)
	if err != nil {
		return err
	}

	meta, ok := w.projected(raw)
	if !ok {
		m := gjson.GetBytes(raw, "metadata")
		meta, ok = []byte(m.Raw), m.Exists()
	}
	if ok {
		if err := w.writeJSON(filepath.Join(dir, metadataFile), meta); err != nil {
			return err
		}
		if doc, err = sjson.SetBytes(doc, "metadata", includeRef+metadataFile); err != nil {
			return fmt.Errorf("referencing %s: %w", metadataFile, err)
		}
	}

	if files := gjson.GetBytes(doc, "files"); files.Exists() {
		if err := w.writeJSON(filepath.Join(dir, filesFile), []byte(files.Raw)); err != nil {
			return err
		}
		if doc, err = sjson.SetBytes(doc, "files", includeRef+filesFile); err != nil {
			return fmt.Errorf("referencing %s: %w", filesFile, err)
		}
	}

	return w.writeJSON(filepath.Join(dir, recordFile), doc)
}

func (flatPolicy) metadataPath(w *Writer, id string) (string, error) {
	return filepath.Join(w.root, Segment(id), metadataFile), nil
}
