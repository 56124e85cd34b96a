// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zenodo

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/pdiddy/zenodo-sync/pkg/types"
)

// parseHits returns the records listed under hits.hits of a search or
// versions response, in server order.
func parseHits(data []byte) []types.Record {
	hits := gjson.GetBytes(data, "hits.hits")
	if !hits.IsArray() {
		return nil
	}
	var records []types.Record
	hits.ForEach(func(_, hit gjson.Result) bool {
		records = append(records, parseRecord([]byte(hit.Raw)))
		return true
	})
	return records
}

// parseRecord extracts identifiers, title, and file entries from a raw
// record document. The raw bytes are kept untouched.
func parseRecord(data []byte) types.Record {
	doc := gjson.ParseBytes(data)
	r := types.Record{
		ID:      doc.Get("id").String(),
		Title:   doc.Get("metadata.title").String(),
		Version: doc.Get("metadata.version").String(),
		Raw:     json.RawMessage(data),
		Files:   normalizeFiles(doc),
	}
	r.ConceptID = firstNonEmpty(
		doc.Get("conceptrecid").String(),
		doc.Get("parent.id").String(),
		r.ID,
	)
	return r
}

// normalizeFiles turns either files shape into an ordered entry list:
// InvenioRDM's {"files": {"entries": {name: {...}}}} mapping, or the
// legacy {"files": [{...}]} list. The mapping wins when both are present.
func normalizeFiles(doc gjson.Result) []types.FileEntry {
	var entries []types.FileEntry

	if m := doc.Get("files.entries"); m.IsObject() {
		m.ForEach(func(key, e gjson.Result) bool {
			entries = append(entries, fileEntry(key.String(), e))
			return true
		})
		return entries
	}

	if l := doc.Get("files"); l.IsArray() {
		l.ForEach(func(_, e gjson.Result) bool {
			entries = append(entries, fileEntry("", e))
			return true
		})
	}
	return entries
}

func fileEntry(key string, e gjson.Result) types.FileEntry {
	return types.FileEntry{
		Name: firstNonEmpty(e.Get("key").String(), e.Get("filename").String(), key),
		DownloadURL: firstNonEmpty(
			e.Get("links.content").String(),
			e.Get("links.download").String(),
			e.Get("links.self").String(),
		),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
