// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package projection derives reduced metadata documents from raw records
// using a template that mirrors the shape of interest.
//
// A template leaf of true copies the data value verbatim. An object
// template keeps only keys present in both template and data, in template
// order. A single-element array template projects every item of a data
// array through that element. Anything else produces no value, and the
// enclosing key is omitted rather than written as null.
package projection

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

// Template is a parsed projection template.
type Template struct {
	root gjson.Result
}

// Parse validates data as JSON and returns it as a template.
func Parse(data []byte) (*Template, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("template is not valid JSON")
	}
	return &Template{root: gjson.ParseBytes(data)}, nil
}

// Load reads and parses the template file at path.
func Load(fs afero.Fs, path string) (*Template, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata template %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing metadata template %s: %w", path, err)
	}
	return t, nil
}

// Apply projects the JSON document data through the template. The boolean
// is false when the projection yields no value at all.
func (t *Template) Apply(data []byte) ([]byte, bool) {
	out, ok := Project(t.root, gjson.ParseBytes(data))
	if !ok {
		return nil, false
	}
	return []byte(out), true
}

// Project applies tmpl to data and returns the raw JSON of the result.
func Project(tmpl, data gjson.Result) (string, bool) {
	if !data.Exists() {
		return "", false
	}
	switch {
	case tmpl.Type == gjson.True:
		return data.Raw, true
	case tmpl.IsObject():
		if !data.IsObject() {
			return "", false
		}
		return projectObject(tmpl, data), true
	case tmpl.IsArray():
		elems := tmpl.Array()
		if len(elems) != 1 || !data.IsArray() {
			return "", false
		}
		return projectArray(elems[0], data), true
	}
	return "", false
}

func projectObject(tmpl, data gjson.Result) string {
	// Index data keys once; gjson paths would treat dots and wildcards in
	// keys as syntax.
	values := make(map[string]gjson.Result)
	data.ForEach(func(k, v gjson.Result) bool {
		values[k.String()] = v
		return true
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	tmpl.ForEach(func(k, sub gjson.Result) bool {
		v, ok := values[k.String()]
		if !ok {
			return true
		}
		raw, ok := Project(sub, v)
		if !ok {
			return true
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(k.String())
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(raw)
		n++
		return true
	})
	buf.WriteByte('}')
	return buf.String()
}

func projectArray(elem, data gjson.Result) string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	data.ForEach(func(_, item gjson.Result) bool {
		raw, ok := Project(elem, item)
		if !ok {
			return true
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(raw)
		n++
		return true
	})
	buf.WriteByte(']')
	return buf.String()
}
