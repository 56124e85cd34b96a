// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package projection

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func apply(t *testing.T, tmpl, data string) (string, bool) {
	t.Helper()
	tp, err := Parse([]byte(tmpl))
	require.NoError(t, err)
	out, ok := tp.Apply([]byte(data))
	return string(out), ok
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		tmpl   string
		data   string
		want   string
		wantOK bool
	}{
		{
			name:   "missing nested key is omitted",
			tmpl:   `{"a": true, "b": {"c": true}}`,
			data:   `{"a": 1}`,
			want:   `{"a":1}`,
			wantOK: true,
		},
		{
			name:   "template order wins over data order",
			tmpl:   `{"b": true, "a": true}`,
			data:   `{"a": 1, "b": 2}`,
			want:   `{"b":2,"a":1}`,
			wantOK: true,
		},
		{
			name:   "true copies subtree verbatim",
			tmpl:   `{"metadata": true}`,
			data:   `{"metadata": {"z": [1, 2], "a": "x"}, "ui": {}}`,
			want:   `{"metadata":{"z": [1, 2], "a": "x"}}`,
			wantOK: true,
		},
		{
			name:   "single element list repeats per item",
			tmpl:   `{"creators": [{"name": true}]}`,
			data:   `{"creators": [{"name": "Ada", "orcid": "0"}, {"name": "Grace"}, {"orcid": "1"}]}`,
			want:   `{"creators":[{"name":"Ada"},{"name":"Grace"},{}]}`,
			wantOK: true,
		},
		{
			name:   "list of scalars",
			tmpl:   `{"keywords": [true]}`,
			data:   `{"keywords": ["ocean", "ice"]}`,
			want:   `{"keywords":["ocean","ice"]}`,
			wantOK: true,
		},
		{
			name:   "type mismatch drops the key",
			tmpl:   `{"a": {"b": true}, "c": [true]}`,
			data:   `{"a": "scalar", "c": {"not": "a list"}}`,
			want:   `{}`,
			wantOK: true,
		},
		{
			name:   "false and multi element lists yield nothing",
			tmpl:   `{"a": false, "b": [true, true], "c": true}`,
			data:   `{"a": 1, "b": [1], "c": 3}`,
			want:   `{"c":3}`,
			wantOK: true,
		},
		{
			name:   "explicit null in data is copied",
			tmpl:   `{"a": true}`,
			data:   `{"a": null}`,
			want:   `{"a":null}`,
			wantOK: true,
		},
		{
			name:   "keys with path characters",
			tmpl:   `{"a.b": true, "c*": true}`,
			data:   `{"a.b": 1, "c*": 2, "a": {"b": 3}}`,
			want:   `{"a.b":1,"c*":2}`,
			wantOK: true,
		},
		{
			name:   "object template over scalar root",
			tmpl:   `{"a": true}`,
			data:   `42`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := apply(t, tt.tmpl, tt.data)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
				assert.True(t, gjson.Valid(got))
			}
		})
	}
}

func TestApply_OmitsAbsentKeyEntirely(t *testing.T) {
	got, ok := apply(t, `{"a": true, "b": {"c": true}}`, `{"a": 1}`)
	require.True(t, ok)
	assert.False(t, gjson.Get(got, "b").Exists())
	assert.NotContains(t, got, "null")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"a": tru`))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config/metadata_template.json", []byte(`{"metadata": {"title": true}}`), 0o644))

	tp, err := Load(fs, "config/metadata_template.json")
	require.NoError(t, err)
	out, ok := tp.Apply([]byte(`{"metadata": {"title": "T", "version": "1"}}`))
	require.True(t, ok)
	assert.Equal(t, `{"metadata":{"title":"T"}}`, string(out))

	_, err = Load(fs, "config/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.json")
}
