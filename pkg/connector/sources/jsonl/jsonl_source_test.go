package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/concord/pkg/compression"
	"github.com/ajitpratap0/concord/pkg/config"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		layout Layout
		want   int
	}{
		{"lines", "{\"a\":1}\n\n{\"a\":2}\n", LayoutAuto, 2},
		{"array", "  [{\"a\":1},{\"a\":2},{\"a\":3}]", LayoutAuto, 3},
		{"empty array", "[]", LayoutArray, 0},
		{"empty", "", LayoutAuto, 0},
		{"forced lines", "{\"a\":1}", LayoutLines, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Decode(strings.NewReader(tc.input), tc.layout, func(map[string]any) error { return nil })
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	noop := func(map[string]any) error { return nil }

	n, err := Decode(strings.NewReader("{\"a\":1}\nnull\n"), LayoutLines, noop)
	assert.Error(t, err)
	assert.Equal(t, 1, n)

	_, err = Decode(strings.NewReader("{\"a\":1}"), LayoutArray, noop)
	assert.ErrorContains(t, err, "expected a json array")

	_, err = Decode(strings.NewReader("{\"a\":"), LayoutLines, noop)
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: compression.Zstd})
	require.NoError(t, err)
	data, err := comp.Compress([]byte(
		`{"id": 1, "dose": 10, "meta": {"site": "A"}}` + "\n" +
			`{"id": 1, "dose": 12.5, "meta": {"site": "A"}, "extra": true}` + "\n" +
			`{"id": 9007199254740993, "dose": null}` + "\n"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "visits.jsonl.zst")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := config.NewConfig("run")
	cfg.Source.Settings["path"] = path
	cfg.Source.Settings["flatten"] = true

	ctx := context.Background()
	src, err := NewJSONLSource(cfg)
	require.NoError(t, err)
	require.NoError(t, src.Open(ctx))
	defer src.Close(ctx)

	tbl, err := src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "visits", tbl.Name())
	assert.Equal(t, []string{"dose", "id", "meta.site", "extra"}, tbl.Columns())
	assert.Equal(t, map[string]any{
		"dose": nil, "id": int64(9007199254740993), "meta.site": nil, "extra": nil,
	}, tbl.Record(2))
	assert.Equal(t, 12.5, tbl.Record(1)["dose"])
	assert.Equal(t, 10.0, tbl.Record(0)["dose"], "mixed numeric column widens to float")
}

func TestUnknownFormat(t *testing.T) {
	cfg := config.NewConfig("run")
	cfg.Source.Settings["format"] = "xml"
	_, err := NewJSONLSource(cfg)
	assert.Error(t, err)
}
