package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildArchiveZipLayout(t *testing.T) {
	now := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	tables := map[string][]map[string]interface{}{
		"products": {
			{"id": "p1", "title": "Water Softener Pro", "price": 499.0, "tags": []byte(`["softener"]`)},
			{"id": "p2", "title": "Filter Cartridge", "price": 29.9},
		},
		"keyword_sets":       {},
		"generation_records": {{"id": "g1", "kind": "personas"}},
		"options":            {{"name": "configs", "value": "{}"}},
	}

	buf, err := buildArchiveZip(tables, "mysql", now)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	byName := map[string]*zip.File{}
	for _, f := range zr.File {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "rankforge/db/products.bson")
	require.Contains(t, byName, "rankforge/db/keyword_sets.bson")
	require.Contains(t, byName, "rankforge/db/generation_records.bson")
	require.Contains(t, byName, "rankforge/db/options.bson")
	require.Contains(t, byName, "rankforge/manifest.json")

	rc, err := byName["rankforge/manifest.json"].Open()
	require.NoError(t, err)
	manifestRaw, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	var m manifest
	require.NoError(t, json.Unmarshal(manifestRaw, &m))
	assert.Equal(t, "rankforge-bson", m.Format)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, "mysql", m.Engine)
	assert.Equal(t, []string{"products", "keyword_sets", "generation_records", "options"}, m.Tables)
	assert.Equal(t, now, m.CreatedAt)

	rc, err = byName["rankforge/db/products.bson"].Open()
	require.NoError(t, err)
	productsRaw, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	rows, err := decodeBSONRows(productsRaw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Water Softener Pro", rows[0]["title"])
	assert.Equal(t, `["softener"]`, rows[0]["tags"], "byte slices are archived as strings")
}

func TestBuildArchiveZipSkipsMissingTables(t *testing.T) {
	buf, err := buildArchiveZip(map[string][]map[string]interface{}{
		"products": {{"id": "p1"}},
	}, "mysql", time.Now())
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"rankforge/db/products.bson", "rankforge/manifest.json"}, names)
}

func TestBSONRowsRoundTrip(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": "a", "count": int64(3)},
		{"id": "b", "nested": map[string]interface{}{"k": "v"}},
	}

	payload, err := encodeBSONRows(rows)
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	decoded, err := decodeBSONRows(payload)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	assert.Equal(t, "a", decoded[0]["id"])
	assert.Equal(t, "b", decoded[1]["id"])

	empty, err := encodeBSONRows(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	decoded, err = decodeBSONRows(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)

	_, err = decodeBSONRows([]byte{1, 2})
	assert.Error(t, err)
}

func TestRenderObjectKey(t *testing.T) {
	now := time.Date(2026, 8, 25, 9, 5, 7, 0, time.UTC)

	assert.Equal(t, "archives/2026/08/archive-x.zip",
		renderObjectKey("", "archive-x.zip", now))
	assert.Equal(t, "archives/2026/08/archive-20260825-090507.zip",
		renderObjectKey("archives/{Y}/{m}/archive-{Y}{m}{d}-{h}{i}{s}.zip", "ignored.zip", now))
	assert.Equal(t, "exports/archive-x.zip",
		renderObjectKey("/exports//{filename}", "archive-x.zip", now))
	assert.Equal(t, "archives/2026/08/archive-x.zip",
		renderObjectKey("   ", "archive-x.zip", now), "blank template falls back to the default template")
}

func TestServiceFilesystemLifecycle(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(nil, nil, dir, nil)

	assert.Empty(t, svc.List())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "archive-2026-08-25T10-00-00.zip"), []byte("zipdata"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	items := svc.List()
	require.Len(t, items, 1)
	assert.Equal(t, "archive-2026-08-25T10-00-00.zip", items[0].Filename)
	assert.Equal(t, "7 B", items[0].Size)

	data, err := svc.Read("archive-2026-08-25T10-00-00.zip")
	require.NoError(t, err)
	assert.Equal(t, []byte("zipdata"), data)

	_, err = svc.Read("../outside.zip")
	assert.ErrorIs(t, err, errArchiveNotFound, "path segments are stripped to the base name")

	_, err = svc.Read("no-extension")
	assert.EqualError(t, err, "invalid archive filename")

	require.NoError(t, svc.Delete("archive-2026-08-25T10-00-00.zip"))
	assert.ErrorIs(t, svc.Delete("archive-2026-08-25T10-00-00.zip"), errArchiveNotFound)
	assert.Empty(t, svc.List())
}

func TestNormalizeObjectKey(t *testing.T) {
	assert.Equal(t, "a/b/c.zip", normalizeObjectKey(`\a\b\c.zip`))
	assert.Equal(t, "a/b", normalizeObjectKey("/a//b"))
	assert.Equal(t, "", normalizeObjectKey("  "))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.00 KB", formatSize(1024))
	assert.Equal(t, "2.50 MB", formatSize(5<<19))
}
