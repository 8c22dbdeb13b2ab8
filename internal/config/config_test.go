package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/logmux/pkg/provider"
	"github.com/vietdv277/logmux/pkg/types"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "logmux", "config.yaml"), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return s
}

func TestGetConfigPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/logmux/config.yaml", GetConfigPath())
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultPageSize, cfg.Defaults.PageSize)
	assert.Equal(t, 30*time.Second, cfg.Defaults.RefreshInterval)
	assert.Equal(t, OutputTable, cfg.Defaults.Output)
}

func TestLoadFillsPartialDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaults:\n  page_size: 20\n  refresh_interval: 5s\n"), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Defaults.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Defaults.RefreshInterval)
	assert.Equal(t, OutputTable, cfg.Defaults.Output)
}

func TestAddAssignsIdentityAndColor(t *testing.T) {
	s := openStore(t)

	a, err := s.Add(types.LogSource{Name: "Gateway", Type: types.SourceAPI, Enabled: true})
	require.NoError(t, err)
	b, err := s.Add(types.LogSource{Name: "Hosted", Type: types.SourceSupabase, Enabled: true})
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, types.Palette[0], a.Color)
	assert.Equal(t, types.Palette[1], b.Color)
	assert.Equal(t, fixedNow, a.CreatedAt)
	assert.Equal(t, []string{a.ID, b.ID}, s.Selected())

	// Persisted
	reopened, err := Open(s.Path())
	require.NoError(t, err)
	assert.Equal(t, s.Sources(), reopened.Sources())
}

func TestAddRejectsInvalid(t *testing.T) {
	s := openStore(t)
	_, err := s.Add(types.LogSource{Name: "", Type: types.SourceAPI})
	assert.ErrorIs(t, err, provider.ErrInvalidSource)
	_, err = s.Add(types.LogSource{Name: "x", Type: "ftp"})
	assert.ErrorIs(t, err, provider.ErrInvalidSource)
	_, err = s.Add(types.LogSource{Name: "x", Type: types.SourceFile, FileFormat: "xml"})
	assert.ErrorIs(t, err, provider.ErrInvalidSource)
}

func TestUpdateKeepsIdentity(t *testing.T) {
	s := openStore(t)
	src, err := s.Add(types.LogSource{Name: "Gateway", Type: types.SourceAPI, BaseURL: "http://old"})
	require.NoError(t, err)

	before, after, err := s.Update("gateway", func(e *types.LogSource) {
		e.BaseURL = "http://new"
		e.ID = "hijack"
		e.Type = types.SourceFile
	})
	require.NoError(t, err)
	assert.Equal(t, "http://old", before.BaseURL)
	assert.Equal(t, "http://new", after.BaseURL)
	assert.Equal(t, src.ID, after.ID)
	assert.Equal(t, types.SourceAPI, after.Type)
}

func TestRemoveDropsSelection(t *testing.T) {
	s := openStore(t)
	a, _ := s.Add(types.LogSource{Name: "A", Type: types.SourceAPI, Enabled: true})
	b, _ := s.Add(types.LogSource{Name: "B", Type: types.SourceAPI, Enabled: true})

	_, err := s.Remove(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, s.Selected())
	assert.Len(t, s.Sources(), 1)

	_, err = s.Remove(a.ID)
	assert.Error(t, err)
}

func TestActiveNeedsSelectedAndEnabled(t *testing.T) {
	s := openStore(t)
	a, _ := s.Add(types.LogSource{Name: "A", Type: types.SourceAPI, Enabled: true})
	b, _ := s.Add(types.LogSource{Name: "B", Type: types.SourceAPI, Enabled: true})
	c, _ := s.Add(types.LogSource{Name: "C", Type: types.SourceAPI, Enabled: true})

	_, _, err := s.Update(b.ID, func(src *types.LogSource) { src.Enabled = false })
	require.NoError(t, err)
	require.NoError(t, s.Select([]string{"A", b.ID}))

	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
	assert.NotContains(t, s.Selected(), c.ID)

	assert.Error(t, s.Select([]string{"missing"}))
}

func TestExportImportRoundTrip(t *testing.T) {
	src := openStore(t)
	_, err := src.Add(types.LogSource{Name: "Gateway", Type: types.SourceAPI, Enabled: true, BaseURL: "http://gw", APIKey: "ssm:/gw/key"})
	require.NoError(t, err)
	_, err = src.Add(types.LogSource{Name: "Bucket", Type: types.SourceSupabaseS3, ProjectURL: "https://p.supabase.co",
		AccessKey: "k", Bucket: "logs", Prefix: "api/", FileFormat: types.FormatCSV, MaxFiles: 3})
	require.NoError(t, err)

	data, err := src.Export()
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, DocumentVersion, doc.Version)
	assert.Equal(t, fixedNow, doc.ExportedAt)

	dst := openStore(t)
	res, err := dst.Import(data, ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Added: 2}, res)
	assert.Equal(t, src.Sources(), dst.Sources())

	res, err = dst.Import(data, ImportMerge)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 2}, res)
}

func TestImportReplace(t *testing.T) {
	s := openStore(t)
	old, _ := s.Add(types.LogSource{Name: "Old", Type: types.SourceAPI})

	doc := `{"version":1,"exportedAt":"2024-05-01T00:00:00Z","sources":[{"id":"n1","name":"New","type":"file","enabled":true,"color":"#ef4444","createdAt":"2024-04-01T00:00:00Z"}]}`
	res, err := s.Import([]byte(doc), ImportReplace)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	sources := s.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "n1", sources[0].ID)
	assert.NotContains(t, s.Selected(), old.ID)
}

func TestImportValidation(t *testing.T) {
	s := openStore(t)

	_, err := s.Import([]byte(`{"version":1,"sources":[{"id":"a","name":"A","type":"api"},{"id":"","name":"B","type":"api"}]}`), ImportMerge)
	assert.ErrorIs(t, err, provider.ErrInvalidSource)
	assert.Empty(t, s.Sources())

	_, err = s.Import([]byte(`{"version":1}`), ImportMerge)
	assert.ErrorIs(t, err, provider.ErrInvalidSource)

	_, err = s.Import([]byte(`not json`), ImportMerge)
	assert.Error(t, err)

	_, err = s.Import([]byte(`{"version":1,"sources":[]}`), "bogus")
	assert.Error(t, err)
}
