package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playlistd/internal/domain/playlist"
	"github.com/osa030/playlistd/internal/infra/config"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqlite, err := NewSQLiteStore(filepath.Join(dir, "playlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"file":   NewFileStore(filepath.Join(dir, "nested", "playlist.json")),
		"sqlite": sqlite,
	}
}

func TestStore_ReadEmpty(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			blob, err := s.ReadPlaylist(context.Background())
			require.NoError(t, err)
			assert.Nil(t, blob)
		})
	}
}

func TestStore_WriteThenRead(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := playlist.Blob{"experiments": map[string]any{"e1": "a"}}
			require.NoError(t, s.WritePlaylist(ctx, first))

			second := playlist.Blob{"experiments": map[string]any{"e1": "b"}, "version": json.Number("2")}
			require.NoError(t, s.WritePlaylist(ctx, second))

			blob, err := s.ReadPlaylist(ctx)
			require.NoError(t, err)
			assert.Equal(t, second, blob)
		})
	}
}

func TestStore_LargeIntegersRoundTrip(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p, err := playlist.New(playlist.Blob{"experiment_id": json.Number("9007199254740993")}, playlist.OriginRemote)
			require.NoError(t, err)
			require.NoError(t, s.WritePlaylist(ctx, p.Content()))

			blob, err := s.ReadPlaylist(ctx)
			require.NoError(t, err)
			assert.Equal(t, playlist.Blob{"experiment_id": json.Number("9007199254740993")}, blob)
		})
	}
}

func TestStore_CanceledContext(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			assert.Error(t, s.WritePlaylist(ctx, playlist.Blob{"a": 1.0}))
		})
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playlist.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path).ReadPlaylist(context.Background())
	assert.Error(t, err)
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(filepath.Join(dir, "playlist.json"))
	require.NoError(t, s.WritePlaylist(context.Background(), playlist.Blob{"a": 1.0}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "playlist.json", entries[0].Name())
}

func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		cfg      config.StoreConfig
		expected any
		wantErr  bool
	}{
		{name: "default", cfg: config.StoreConfig{Path: filepath.Join(dir, "a.json")}, expected: &FileStore{}},
		{name: "file", cfg: config.StoreConfig{Type: "file", Path: filepath.Join(dir, "b.json")}, expected: &FileStore{}},
		{name: "sqlite", cfg: config.StoreConfig{Type: "sqlite", Path: filepath.Join(dir, "c.db")}, expected: &SQLiteStore{}},
		{name: "unknown", cfg: config.StoreConfig{Type: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()
			assert.IsType(t, tt.expected, s)
		})
	}
}
