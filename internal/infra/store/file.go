package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playlistd/internal/domain/playlist"
)

// FileStore keeps the playlist as a JSON document on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file store at path. The file is created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ReadPlaylist returns the stored playlist, or nil when none was written yet.
func (s *FileStore) ReadPlaylist(ctx context.Context) (playlist.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read playlist file %s", s.path)
	}

	blob, err := playlist.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode playlist file %s", s.path)
	}
	return blob, nil
}

// WritePlaylist replaces the stored playlist. The file is swapped in with a
// rename so readers never see a partial document.
func (s *FileStore) WritePlaylist(ctx context.Context, content playlist.Blob) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(content)
	if err != nil {
		return errors.Wrap(err, "failed to encode playlist")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, ".playlist-*.tmp")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "failed to write temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrapf(err, "failed to replace playlist file %s", s.path)
	}

	zlog.Debug().Msgf("playlist written to %s (%d bytes)", s.path, len(data))
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
