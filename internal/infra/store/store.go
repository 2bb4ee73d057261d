// Package store persists the last accepted playlist so it survives restarts.
package store

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/osa030/playlistd/internal/domain/playlist"
	"github.com/osa030/playlistd/internal/infra/config"
)

// Store reads and writes the persisted playlist.
type Store interface {
	ReadPlaylist(ctx context.Context) (playlist.Blob, error)
	WritePlaylist(ctx context.Context, content playlist.Blob) error
	io.Closer
}

// New creates a store from configuration.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Type {
	case "", "file":
		return NewFileStore(cfg.Path), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, errors.Newf("unknown store type: %s", cfg.Type)
	}
}
