package source

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playlistd/internal/app/playlist"
	domain "github.com/osa030/playlistd/internal/domain/playlist"
	"github.com/osa030/playlistd/internal/infra/config"
)

// ColdStartStore reads the cold start playlist from a source and persists
// through the wrapped store.
type ColdStartStore struct {
	source playlist.Source
	store  playlist.Store
}

// NewColdStartStore creates a store whose reads are answered by source.
func NewColdStartStore(source playlist.Source, store playlist.Store) *ColdStartStore {
	return &ColdStartStore{source: source, store: store}
}

// ReadPlaylist returns the next playlist of the source.
func (s *ColdStartStore) ReadPlaylist(ctx context.Context) (domain.Blob, error) {
	return s.source.Fetch(ctx)
}

// WritePlaylist persists content in the wrapped store.
func (s *ColdStartStore) WritePlaylist(ctx context.Context, content domain.Blob) error {
	return s.store.WritePlaylist(ctx, content)
}

// StoreFor returns the store the playlist manager should use with src. A
// scripted player also provides the cold start playlist, so a run is not
// seeded by whatever a previous run left in the store.
func StoreFor(cfg config.SourceConfig, src playlist.Source, store playlist.Store) playlist.Store {
	if cfg.Type != "player" {
		return store
	}
	zlog.Info().Msg("playlist player in use, cold start playlist comes from the player")
	return NewColdStartStore(src, store)
}
