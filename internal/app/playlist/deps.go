// Package playlist keeps the locally cached playlist in sync with a remote
// source while the host application is in the foreground.
package playlist

import (
	"context"
	"time"

	"github.com/osa030/playlistd/internal/app/notification"
	"github.com/osa030/playlistd/internal/domain/playlist"
)

// Source fetches the latest playlist. A nil Blob with a nil error means the
// source had nothing to say; an empty Blob means "no change".
type Source interface {
	Fetch(ctx context.Context) (playlist.Blob, error)
}

// Store persists the last accepted remote playlist. ReadPlaylist returns a
// nil Blob when nothing has been stored yet.
type Store interface {
	ReadPlaylist(ctx context.Context) (playlist.Blob, error)
	WritePlaylist(ctx context.Context, content playlist.Blob) error
}

// Settings exposes the switches the manager consults on every operation.
type Settings interface {
	IsDisabled() bool
	PollingEnabled() bool
	PollInterval() time.Duration
	EchoPlaylists() bool
}

// Announcer publishes playlist changes to the rest of the process.
type Announcer interface {
	Broadcast(event *notification.Event) error
}
