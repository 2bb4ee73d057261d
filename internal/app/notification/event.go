package notification

import (
	"time"

	"github.com/osa030/playlistd/internal/domain/playlist"
)

// EventType represents a notification event type.
type EventType int

const (
	EventForegrounded    EventType = iota // Host application became active
	EventBackgrounded                     // Host application became inactive
	EventPlaylistChanged                  // Cached playlist was replaced by a remote one
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventForegrounded:
		return "foregrounded"
	case EventBackgrounded:
		return "backgrounded"
	case EventPlaylistChanged:
		return "playlist_changed"
	default:
		return "unknown"
	}
}

// Event represents a broadcast notification.
type Event struct {
	Type       EventType
	Playlist   *playlist.Playlist // New playlist (EventPlaylistChanged only)
	SequenceNo uint64             // Assigned by Broadcast
	Time       time.Time          // Assigned by Broadcast when zero
}

// PlaylistChanged builds an EventPlaylistChanged event.
func PlaylistChanged(p *playlist.Playlist) *Event {
	return &Event{Type: EventPlaylistChanged, Playlist: p}
}

// Foregrounded builds an EventForegrounded event.
func Foregrounded() *Event {
	return &Event{Type: EventForegrounded}
}

// Backgrounded builds an EventBackgrounded event.
func Backgrounded() *Event {
	return &Event{Type: EventBackgrounded}
}
