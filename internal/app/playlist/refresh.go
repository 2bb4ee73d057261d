package playlist

import (
	"runtime/debug"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playlistd/internal/domain/playlist"
)

// refresh runs one retrieval attempt. It is only ever executed on the
// manager's worker queue.
func (m *Manager) refresh() {
	// If we are off then don't bother requesting anymore playlists
	if m.settings.IsDisabled() {
		return
	}

	if !m.beginRefresh() {
		zlog.Debug().Msg("playlist refresh already in progress, skipping")
		return
	}
	defer m.endRefresh()

	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("failed to download new playlist: %v\n%s", r, debug.Stack())
		}
	}()

	zlog.Debug().Msg("retrieving playlist from source")

	content, err := m.source.Fetch(m.ctx)
	switch {
	case err != nil:
		zlog.Warn().Msgf("failed to fetch playlist: %v", err)
		// A failed attempt still counts as the first answer
		m.checkTriggerFirstDownload()
	case content == nil:
		zlog.Warn().Msg("playlist response did not have any content")
		m.checkTriggerFirstDownload()
	case len(content) == 0:
		// An empty playlist is a signal from the source to not process anything
		zlog.Warn().Msg("received empty playlist from source, not updating")
		m.checkTriggerFirstDownload()
	default:
		p, err := playlist.New(content, playlist.OriginRemote)
		if err != nil {
			zlog.Warn().Msgf("received invalid playlist: %v", err)
			m.checkTriggerFirstDownload()
			return
		}
		if m.settings.EchoPlaylists() {
			zlog.Info().Msgf("got playlist:\n%s", p.Pretty())
		}
		m.setCurrentPlaylist(p)
	}
}

// beginRefresh claims the single-flight guard.
func (m *Manager) beginRefresh() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refreshing {
		return false
	}
	m.refreshing = true
	return true
}

func (m *Manager) endRefresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshing = false
}
