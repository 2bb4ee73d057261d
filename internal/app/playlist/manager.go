package playlist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playlistd/internal/app/notification"
	"github.com/osa030/playlistd/internal/app/worker"
	"github.com/osa030/playlistd/internal/domain/playlist"
)

// Errors
var (
	ErrNilCallback = errors.New("first playlist download callback is nil")
)

// Manager owns the cached playlist and coordinates polling, refreshes and
// the first-download callback.
type Manager struct {
	mu sync.Mutex

	// Collaborators
	settings  Settings
	source    Source
	store     Store
	announcer Announcer

	// Execution contexts
	queue     *worker.Queue
	scheduler *worker.Scheduler

	// Cached state
	current             atomic.Pointer[playlist.Playlist]
	receivedFirstRemote bool
	refreshing          bool
	started             bool
	closed              bool

	// First download callback
	gate             *Gate
	callbackExecuted bool

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager and loads the stored playlist, if any.
func NewManager(settings Settings, source Source, store Store, announcer Announcer) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		settings:  settings,
		source:    source,
		store:     store,
		announcer: announcer,
		queue:     worker.NewQueue(),
		scheduler: worker.NewScheduler("playlist_retriever"),
		ctx:       ctx,
		cancel:    cancel,
	}

	m.loadFromStore()
	return m
}

// CurrentPlaylist returns the latest accepted playlist, or nil before the
// first load.
func (m *Manager) CurrentPlaylist() *playlist.Playlist {
	return m.current.Load()
}

// Started reports whether periodic polling is active.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// OnForeground resumes the first-download callback if it was paused and
// either starts polling or requests a single refresh.
func (m *Manager) OnForeground() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.settings.IsDisabled() {
		return
	}

	if m.gate != nil && m.gate.Paused() {
		if m.receivedFirstRemote {
			zlog.Info().Msg("playlist already downloaded, executing paused first download callback")
			m.dispatchGateLocked()
		} else {
			zlog.Debug().Msgf("resuming first download callback timeout: timeout=%v", m.gate.Timeout())
			m.gate.Resume()
		}
	}

	if m.settings.PollingEnabled() && !m.started {
		m.scheduler.Start(m.settings.PollInterval(), m.requestRefresh)
		m.started = true
	} else {
		m.requestRefresh()
	}
}

// OnBackground stops polling and pauses the first-download timeout.
func (m *Manager) OnBackground() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		m.scheduler.Stop()
		m.started = false
	}

	if m.gate != nil {
		m.gate.Pause()
	}
}

// Send implements notification.Stream so the manager can follow lifecycle
// events broadcast by the host.
func (m *Manager) Send(event *notification.Event) error {
	switch event.Type {
	case notification.EventForegrounded:
		m.OnForeground()
	case notification.EventBackgrounded:
		m.OnBackground()
	}
	return nil
}

// RegisterFirstDownloadCallback registers callback to run once the first
// remote playlist answer has been received, or after timeout when timeout is
// positive. A new registration supersedes the previous one.
func (m *Manager) RegisterFirstDownloadCallback(callback func(), timeout time.Duration) error {
	if callback == nil {
		zlog.Error().Msgf("configuration error: %v", ErrNilCallback)
		return ErrNilCallback
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gate != nil {
		m.gate.Stop()
		m.gate = nil
	}
	m.callbackExecuted = false

	switch {
	case m.settings.IsDisabled():
		zlog.Info().Msg("playlist manager is disabled, executing first download callback")
		m.callbackExecuted = true
		m.queue.Submit(callback)
	case m.receivedFirstRemote:
		zlog.Info().Msg("playlist already downloaded upon callback registration, executing first download callback")
		m.callbackExecuted = true
		m.queue.Submit(callback)
	default:
		m.gate = NewGate(callback, timeout, m.queue.Submit)
		if timeout > 0 {
			zlog.Info().Msgf("playlist not downloaded yet, first download callback fires after timeout %v at the latest", timeout)
			m.gate.Arm()
		}
	}
	return nil
}

// HasFirstCallbackExecuted reports whether the registered first-download
// callback has run or been dispatched.
func (m *Manager) HasFirstCallbackExecuted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callbackExecuted || (m.gate != nil && m.gate.Executed())
}

// Close stops polling and timers and waits for the running worker task.
func (m *Manager) Close() {
	m.shutdown()
	m.cancel()
	m.queue.Close()
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.started {
		m.scheduler.Stop()
		m.started = false
	}
	if m.gate != nil {
		m.gate.Stop()
	}
}

// requestRefresh enqueues one refresh attempt. It only touches the queue so
// the scheduler can call it while the manager lock is held.
func (m *Manager) requestRefresh() {
	if !m.queue.Submit(m.refresh) {
		zlog.Debug().Msg("playlist worker closed, refresh request dropped")
	}
}

// loadFromStore seeds the cache from the store on cold start.
func (m *Manager) loadFromStore() {
	content, err := m.store.ReadPlaylist(m.ctx)
	if err != nil {
		zlog.Warn().Msgf("failed to read playlist from disk: %v", err)
		return
	}
	if content == nil {
		zlog.Debug().Msg("no playlist stored on disk")
		return
	}

	p, err := playlist.New(content, playlist.OriginDisk)
	if err != nil {
		zlog.Warn().Msgf("stored playlist is invalid: %v", err)
		return
	}
	zlog.Info().Msg("loaded playlist from disk")
	m.setCurrentPlaylist(p)
}

// setCurrentPlaylist is the single mutation point of the cached playlist.
func (m *Manager) setCurrentPlaylist(p *playlist.Playlist) {
	p, changed := m.swapCurrentPlaylist(p)
	if !changed || p.FromDisk() {
		return
	}

	zlog.Info().Msg("saving new playlist to disk")
	if err := m.store.WritePlaylist(m.ctx, p.Content()); err != nil {
		zlog.Error().Msgf("failed to save playlist to disk: %v", err)
	}
	if err := m.announcer.Broadcast(notification.PlaylistChanged(p)); err != nil {
		zlog.Warn().Msgf("failed to announce playlist change: %v", err)
	}
}

// swapCurrentPlaylist stores p when its content differs from the current
// playlist and runs the first download trigger for remote playlists. It
// returns the playlist actually considered, which is blank while disabled.
func (m *Manager) swapCurrentPlaylist(p *playlist.Playlist) (*playlist.Playlist, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings.IsDisabled() {
		p = playlist.Blank(p.Origin())
	}

	changed := !p.Equal(m.current.Load())
	if changed {
		m.current.Store(p)
	}
	if !p.FromDisk() {
		m.checkTriggerFirstDownloadLocked()
	}
	return p, changed
}

// checkTriggerFirstDownload marks the first remote answer as received.
func (m *Manager) checkTriggerFirstDownload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkTriggerFirstDownloadLocked()
}

// checkTriggerFirstDownloadLocked must be called with m.mu held.
func (m *Manager) checkTriggerFirstDownloadLocked() {
	if m.receivedFirstRemote {
		return
	}
	m.receivedFirstRemote = true

	if !m.callbackExecuted && m.gate != nil && !m.gate.Executed() {
		zlog.Info().Msg("playlist downloaded, executing first download callback")
		m.dispatchGateLocked()
	}
}

// dispatchGateLocked hands the pending gate to the worker queue.
func (m *Manager) dispatchGateLocked() {
	gate := m.gate
	m.callbackExecuted = true
	if !m.queue.Submit(func() { gate.ExecuteNow() }) {
		zlog.Warn().Msg("playlist worker closed, first download callback dropped")
	}
}
