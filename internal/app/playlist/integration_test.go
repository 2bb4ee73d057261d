package playlist_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playlistd/internal/app/notification"
	apiplaylist "github.com/osa030/playlistd/internal/app/playlist"
	"github.com/osa030/playlistd/internal/app/source"
	"github.com/osa030/playlistd/internal/domain/playlist"
	"github.com/osa030/playlistd/internal/infra/config"
	"github.com/osa030/playlistd/internal/infra/player"
	"github.com/osa030/playlistd/internal/infra/store"
)

type changeRecorder struct {
	mu      sync.Mutex
	changes []*playlist.Playlist
}

func (r *changeRecorder) Send(e *notification.Event) error {
	if e.Type != notification.EventPlaylistChanged {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, e.Playlist)
	return nil
}

func (r *changeRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func TestManager_EndToEnd(t *testing.T) {
	first := playlist.Blob{"experiments": map[string]any{"onboarding": "control"}}
	second := playlist.Blob{"experiments": map[string]any{"onboarding": "short"}}

	src, err := player.New([]playlist.Blob{first, {}, second}, false)
	require.NoError(t, err)

	fileStore := store.NewFileStore(filepath.Join(t.TempDir(), "cache", "playlist.json"))
	polling := false
	switches := config.NewSwitches(config.PlaylistConfig{PollForPlaylist: &polling, RequestPeriodSec: 60})

	bus := notification.NewManager()
	defer bus.Close()
	recorder := &changeRecorder{}
	bus.Subscribe(recorder)

	manager := apiplaylist.NewManager(switches, src, fileStore, bus)
	defer manager.Close()
	bus.Subscribe(manager)

	assert.Nil(t, manager.CurrentPlaylist())

	var calls int32
	require.NoError(t, manager.RegisterFirstDownloadCallback(func() { atomic.AddInt32(&calls, 1) }, 0))

	expected, err := playlist.New(first, playlist.OriginRemote)
	require.NoError(t, err)

	require.NoError(t, bus.Broadcast(notification.Foregrounded()))
	assert.Eventually(t, func() bool {
		return expected.Equal(manager.CurrentPlaylist())
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return recorder.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Empty step: nothing changes
	require.NoError(t, bus.Broadcast(notification.Foregrounded()))
	require.NoError(t, bus.Broadcast(notification.Backgrounded()))

	expected, err = playlist.New(second, playlist.OriginRemote)
	require.NoError(t, err)

	require.NoError(t, bus.Broadcast(notification.Foregrounded()))
	assert.Eventually(t, func() bool {
		return expected.Equal(manager.CurrentPlaylist())
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return recorder.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stored, err := fileStore.ReadPlaylist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, playlist.Blob{"experiments": map[string]any{"onboarding": "short"}}, stored)

	// A restarted manager comes up with the stored playlist
	restarted := apiplaylist.NewManager(switches, src, fileStore, bus)
	defer restarted.Close()

	current := restarted.CurrentPlaylist()
	require.NotNil(t, current)
	assert.True(t, current.FromDisk())
	assert.True(t, expected.Equal(current))
}

func TestManager_PlayerColdStartIgnoresStoredPlaylist(t *testing.T) {
	ctx := context.Background()
	fileStore := store.NewFileStore(filepath.Join(t.TempDir(), "playlist.json"))
	require.NoError(t, fileStore.WritePlaylist(ctx, playlist.Blob{"from": "previous run"}))

	first := playlist.Blob{"experiments": map[string]any{"onboarding": "control"}}
	src, err := player.New([]playlist.Blob{first, {}}, false)
	require.NoError(t, err)

	polling := false
	switches := config.NewSwitches(config.PlaylistConfig{PollForPlaylist: &polling, RequestPeriodSec: 60})
	bus := notification.NewManager()
	defer bus.Close()

	st := source.StoreFor(config.SourceConfig{Type: "player"}, src, fileStore)
	manager := apiplaylist.NewManager(switches, src, st, bus)
	defer manager.Close()

	expected, err := playlist.New(first, playlist.OriginDisk)
	require.NoError(t, err)

	current := manager.CurrentPlaylist()
	require.NotNil(t, current)
	assert.True(t, current.FromDisk())
	assert.True(t, expected.Equal(current))

	stored, err := fileStore.ReadPlaylist(ctx)
	require.NoError(t, err)
	assert.Equal(t, playlist.Blob{"from": "previous run"}, stored, "cold start playlist is not persisted")
}
