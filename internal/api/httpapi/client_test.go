package httpapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playlistd/internal/app/notification"
	"github.com/osa030/playlistd/internal/domain/playlist"
)

func TestClient_RoundTrip(t *testing.T) {
	p, err := playlist.New(playlist.Blob{"experiments": map[string]any{"e1": "a"}}, playlist.OriginRemote)
	require.NoError(t, err)

	ts, bus, switches := newTestServer(t, &fakeManager{current: p, started: true})
	client := NewClient(ts.URL+"/", testToken, nil)
	ctx := context.Background()

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Polling)
	assert.Equal(t, "remote", status.Origin)

	raw, err := client.Playlist(ctx)
	require.NoError(t, err)
	var body struct {
		Origin  string         `json:"origin"`
		Content map[string]any `json:"content"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "remote", body.Origin)
	assert.Equal(t, map[string]any{"experiments": map[string]any{"e1": "a"}}, body.Content)

	msg, err := client.Foreground(ctx)
	require.NoError(t, err)
	assert.True(t, msg.Success)
	_, err = client.Background(ctx)
	require.NoError(t, err)
	assert.Equal(t, []notification.EventType{
		notification.EventForegrounded,
		notification.EventBackgrounded,
	}, bus.received())

	_, err = client.Disable(ctx)
	require.NoError(t, err)
	assert.True(t, switches.IsDisabled())
	_, err = client.Enable(ctx)
	require.NoError(t, err)
	assert.False(t, switches.IsDisabled())
}

func TestClient_NoPlaylist(t *testing.T) {
	ts, _, _ := newTestServer(t, &fakeManager{})

	raw, err := NewClient(ts.URL, testToken, nil).Playlist(context.Background())
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestClient_Unauthenticated(t *testing.T) {
	ts, _, switches := newTestServer(t, &fakeManager{})

	_, err := NewClient(ts.URL, "wrong", nil).Disable(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthenticated")
	assert.False(t, switches.IsDisabled())
}
