package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playlistd/internal/app/notification"
	"github.com/osa030/playlistd/internal/domain/playlist"
)

type fakeManager struct {
	current  *playlist.Playlist
	started  bool
	executed bool
}

func (m *fakeManager) CurrentPlaylist() *playlist.Playlist { return m.current }
func (m *fakeManager) Started() bool                       { return m.started }
func (m *fakeManager) HasFirstCallbackExecuted() bool      { return m.executed }

type fakeBus struct {
	mu     sync.Mutex
	events []notification.EventType
}

func (b *fakeBus) Broadcast(event *notification.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event.Type)
	return nil
}

func (b *fakeBus) SubscriberCount() int { return 3 }

func (b *fakeBus) received() []notification.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]notification.EventType(nil), b.events...)
}

type fakeSwitches struct {
	disabled atomic.Bool
}

func (s *fakeSwitches) IsDisabled() bool          { return s.disabled.Load() }
func (s *fakeSwitches) SetDisabled(disabled bool) { s.disabled.Store(disabled) }

const testToken = "secret-token"

func newTestServer(t *testing.T, m *fakeManager) (*httptest.Server, *fakeBus, *fakeSwitches) {
	t.Helper()
	bus := &fakeBus{}
	switches := &fakeSwitches{}
	ts := httptest.NewServer(NewServer(m, bus, switches, testToken).Handler())
	t.Cleanup(ts.Close)
	return ts, bus, switches
}

func post(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(AdminTokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGetPlaylist(t *testing.T) {
	p, err := playlist.New(playlist.Blob{"experiments": map[string]any{"e1": "a"}}, playlist.OriginDisk)
	require.NoError(t, err)

	ts, _, _ := newTestServer(t, &fakeManager{current: p})

	resp, err := http.Get(ts.URL + "/playlist")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Origin  string        `json:"origin"`
		Content playlist.Blob `json:"content"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "disk", body.Origin)
	assert.Equal(t, playlist.Blob{"experiments": map[string]any{"e1": "a"}}, body.Content)
}

func TestGetPlaylist_NoneCached(t *testing.T) {
	ts, _, _ := newTestServer(t, &fakeManager{})

	resp, err := http.Get(ts.URL + "/playlist")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGetStatus(t *testing.T) {
	p, err := playlist.New(playlist.Blob{"a": 1}, playlist.OriginRemote)
	require.NoError(t, err)

	ts, _, _ := newTestServer(t, &fakeManager{current: p, started: true, executed: true})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, StatusResponse{
		Polling:               true,
		HasPlaylist:           true,
		Origin:                "remote",
		FirstCallbackExecuted: true,
		Subscribers:           3,
	}, status)
}

func TestLifecycle(t *testing.T) {
	ts, bus, _ := newTestServer(t, &fakeManager{})

	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/lifecycle/foreground", "").StatusCode)
	assert.Equal(t, http.StatusOK, post(t, ts.URL+"/lifecycle/background", "").StatusCode)

	assert.Equal(t, []notification.EventType{
		notification.EventForegrounded,
		notification.EventBackgrounded,
	}, bus.received())
}

func TestLifecycle_WrongMethod(t *testing.T) {
	ts, bus, _ := newTestServer(t, &fakeManager{})

	resp, err := http.Get(ts.URL + "/lifecycle/foreground")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Empty(t, bus.received())
}

func TestAdmin(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		token      string
		wantStatus int
		wantOff    bool
	}{
		{name: "disable", path: "/admin/disable", token: testToken, wantStatus: http.StatusOK, wantOff: true},
		{name: "enable", path: "/admin/enable", token: testToken, wantStatus: http.StatusOK, wantOff: false},
		{name: "missing token", path: "/admin/disable", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", path: "/admin/disable", token: "nope", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _, switches := newTestServer(t, &fakeManager{})
			if tt.path == "/admin/enable" {
				switches.SetDisabled(true)
			}

			resp := post(t, ts.URL+tt.path, tt.token)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantOff, switches.IsDisabled())
			} else {
				assert.False(t, switches.IsDisabled())
			}
		})
	}
}

func TestRequireAdminToken_EmptyConfiguredToken(t *testing.T) {
	h := RequireAdminToken("", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/disable", nil)
	req.Header.Set(AdminTokenHeader, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
