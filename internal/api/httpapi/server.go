// Package httpapi provides the HTTP control API of the playlist daemon.
package httpapi

import (
	"encoding/json"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/playlistd/internal/app/notification"
	"github.com/osa030/playlistd/internal/domain/playlist"
)

// PlaylistManager is the part of the playlist manager the API reads.
type PlaylistManager interface {
	CurrentPlaylist() *playlist.Playlist
	Started() bool
	HasFirstCallbackExecuted() bool
}

// EventBus broadcasts lifecycle events to subscribers.
type EventBus interface {
	Broadcast(event *notification.Event) error
	SubscriberCount() int
}

// Switches toggles the playlist feature at runtime.
type Switches interface {
	IsDisabled() bool
	SetDisabled(disabled bool)
}

// Server serves the control API.
type Server struct {
	manager    PlaylistManager
	bus        EventBus
	switches   Switches
	adminToken string
}

// NewServer creates a new Server.
func NewServer(manager PlaylistManager, bus EventBus, switches Switches, adminToken string) *Server {
	return &Server{
		manager:    manager,
		bus:        bus,
		switches:   switches,
		adminToken: adminToken,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /playlist", s.getPlaylist)
	mux.HandleFunc("GET /status", s.getStatus)
	mux.HandleFunc("POST /lifecycle/foreground", s.lifecycle(notification.Foregrounded))
	mux.HandleFunc("POST /lifecycle/background", s.lifecycle(notification.Backgrounded))
	mux.Handle("POST /admin/disable", RequireAdminToken(s.adminToken, s.setDisabled(true)))
	mux.Handle("POST /admin/enable", RequireAdminToken(s.adminToken, s.setDisabled(false)))
	return mux
}

// PlaylistResponse is the body of GET /playlist.
type PlaylistResponse struct {
	Origin  string             `json:"origin"`
	Content *playlist.Playlist `json:"content"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Disabled              bool   `json:"disabled"`
	Polling               bool   `json:"polling"`
	HasPlaylist           bool   `json:"has_playlist"`
	Origin                string `json:"origin,omitempty"`
	FirstCallbackExecuted bool   `json:"first_callback_executed"`
	Subscribers           int    `json:"subscribers"`
}

// MessageResponse is the body of state-changing endpoints.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) getPlaylist(w http.ResponseWriter, r *http.Request) {
	p := s.manager.CurrentPlaylist()
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, PlaylistResponse{Origin: p.Origin().String(), Content: p})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Disabled:              s.switches.IsDisabled(),
		Polling:               s.manager.Started(),
		FirstCallbackExecuted: s.manager.HasFirstCallbackExecuted(),
		Subscribers:           s.bus.SubscriberCount(),
	}
	if p := s.manager.CurrentPlaylist(); p != nil {
		resp.HasPlaylist = true
		resp.Origin = p.Origin().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lifecycle(build func() *notification.Event) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event := build()
		if err := s.bus.Broadcast(event); err != nil {
			zlog.Error().Msgf("failed to broadcast %s: %v", event.Type, err)
			writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: err.Error()})
			return
		}
		zlog.Info().Msgf("lifecycle event broadcast: %s", event.Type)
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: event.Type.String()})
	}
}

func (s *Server) setDisabled(disabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.switches.SetDisabled(disabled)
		message := "Playlist enabled"
		if disabled {
			message = "Playlist disabled"
		}
		zlog.Info().Msgf("admin: %s", message)
		writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: message})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Warn().Msgf("failed to write response: %v", err)
	}
}
