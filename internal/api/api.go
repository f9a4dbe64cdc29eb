// Package api exposes the party core over a JSON HTTP surface plus a
// websocket push channel per party.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auxparty/auxparty/internal/auth"
	"github.com/auxparty/auxparty/internal/broadcast"
	"github.com/auxparty/auxparty/internal/party"
)

// Server wires the coordinator, the broadcast broker, and the token manager
// into HTTP handlers.
type Server struct {
	coord  *party.Coordinator
	broker *broadcast.Broker
	tokens *auth.JWTManager
}

// New creates a Server.
func New(coord *party.Coordinator, broker *broadcast.Broker, tokens *auth.JWTManager) *Server {
	return &Server{coord: coord, broker: broker, tokens: tokens}
}

// Register installs all routes on the mux. Mutating party routes require a
// participant token; create and join mint one.
func (s *Server) Register(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/party", s.handleCreate)
	mux.HandleFunc("POST /api/party/{code}/join", s.handleJoin)
	mux.HandleFunc("GET /api/party/{code}", s.handleSnapshot)
	mux.HandleFunc("GET /api/party/{code}/ws", s.handleSubscribe)

	mux.HandleFunc("POST /api/party/{code}/songs", s.requireParticipant(s.handleAddSong))
	mux.HandleFunc("POST /api/party/{code}/votes", s.requireParticipant(s.handleToggleVote))
	mux.HandleFunc("POST /api/party/{code}/current", s.requireParticipant(s.handleSetCurrent))
	mux.HandleFunc("POST /api/party/{code}/playback", s.requireParticipant(s.handleSetPlayback))
	mux.HandleFunc("POST /api/party/{code}/end", s.requireParticipant(s.handleEnd))
}
