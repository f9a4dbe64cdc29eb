package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/auxparty/auxparty/internal/models"
	"github.com/auxparty/auxparty/internal/party"
	"github.com/auxparty/auxparty/internal/playback"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body"})
		return false
	}
	return true
}

type errorBody struct {
	Error string `json:"error"`
}

// statusOf maps the coordinator's typed failures to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, party.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, party.ErrPartyNotFound), errors.Is(err, party.ErrSongNotFound):
		return http.StatusNotFound
	case errors.Is(err, party.ErrNotMember), errors.Is(err, party.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, party.ErrPartyEnded),
		errors.Is(err, party.ErrNameTaken),
		errors.Is(err, party.ErrQueueFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a typed failure. Internal errors are logged and masked.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("internal error", "error", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

type createPartyRequest struct {
	Name        string `json:"name"`
	HostName    string `json:"hostName"`
	Capacity    int    `json:"capacity"`
	TimeBoxMins int    `json:"timeBoxMins"`
}

type createPartyResponse struct {
	Party       *models.Party       `json:"party"`
	Participant *models.Participant `json:"participant"`
	Token       string              `json:"token"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if !readJSON(w, r, &req) {
		return
	}

	p, host, err := s.coord.CreateParty(r.Context(), party.CreatePartyInput{
		Name:        req.Name,
		HostName:    req.HostName,
		Capacity:    req.Capacity,
		TimeBoxMins: req.TimeBoxMins,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.tokens.Generate(host, p.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createPartyResponse{Party: p, Participant: host, Token: token})
}

type joinPartyRequest struct {
	Name string `json:"name"`
}

type joinPartyResponse struct {
	Snapshot    *party.Snapshot     `json:"snapshot"`
	Participant *models.Participant `json:"participant"`
	Token       string              `json:"token"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinPartyRequest
	if !readJSON(w, r, &req) {
		return
	}

	code := r.PathValue("code")
	snap, participant, err := s.coord.JoinParty(r.Context(), code, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.tokens.Generate(participant, snap.Party.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, joinPartyResponse{Snapshot: snap, Participant: participant, Token: token})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Snapshot(r.Context(), r.PathValue("code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type addSongRequest struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	MediaURL string `json:"mediaUrl"`
	MediaID  string `json:"mediaId"`
}

func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	var req addSongRequest
	if !readJSON(w, r, &req) {
		return
	}

	song, err := s.coord.AddSong(r.Context(), r.PathValue("code"), participantID(r.Context()), party.AddSongInput{
		Title:    req.Title,
		Artist:   req.Artist,
		MediaURL: req.MediaURL,
		MediaID:  req.MediaID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, song)
}

type songIDRequest struct {
	SongID string `json:"songId"`
}

func (s *Server) handleToggleVote(w http.ResponseWriter, r *http.Request) {
	var req songIDRequest
	if !readJSON(w, r, &req) {
		return
	}

	result, err := s.coord.ToggleVote(r.Context(), r.PathValue("code"), participantID(r.Context()), req.SongID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	var req songIDRequest
	if !readJSON(w, r, &req) {
		return
	}

	p, err := s.coord.SetCurrentSong(r.Context(), r.PathValue("code"), participantID(r.Context()), req.SongID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type playbackRequest struct {
	Action    string   `json:"action"`
	OffsetSec *float64 `json:"offsetSec"`
}

type playbackResponse struct {
	Playback playback.State `json:"playback"`
}

func (s *Server) handleSetPlayback(w http.ResponseWriter, r *http.Request) {
	var req playbackRequest
	if !readJSON(w, r, &req) {
		return
	}

	st, err := s.coord.SetPlayback(r.Context(), r.PathValue("code"), participantID(r.Context()), req.Action, req.OffsetSec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playbackResponse{Playback: st})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	result, err := s.coord.EndParty(r.Context(), r.PathValue("code"), participantID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
