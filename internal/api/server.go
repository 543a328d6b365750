// Package api provides the HTTP surface for the delivery layer: polling
// undelivered manifestations, flipping delivered/acknowledged flags, the
// synchronous dream check, and a status endpoint.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/godwatch/internal/deity"
	"github.com/talgya/godwatch/internal/engine"
	"github.com/talgya/godwatch/internal/karma"
	"github.com/talgya/godwatch/internal/persistence"
)

// Server serves the engine state over HTTP.
type Server struct {
	DB        *persistence.DB
	Engine    *engine.Engine
	Addr      string
	StartedAt time.Time
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/manifestations", s.handleManifestations)
	mux.HandleFunc("POST /api/v1/manifestations/{id}/delivered", s.handleDelivered)
	mux.HandleFunc("POST /api/v1/manifestations/{id}/acknowledged", s.handleAcknowledged)
	mux.HandleFunc("POST /api/v1/dreamcheck", s.handleDreamCheck)

	slog.Info("HTTP API starting", "addr", s.Addr)

	go func() {
		if err := http.ListenAndServe(s.Addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

type deityStatus struct {
	Mood             string `json:"mood"`
	Phase            string `json:"phase"`
	LastIntervention string `json:"last_intervention,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Uptime         string                 `json:"uptime"`
		Deities        map[string]deityStatus `json:"deities"`
		Manifestations string                 `json:"manifestations"`
	}{
		Uptime:  humanize.Time(s.StartedAt),
		Deities: make(map[string]deityStatus, 2),
	}

	for _, d := range deity.All() {
		st, err := s.DB.DeityState(d)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "deity state unavailable")
			return
		}
		ds := deityStatus{Mood: st.Mood.String(), Phase: st.Phase.String()}
		if !st.LastIntervention.IsZero() {
			ds.LastIntervention = humanize.Time(st.LastIntervention)
		}
		status.Deities[d.String()] = ds
	}

	n, err := s.DB.ManifestationCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "count unavailable")
		return
	}
	status.Manifestations = humanize.Comma(int64(n))

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleManifestations(w http.ResponseWriter, r *http.Request) {
	ch, err := characterParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	undeliveredOnly := r.URL.Query().Get("undelivered") == "1"

	var out any
	if undeliveredOnly {
		out, err = s.DB.Undelivered(ch, limit)
	} else {
		out, err = s.DB.RecentManifestations(ch, limit)
	}
	if err != nil {
		slog.Error("manifestation query failed", "character", ch, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDelivered(w http.ResponseWriter, r *http.Request) {
	s.markFlag(w, r, s.DB.MarkDelivered)
}

func (s *Server) handleAcknowledged(w http.ResponseWriter, r *http.Request) {
	s.markFlag(w, r, s.DB.MarkAcknowledged)
}

func (s *Server) markFlag(w http.ResponseWriter, r *http.Request, mark func(string, time.Time) error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing manifestation id")
		return
	}

	err := mark(id, time.Now().UTC())
	if errors.Is(err, persistence.ErrNotFound) {
		writeError(w, http.StatusNotFound, "manifestation not found")
		return
	}
	if err != nil {
		slog.Error("flag transition failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "transition failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDreamCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CharacterID uint64 `json:"character_id"`
		RestKind    string `json:"rest_kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rest := engine.RestLight
	if req.RestKind == string(engine.RestDeep) {
		rest = engine.RestDeep
	}

	result, err := s.Engine.CheckForDream(r.Context(), karma.CharacterID(req.CharacterID), rest)
	if err != nil {
		// The player never sees an engine error; a missing dream is
		// indistinguishable from a losing draw.
		slog.Error("dream check failed", "character", req.CharacterID, "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"dream": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"dream": result})
}

func characterParam(r *http.Request) (karma.CharacterID, error) {
	raw := r.URL.Query().Get("character")
	if raw == "" {
		return 0, fmt.Errorf("missing character parameter")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid character parameter")
	}
	return karma.CharacterID(id), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
