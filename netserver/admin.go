package netserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// diagnosticsPayload mirrors the teacher's /diagnostics shape: status,
// server time, and a point-in-time snapshot of whatever's useful for an
// operator to eyeball.
type diagnosticsPayload struct {
	Status       string `json:"status"`
	ServerTimeMS int64  `json:"serverTimeMs"`
	Tick         uint64 `json:"tick"`
	Sessions     int    `json:"sessions"`
	AgentCount   int    `json:"agentCount"`
}

// AdminRouter builds the chi-based HTTP surface alongside the raw-TCP
// simulation protocol: /healthz, /diagnostics, /metrics (§4.5's admin
// surface; SPEC_FULL.md's domain-stack wiring for go-chi/chi).
func (s *Server) AdminRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	r.Get("/diagnostics", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		sessionCount := len(s.sessions)
		s.mu.RUnlock()

		payload := diagnosticsPayload{
			Status:       "ok",
			ServerTimeMS: time.Now().UnixMilli(),
			Tick:         s.world.Clock(),
			Sessions:     sessionCount,
			AgentCount:   len(s.world.AgentIDs()),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		var snapshot map[string]uint64
		if s.metrics != nil {
			snapshot = s.metrics.Snapshot()
		}
		data, err := json.Marshal(snapshot)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	r.Get("/spectate", func(w http.ResponseWriter, r *http.Request) {
		s.spectate.ServeHTTP(w, r)
	})

	return r
}
