package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"powerpilot/internal/capability"
	"powerpilot/internal/engine"
	"powerpilot/internal/history"
	"powerpilot/internal/logging"
)

// Server carries the engine dependencies the HTTP handlers need.
type Server struct {
	Coordinator  *engine.Coordinator
	Store        *history.Store
	Prober       *capability.Prober
	MaxBatchSize int
}

// HandleBatch ingests one ordered instruction batch, executes it, and
// returns one result per record in input order.
func (s *Server) HandleBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := engine.DecodeBatch(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.MaxBatchSize > 0 && len(batch.Records) > s.MaxBatchSize {
		http.Error(w, "batch exceeds maximum size", http.StatusRequestEntityTooLarge)
		return
	}

	logging.Server("ingesting batch %s (%d records)", batch.ID, len(batch.Records))
	results := s.Coordinator.ExecuteBatch(r.Context(), batch.ID, batch.Records)

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": batch.ID,
		"results":  results,
	})
}

// HandleHistory returns recent outcomes, newest first.
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.Store.Recent(r.Context(), limit)
	if err != nil {
		logging.ServerError("history query failed: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// HandleHistoryDays returns recent outcomes grouped by calendar day.
func (s *Server) HandleHistoryDays(w http.ResponseWriter, r *http.Request) {
	groups, err := s.Store.GroupedByDay(r.Context(), 500)
	if err != nil {
		logging.ServerError("history day query failed: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": groups})
}

// HandleHistoryDay returns one day's outcomes grouped by hour.
func (s *Server) HandleHistoryDay(w http.ResponseWriter, r *http.Request) {
	day := mux.Vars(r)["day"]
	groups, err := s.Store.GroupedByHour(r.Context(), day)
	if err != nil {
		if errors.Is(err, history.ErrInvalidDay) {
			http.Error(w, "invalid day", http.StatusBadRequest)
			return
		}
		logging.ServerError("history day query failed: %v", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"day": day, "hours": groups})
}

// HandleCapabilities returns the currently cached tier per domain.
func (s *Server) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tiers": s.Prober.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ServerError("failed to encode response: %v", err)
	}
}
