package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/handcricket/internal/store"
)

// DefaultHistoryLimit caps GET /api/history when no limit is given.
const DefaultHistoryLimit = 20

// HistoryHandler serves finished matches under /api/history.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type listMatchesResponse struct {
	Matches []*store.Match `json:"matches"`
	Total   int            `json:"total"`
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/history"), "/")

	if id == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.list(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		m, err := h.store.Matches().GetByID(id)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	case http.MethodDelete:
		if err := h.store.Matches().Delete(id); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	matches, err := h.store.Matches().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list matches")
		return
	}
	if matches == nil {
		matches = []*store.Match{}
	}
	writeJSON(w, http.StatusOK, listMatchesResponse{Matches: matches, Total: len(matches)})
}

// StatsHandler serves GET /api/stats.
type StatsHandler struct {
	store *store.Store
}

// NewStatsHandler creates a StatsHandler with the given store.
func NewStatsHandler(s *store.Store) *StatsHandler {
	return &StatsHandler{store: s}
}

type statsResponse struct {
	*store.Stats
	// MoveFrequency counts how often the player showed each move, indexed 1-6.
	MoveFrequency map[string]int `json:"moveFrequency"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	stats, err := h.store.Matches().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	freq, err := h.store.Balls().MoveFrequency()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	resp := statsResponse{Stats: stats, MoveFrequency: make(map[string]int, 6)}
	for m := 1; m <= 6; m++ {
		resp.MoveFrequency[strconv.Itoa(m)] = freq[m]
	}
	writeJSON(w, http.StatusOK, resp)
}
