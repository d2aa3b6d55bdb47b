package handlers

import (
	"log"
	"net/http"

	"github.com/smartgallery/backend/internal/gallery"
)

// StatsHandler serves gallery-wide counters.
type StatsHandler struct {
	svc *gallery.Service
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(svc *gallery.Service) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// Get handles GET /stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		log.Printf("collecting stats: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to collect stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
