package handlers

import (
	"log"
	"net/http"

	"github.com/smartgallery/backend/internal/gallery"
)

// CategoriesHandler serves the detected object-class endpoints.
type CategoriesHandler struct {
	svc *gallery.Service
}

// NewCategoriesHandler creates a categories handler.
func NewCategoriesHandler(svc *gallery.Service) *CategoriesHandler {
	return &CategoriesHandler{svc: svc}
}

// List handles GET /categories: every detected class with its
// detection count and photo ids.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		log.Printf("listing categories: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
