package handlers

import (
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/smartgallery/backend/internal/gallery"
)

const defaultSearchLimit = 20

// SearchHandler serves semantic search and similarity lookups.
type SearchHandler struct {
	svc *gallery.Service
}

// NewSearchHandler creates a search handler.
func NewSearchHandler(svc *gallery.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Text handles POST /search/text with a natural language query.
func (h *SearchHandler) Text(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	matches, err := h.svc.SearchByText(r.Context(), req.Query, req.Limit)
	if err != nil {
		log.Printf("text search %q: %v", req.Query, err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": matches})
}

// Image handles POST /search/image: multipart upload of a probe image.
func (h *SearchHandler) Image(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	limit := queryInt(r, "limit", defaultSearchLimit)
	matches, err := h.svc.SearchByImage(r.Context(), data, limit)
	if err != nil {
		log.Printf("image search: %v", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": matches})
}

// ObjectClass handles GET /search/object/{class}: photos showing a
// detected object of the class. Unknown classes return an empty list.
func (h *SearchHandler) ObjectClass(w http.ResponseWriter, r *http.Request) {
	className := chi.URLParam(r, "class")

	limit := queryInt(r, "limit", defaultSearchLimit)
	photos, err := h.svc.SearchByObjectClass(r.Context(), className, limit)
	if err != nil {
		log.Printf("object search %q: %v", className, err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": photos})
}

// SimilarPhotos handles GET /photos/{id}/similar.
func (h *SearchHandler) SimilarPhotos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	photo, err := h.svc.Store().Photo(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}

	limit := queryInt(r, "limit", defaultSearchLimit)
	matches, err := h.svc.SimilarPhotos(r.Context(), id, limit)
	if err != nil {
		log.Printf("similar photos for %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "similarity lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": matches})
}

// SimilarFaces handles GET /faces/{id}/similar.
func (h *SearchHandler) SimilarFaces(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	face, err := h.svc.Store().Face(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load face")
		return
	}
	if face == nil {
		respondError(w, http.StatusNotFound, "face not found")
		return
	}

	limit := queryInt(r, "limit", defaultSearchLimit)
	matches, err := h.svc.SimilarFaces(r.Context(), id, limit)
	if err != nil {
		log.Printf("similar faces for %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "similarity lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": matches})
}
