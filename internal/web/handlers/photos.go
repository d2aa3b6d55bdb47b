package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smartgallery/backend/internal/gallery"
)

// maxUploadSize bounds multipart uploads (64 MiB).
const maxUploadSize = 64 << 20

// PhotosHandler serves photo CRUD and file endpoints.
type PhotosHandler struct {
	svc *gallery.Service
}

// NewPhotosHandler creates a photos handler.
func NewPhotosHandler(svc *gallery.Service) *PhotosHandler {
	return &PhotosHandler{svc: svc}
}

// List handles GET /photos?limit=&offset=.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	photos, err := h.svc.Store().Photos(r.Context(), limit, offset)
	if err != nil {
		log.Printf("listing photos: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list photos")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"photos": photos,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /photos/{id}.
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	photo, err := h.svc.Store().Photo(r.Context(), id)
	if err != nil {
		log.Printf("loading photo %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	respondJSON(w, http.StatusOK, photo)
}

// Delete handles DELETE /photos/{id}.
func (h *PhotosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := h.svc.DeletePhoto(r.Context(), id)
	if err != nil {
		log.Printf("deleting photo %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to delete photo")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Favorite handles PUT /photos/{id}/favorite.
func (h *PhotosHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	photo, err := h.svc.Store().Photo(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load photo")
		return
	}
	if photo == nil {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}

	if err := h.svc.Store().SetFavorite(r.Context(), id, req.Favorite); err != nil {
		log.Printf("setting favorite on %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to update photo")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": req.Favorite})
}

// File handles GET /photos/{id}/file, serving the original image.
func (h *PhotosHandler) File(w http.ResponseWriter, r *http.Request) {
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
	http.ServeFile(w, r, h.svc.PhotoPath(photo))
}

// Thumbnail handles GET /photos/{id}/thumbnail.
func (h *PhotosHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
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
	http.ServeFile(w, r, h.svc.ThumbnailPath(id))
}

// Upload handles POST /photos, multipart with a "file" part.
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	photo, err := h.svc.UploadPhoto(r.Context(), header.Filename, data)
	if err != nil {
		log.Printf("upload failed: %v", err)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, photo)
}
