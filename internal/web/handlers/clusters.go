package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/smartgallery/backend/internal/gallery"
)

// ClustersHandler serves the people (face cluster) endpoints.
type ClustersHandler struct {
	svc *gallery.Service
}

// NewClustersHandler creates a clusters handler.
func NewClustersHandler(svc *gallery.Service) *ClustersHandler {
	return &ClustersHandler{svc: svc}
}

// List handles GET /clusters?name=. Without a name filter it returns
// every cluster, largest first.
func (h *ClustersHandler) List(w http.ResponseWriter, r *http.Request) {
	store := h.svc.Store()

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name != "" {
		matched, err := store.ClustersByName(r.Context(), name)
		if err != nil {
			log.Printf("querying clusters by name: %v", err)
			respondError(w, http.StatusInternalServerError, "failed to list clusters")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"clusters": matched})
		return
	}

	all, err := store.Clusters(r.Context())
	if err != nil {
		log.Printf("listing clusters: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list clusters")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"clusters": all})
}

// Get handles GET /clusters/{id}, returning the cluster and its faces.
func (h *ClustersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cluster, err := h.svc.Store().Cluster(r.Context(), id)
	if err != nil {
		log.Printf("loading cluster %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load cluster")
		return
	}
	if cluster == nil {
		respondError(w, http.StatusNotFound, "cluster not found")
		return
	}

	faces, err := h.svc.Store().FacesByCluster(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load cluster faces")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"cluster": cluster,
		"faces":   faces,
	})
}

// Rename handles PATCH /clusters/{id}.
func (h *ClustersHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	cluster, err := h.svc.Store().Cluster(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load cluster")
		return
	}
	if cluster == nil {
		respondError(w, http.StatusNotFound, "cluster not found")
		return
	}

	if err := h.svc.Store().RenameCluster(r.Context(), id, strings.TrimSpace(req.Name)); err != nil {
		log.Printf("renaming cluster %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to rename cluster")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "name": strings.TrimSpace(req.Name)})
}

// Merge handles POST /clusters/{id}/merge, absorbing another cluster.
func (h *ClustersHandler) Merge(w http.ResponseWriter, r *http.Request) {
	keepID := chi.URLParam(r, "id")

	var req struct {
		AbsorbID string `json:"absorb_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.AbsorbID == "" || req.AbsorbID == keepID {
		respondError(w, http.StatusBadRequest, "absorb_id must name a different cluster")
		return
	}

	for _, id := range []string{keepID, req.AbsorbID} {
		cluster, err := h.svc.Store().Cluster(r.Context(), id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load cluster")
			return
		}
		if cluster == nil {
			respondError(w, http.StatusNotFound, "cluster not found: "+id)
			return
		}
	}

	if _, err := h.svc.Engine().MergeClusters(r.Context(), keepID, req.AbsorbID); err != nil {
		log.Printf("merging %s into %s: %v", req.AbsorbID, keepID, err)
		respondError(w, http.StatusInternalServerError, "failed to merge clusters")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": keepID})
}

// Photos handles GET /clusters/{id}/photos.
func (h *ClustersHandler) Photos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cluster, err := h.svc.Store().Cluster(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load cluster")
		return
	}
	if cluster == nil {
		respondError(w, http.StatusNotFound, "cluster not found")
		return
	}

	photoIDs, err := h.svc.Store().PhotoIDsByCluster(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load cluster photos")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"photo_ids": photoIDs})
}

// SplitFace handles POST /faces/{id}/split, moving a face out of its
// cluster into a new singleton.
func (h *ClustersHandler) SplitFace(w http.ResponseWriter, r *http.Request) {
	faceID := chi.URLParam(r, "id")

	face, err := h.svc.Store().Face(r.Context(), faceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load face")
		return
	}
	if face == nil {
		respondError(w, http.StatusNotFound, "face not found")
		return
	}

	newID, err := h.svc.Engine().SplitFaceToNewCluster(r.Context(), faceID)
	if err != nil {
		log.Printf("splitting face %s: %v", faceID, err)
		respondError(w, http.StatusInternalServerError, "failed to split face")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"face_id": faceID, "cluster_id": newID})
}

// Recluster handles POST /clusters/recluster: destructive full rebuild.
func (h *ClustersHandler) Recluster(w http.ResponseWriter, r *http.Request) {
	processed, err := h.svc.Engine().ReclusterAll(r.Context(), nil)
	if err != nil {
		log.Printf("recluster failed: %v", err)
		respondError(w, http.StatusInternalServerError, "recluster failed")
		return
	}

	clusters, err := h.svc.Store().CountClusters(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "recluster finished, count failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{
		"faces_processed": processed,
		"clusters":        clusters,
	})
}
