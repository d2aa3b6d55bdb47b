// Package memory provides an in-process implementation of store.Store.
// It backs handler and clustering tests and serves as the zero-config
// fallback when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/smartgallery/backend/internal/store"
)

// Store is an in-memory store.Store implementation guarded by a single lock.
type Store struct {
	mu       sync.RWMutex
	photos   map[string]*store.Photo
	faces    map[string]*store.Face
	clusters map[string]*store.Cluster
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		photos:   make(map[string]*store.Photo),
		faces:    make(map[string]*store.Face),
		clusters: make(map[string]*store.Cluster),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// CreatePhoto stores a new photo record, assigning an id if missing.
func (s *Store) CreatePhoto(ctx context.Context, photo *store.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now()
	}
	cp := *photo
	s.photos[photo.ID] = &cp
	return nil
}

// Photo retrieves a photo with its detections and faces.
func (s *Store) Photo(ctx context.Context, id string) (*store.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.photos[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Faces = s.facesByPhotoLocked(id)
	return &cp, nil
}

// Photos lists photos ordered by upload time descending.
func (s *Store) Photos(ctx context.Context, limit, offset int) ([]store.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]store.Photo, 0, len(s.photos))
	for _, p := range s.photos {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UploadedAt.Equal(all[j].UploadedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].UploadedAt.After(all[j].UploadedAt)
	})

	if offset >= len(all) {
		return []store.Photo{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// UpdatePhotoStatus records the outcome of the processing pipeline.
func (s *Store) UpdatePhotoStatus(ctx context.Context, id string, processed bool, processingError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.photos[id]; ok {
		p.Processed = processed
		p.ProcessingError = processingError
	}
	return nil
}

// SetClipEmbedding stores the photo's semantic embedding.
func (s *Store) SetClipEmbedding(ctx context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.photos[id]; ok {
		p.ClipEmbedding = append([]float32(nil), embedding...)
	}
	return nil
}

// SetFavorite flags or unflags a photo as favorite.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.photos[id]; ok {
		p.Favorite = favorite
	}
	return nil
}

// DeletePhoto removes a photo and its faces, returning the face ids.
func (s *Store) DeletePhoto(ctx context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.photos, id)

	var faceIDs []string
	for faceID, f := range s.faces {
		if f.PhotoID == id {
			faceIDs = append(faceIDs, faceID)
			delete(s.faces, faceID)
		}
	}
	sort.Strings(faceIDs)
	return faceIDs, nil
}

// AddDetections stores object-detection results for a photo.
func (s *Store) AddDetections(ctx context.Context, photoID string, detections []store.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.photos[photoID]
	if !ok {
		return nil
	}
	for i := range detections {
		if detections[i].ID == "" {
			detections[i].ID = uuid.NewString()
		}
		detections[i].PhotoID = photoID
	}
	p.Detections = append(p.Detections, detections...)
	return nil
}

// Categories aggregates detections by class, most detected class first.
func (s *Store) Categories(ctx context.Context) ([]store.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byClass := make(map[string]*store.Category)
	seen := make(map[string]map[string]bool)
	for _, p := range s.photos {
		for _, d := range p.Detections {
			c, ok := byClass[d.ClassName]
			if !ok {
				c = &store.Category{ClassName: d.ClassName}
				byClass[d.ClassName] = c
				seen[d.ClassName] = make(map[string]bool)
			}
			c.Count++
			if !seen[d.ClassName][p.ID] {
				seen[d.ClassName][p.ID] = true
				c.PhotoIDs = append(c.PhotoIDs, p.ID)
			}
		}
	}

	out := make([]store.Category, 0, len(byClass))
	for _, c := range byClass {
		sort.Strings(c.PhotoIDs)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].ClassName < out[j].ClassName
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// PhotosByClass returns photos with a detection of the class, newest first.
func (s *Store) PhotosByClass(ctx context.Context, className string) ([]store.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []store.Photo{}
	for _, p := range s.photos {
		for _, d := range p.Detections {
			if d.ClassName == className {
				out = append(out, *p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

// CountDetections returns the total number of stored detections.
func (s *Store) CountDetections(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.photos {
		count += len(p.Detections)
	}
	return count, nil
}

// CountCategories returns the number of distinct detection classes.
func (s *Store) CountCategories(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	classes := make(map[string]bool)
	for _, p := range s.photos {
		for _, d := range p.Detections {
			classes[d.ClassName] = true
		}
	}
	return len(classes), nil
}

// TotalFileSize returns the summed byte size of all stored originals.
func (s *Store) TotalFileSize(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, p := range s.photos {
		total += p.FileSize
	}
	return total, nil
}

// PhotosWithClipEmbeddings returns photos with a stored semantic embedding.
func (s *Store) PhotosWithClipEmbeddings(ctx context.Context) ([]store.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Photo
	for _, p := range s.photos {
		if len(p.ClipEmbedding) > 0 {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UploadedAt.Before(out[j].UploadedAt)
	})
	return out, nil
}

// CountPhotos returns the total number of photos.
func (s *Store) CountPhotos(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos), nil
}

// CountFavorites returns the number of favorite photos.
func (s *Store) CountFavorites(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.photos {
		if p.Favorite {
			count++
		}
	}
	return count, nil
}

// CreateFace stores a new face record, assigning an id if missing.
func (s *Store) CreateFace(ctx context.Context, face *store.Face) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if face.ID == "" {
		face.ID = uuid.NewString()
	}
	if face.CreatedAt.IsZero() {
		face.CreatedAt = time.Now()
	}
	cp := *face
	cp.Embedding = append([]float32(nil), face.Embedding...)
	s.faces[face.ID] = &cp
	return nil
}

// Face retrieves a face by id.
func (s *Store) Face(ctx context.Context, id string) (*store.Face, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.faces[id]
	if !ok {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

// FacesByCluster returns all faces assigned to a cluster.
func (s *Store) FacesByCluster(ctx context.Context, clusterID string) ([]store.Face, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Face
	for _, f := range s.faces {
		if f.ClusterID == clusterID {
			out = append(out, *f)
		}
	}
	sortFaces(out)
	return out, nil
}

// FacesByPhoto returns all faces detected in a photo.
func (s *Store) FacesByPhoto(ctx context.Context, photoID string) ([]store.Face, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facesByPhotoLocked(photoID), nil
}

func (s *Store) facesByPhotoLocked(photoID string) []store.Face {
	var out []store.Face
	for _, f := range s.faces {
		if f.PhotoID == photoID {
			out = append(out, *f)
		}
	}
	sortFaces(out)
	return out
}

// FacesWithEmbeddings returns faces carrying an embedding in
// deterministic (creation time, id) order.
func (s *Store) FacesWithEmbeddings(ctx context.Context) ([]store.Face, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.Face
	for _, f := range s.faces {
		if len(f.Embedding) > 0 {
			out = append(out, *f)
		}
	}
	sortFaces(out)
	return out, nil
}

// SetFaceCluster assigns a face to a cluster; empty clusterID clears it.
func (s *Store) SetFaceCluster(ctx context.Context, faceID, clusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.faces[faceID]; ok {
		f.ClusterID = clusterID
	}
	return nil
}

// ReassignCluster moves every face from one cluster to another.
func (s *Store) ReassignCluster(ctx context.Context, fromClusterID, toClusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.faces {
		if f.ClusterID == fromClusterID {
			f.ClusterID = toClusterID
		}
	}
	return nil
}

// ClearClusterAssignments removes the cluster assignment from all faces.
func (s *Store) ClearClusterAssignments(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.faces {
		f.ClusterID = ""
	}
	return nil
}

// CountFaces returns the total number of faces.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.faces), nil
}

// CreateCluster stores a new cluster, assigning an id if missing.
func (s *Store) CreateCluster(ctx context.Context, cluster *store.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cluster.ID == "" {
		cluster.ID = uuid.NewString()
	}
	now := time.Now()
	if cluster.CreatedAt.IsZero() {
		cluster.CreatedAt = now
	}
	cluster.UpdatedAt = now

	cp := *cluster
	cp.Centroid = append([]float32(nil), cluster.Centroid...)
	s.clusters[cluster.ID] = &cp
	return nil
}

// Cluster retrieves a cluster by id.
func (s *Store) Cluster(ctx context.Context, id string) (*store.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clusters[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.FaceCount = s.faceCountLocked(id)
	return &cp, nil
}

// Clusters lists all clusters with face counts, largest first.
func (s *Store) Clusters(ctx context.Context) ([]store.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Cluster, 0, len(s.clusters))
	for id, c := range s.clusters {
		cp := *c
		cp.FaceCount = s.faceCountLocked(id)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FaceCount == out[j].FaceCount {
			return out[i].ID < out[j].ID
		}
		return out[i].FaceCount > out[j].FaceCount
	})
	return out, nil
}

// ClustersByName returns clusters matching the normalized name.
func (s *Store) ClustersByName(ctx context.Context, name string) ([]store.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := store.NormalizePersonName(name)
	var out []store.Cluster
	for id, c := range s.clusters {
		if c.Name != "" && store.NormalizePersonName(c.Name) == want {
			cp := *c
			cp.FaceCount = s.faceCountLocked(id)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RenameCluster sets the user-assigned name.
func (s *Store) RenameCluster(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clusters[id]; ok {
		c.Name = name
		c.UpdatedAt = time.Now()
	}
	return nil
}

// UpdateCentroid replaces the cluster centroid.
func (s *Store) UpdateCentroid(ctx context.Context, id string, centroid []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clusters[id]; ok {
		c.Centroid = append([]float32(nil), centroid...)
		c.UpdatedAt = time.Now()
	}
	return nil
}

// DeleteCluster removes a cluster; member faces lose their assignment.
func (s *Store) DeleteCluster(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.clusters, id)
	for _, f := range s.faces {
		if f.ClusterID == id {
			f.ClusterID = ""
		}
	}
	return nil
}

// DeleteAllClusters removes every cluster.
func (s *Store) DeleteAllClusters(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Match the SQL backends, where the foreign key clears assignments.
	for _, f := range s.faces {
		f.ClusterID = ""
	}
	s.clusters = make(map[string]*store.Cluster)
	return nil
}

// PhotoIDsByCluster returns distinct photo ids with faces in a cluster.
func (s *Store) PhotoIDsByCluster(ctx context.Context, clusterID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, f := range s.faces {
		if f.ClusterID == clusterID && !seen[f.PhotoID] {
			seen[f.PhotoID] = true
			out = append(out, f.PhotoID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CountClusters returns the total number of clusters.
func (s *Store) CountClusters(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clusters), nil
}

func (s *Store) faceCountLocked(clusterID string) int {
	count := 0
	for _, f := range s.faces {
		if f.ClusterID == clusterID {
			count++
		}
	}
	return count
}

func sortFaces(faces []store.Face) {
	sort.Slice(faces, func(i, j int) bool {
		if faces[i].CreatedAt.Equal(faces[j].CreatedAt) {
			return faces[i].ID < faces[j].ID
		}
		return faces[i].CreatedAt.Before(faces[j].CreatedAt)
	})
}
