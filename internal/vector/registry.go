package vector

import (
	"fmt"
	"path/filepath"
)

// Registry owns the two fixed vector indices of the gallery: one for
// whole-image semantic (CLIP) embeddings keyed by photo id, one for
// face embeddings keyed by face id. It routes domain calls to the right
// index and coordinates bulk persistence.
//
// A Registry is constructed explicitly and passed by handle into the
// components that need it; there is no package-level instance.
type Registry struct {
	clip *FlatIndex
	face *FlatIndex
}

// NewRegistry creates the two indices under dir and restores any
// previously persisted state.
func NewRegistry(dir string, clipDim, faceDim int) *Registry {
	r := &Registry{
		clip: New(clipDim, filepath.Join(dir, "clip.idx"), filepath.Join(dir, "clip.ids")),
		face: New(faceDim, filepath.Join(dir, "face.idx"), filepath.Join(dir, "face.ids")),
	}
	r.clip.LoadOrCreate()
	r.face.LoadOrCreate()
	return r
}

// Clip returns the semantic embedding index.
func (r *Registry) Clip() *FlatIndex {
	return r.clip
}

// Face returns the face embedding index.
func (r *Registry) Face() *FlatIndex {
	return r.face
}

// AddClipEmbedding stores the semantic embedding for a photo.
func (r *Registry) AddClipEmbedding(photoID string, embedding []float32) error {
	return r.clip.Insert(photoID, embedding)
}

// AddFaceEmbedding stores the embedding for a face.
func (r *Registry) AddFaceEmbedding(faceID string, embedding []float32) error {
	return r.face.Insert(faceID, embedding)
}

// RemovePhoto removes the photo's semantic embedding. Face embeddings
// are keyed by face id and must be removed individually via RemoveFace.
func (r *Registry) RemovePhoto(photoID string) bool {
	return r.clip.Remove(photoID)
}

// RemoveFace removes a single face embedding.
func (r *Registry) RemoveFace(faceID string) bool {
	return r.face.Remove(faceID)
}

// SearchByClip finds photos with semantically similar content.
func (r *Registry) SearchByClip(query []float32, k int) ([]Match, error) {
	return r.clip.Search(query, k)
}

// SearchByFace finds faces with similar embeddings.
func (r *Registry) SearchByFace(query []float32, k int) ([]Match, error) {
	return r.face.Search(query, k)
}

// FindSimilarFaces finds up to k faces similar to a face already in the
// index. Returns an empty slice if the face id is unknown. The search
// over-fetches by one and the queried face itself is excluded by id, so
// a tie with another identical embedding never drops the wrong result.
func (r *Registry) FindSimilarFaces(faceID string, k int) ([]Match, error) {
	embedding, ok := r.face.Embedding(faceID)
	if !ok {
		return []Match{}, nil
	}

	matches, err := r.face.Search(embedding, k+1)
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, k)
	for _, m := range matches {
		if m.ID == faceID {
			continue
		}
		out = append(out, m)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// FindSimilarPhotos finds up to k photos similar to a photo already in
// the index, with the same self-exclusion rule as FindSimilarFaces.
func (r *Registry) FindSimilarPhotos(photoID string, k int) ([]Match, error) {
	embedding, ok := r.clip.Embedding(photoID)
	if !ok {
		return []Match{}, nil
	}

	matches, err := r.clip.Search(embedding, k+1)
	if err != nil {
		return nil, err
	}

	out := make([]Match, 0, k)
	for _, m := range matches {
		if m.ID == photoID {
			continue
		}
		out = append(out, m)
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// SaveAll persists both indices to disk.
func (r *Registry) SaveAll() error {
	if err := r.clip.Save(); err != nil {
		return fmt.Errorf("saving clip index: %w", err)
	}
	if err := r.face.Save(); err != nil {
		return fmt.Errorf("saving face index: %w", err)
	}
	return nil
}
