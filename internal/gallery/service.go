// Package gallery orchestrates photo ingestion: file storage,
// inference, indexing and face clustering.
package gallery

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/smartgallery/backend/internal/cluster"
	"github.com/smartgallery/backend/internal/ml"
	"github.com/smartgallery/backend/internal/store"
	"github.com/smartgallery/backend/internal/vector"
)

// Service wires the store, the vector indices, the clustering engine
// and the inference client into the gallery operations the API exposes.
type Service struct {
	store     store.Store
	registry  *vector.Registry
	engine    *cluster.Engine
	vision    ml.Vision
	photosDir string
	thumbsDir string
	thumbSize int
}

// PhotoMatch is a search hit joined with its photo record.
type PhotoMatch struct {
	Photo      store.Photo `json:"photo"`
	Similarity float32     `json:"similarity"`
}

// FaceMatch is a face-search hit joined with its face record.
type FaceMatch struct {
	Face       store.Face `json:"face"`
	Similarity float32    `json:"similarity"`
}

// Stats extends the store counts with the index sizes.
type Stats struct {
	store.GalleryStats
	IndexedPhotos int `json:"indexed_photos"`
	IndexedFaces  int `json:"indexed_faces"`
}

// NewService creates a gallery service storing originals in photosDir
// and thumbnails in thumbsDir. A thumbnailSize of zero or less uses
// DefaultThumbnailSize.
func NewService(st store.Store, registry *vector.Registry, engine *cluster.Engine, vision ml.Vision, photosDir, thumbsDir string, thumbnailSize int) *Service {
	if thumbnailSize <= 0 {
		thumbnailSize = DefaultThumbnailSize
	}
	return &Service{
		store:     st,
		registry:  registry,
		engine:    engine,
		vision:    vision,
		photosDir: photosDir,
		thumbsDir: thumbsDir,
		thumbSize: thumbnailSize,
	}
}

// Store exposes the underlying store for read handlers.
func (s *Service) Store() store.Store {
	return s.store
}

// Registry exposes the vector indices.
func (s *Service) Registry() *vector.Registry {
	return s.registry
}

// Engine exposes the clustering engine.
func (s *Service) Engine() *cluster.Engine {
	return s.engine
}

// UploadPhoto stores a new image and runs the processing pipeline. The
// photo record exists even when parts of processing fail; failures are
// recorded on the record instead of failing the upload.
func (s *Service) UploadPhoto(ctx context.Context, originalName string, data []byte) (*store.Photo, error) {
	width, height, err := ImageDimensions(data)
	if err != nil {
		return nil, fmt.Errorf("unsupported image: %w", err)
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	filename := id + ext

	if err := os.WriteFile(filepath.Join(s.photosDir, filename), data, 0600); err != nil {
		return nil, fmt.Errorf("saving photo file: %w", err)
	}

	if thumb, err := MakeThumbnail(data, s.thumbSize); err != nil {
		log.Printf("thumbnail failed for %s: %v", id, err)
	} else if err := os.WriteFile(filepath.Join(s.thumbsDir, id+".jpg"), thumb, 0600); err != nil {
		log.Printf("saving thumbnail for %s failed: %v", id, err)
	}

	photo := &store.Photo{
		ID:               id,
		Filename:         filename,
		OriginalFilename: originalName,
		FileSize:         int64(len(data)),
		MimeType:         http.DetectContentType(data),
		Width:            width,
		Height:           height,
	}
	if err := s.store.CreatePhoto(ctx, photo); err != nil {
		return nil, fmt.Errorf("creating photo record: %w", err)
	}

	s.Process(ctx, photo, data)
	return photo, nil
}

// Process runs the three analysis stages on a photo. The stages are
// independent: a failure is logged and recorded on the photo record but
// does not stop the remaining stages.
func (s *Service) Process(ctx context.Context, photo *store.Photo, data []byte) {
	var failures []string

	if err := s.detectObjects(ctx, photo.ID, data); err != nil {
		log.Printf("object detection failed for %s: %v", photo.ID, err)
		failures = append(failures, fmt.Sprintf("object detection: %v", err))
	}
	if err := s.processFaces(ctx, photo, data); err != nil {
		log.Printf("face processing failed for %s: %v", photo.ID, err)
		failures = append(failures, fmt.Sprintf("faces: %v", err))
	}
	if err := s.embedPhoto(ctx, photo.ID, data); err != nil {
		log.Printf("embedding failed for %s: %v", photo.ID, err)
		failures = append(failures, fmt.Sprintf("embedding: %v", err))
	}

	photo.Processed = true
	photo.ProcessingError = strings.Join(failures, "; ")
	if err := s.store.UpdatePhotoStatus(ctx, photo.ID, true, photo.ProcessingError); err != nil {
		log.Printf("updating status for %s failed: %v", photo.ID, err)
	}
}

func (s *Service) detectObjects(ctx context.Context, photoID string, data []byte) error {
	objects, err := s.vision.DetectObjects(ctx, data)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return nil
	}

	detections := make([]store.Detection, len(objects))
	for i, o := range objects {
		detections[i] = store.Detection{
			ClassName:  o.ClassName,
			Confidence: o.Confidence,
			BBox:       o.BBox,
		}
	}
	return s.store.AddDetections(ctx, photoID, detections)
}

func (s *Service) processFaces(ctx context.Context, photo *store.Photo, data []byte) error {
	detected, err := s.vision.DetectFaces(ctx, data)
	if err != nil {
		return err
	}

	for _, d := range detected {
		face := &store.Face{
			PhotoID:    photo.ID,
			Confidence: d.Confidence,
			BBox:       d.BBox,
			Age:        d.Age,
			Gender:     d.Gender,
			Embedding:  d.Embedding,
		}
		if err := s.store.CreateFace(ctx, face); err != nil {
			return fmt.Errorf("creating face record: %w", err)
		}
		if len(d.Embedding) == 0 {
			continue
		}
		if err := s.registry.AddFaceEmbedding(face.ID, d.Embedding); err != nil {
			return fmt.Errorf("indexing face %s: %w", face.ID, err)
		}
		if _, err := s.engine.AssignFaceToCluster(ctx, face, d.Embedding); err != nil {
			return fmt.Errorf("clustering face %s: %w", face.ID, err)
		}
	}
	return nil
}

func (s *Service) embedPhoto(ctx context.Context, photoID string, data []byte) error {
	embedding, err := s.vision.EmbedImage(ctx, data)
	if err != nil {
		return err
	}
	if err := s.store.SetClipEmbedding(ctx, photoID, embedding); err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	if err := s.registry.AddClipEmbedding(photoID, embedding); err != nil {
		return fmt.Errorf("indexing embedding: %w", err)
	}
	return nil
}

// DeletePhoto removes a photo, its faces, its index entries and its
// files. Returns false if the photo does not exist.
func (s *Service) DeletePhoto(ctx context.Context, id string) (bool, error) {
	photo, err := s.store.Photo(ctx, id)
	if err != nil {
		return false, err
	}
	if photo == nil {
		return false, nil
	}

	faceIDs, err := s.store.DeletePhoto(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting photo record: %w", err)
	}

	s.registry.RemovePhoto(id)
	for _, faceID := range faceIDs {
		s.registry.RemoveFace(faceID)
	}

	if photo.Filename != "" {
		if err := os.Remove(filepath.Join(s.photosDir, photo.Filename)); err != nil && !os.IsNotExist(err) {
			log.Printf("removing photo file %s: %v", photo.Filename, err)
		}
	}
	if err := os.Remove(filepath.Join(s.thumbsDir, id+".jpg")); err != nil && !os.IsNotExist(err) {
		log.Printf("removing thumbnail for %s: %v", id, err)
	}
	return true, nil
}

// PhotoPath returns the on-disk path of a photo's original file.
func (s *Service) PhotoPath(photo *store.Photo) string {
	return filepath.Join(s.photosDir, photo.Filename)
}

// ThumbnailPath returns the on-disk path of a photo's thumbnail.
func (s *Service) ThumbnailPath(photoID string) string {
	return filepath.Join(s.thumbsDir, photoID+".jpg")
}

// SearchByText embeds a text query and finds matching photos.
func (s *Service) SearchByText(ctx context.Context, query string, k int) ([]PhotoMatch, error) {
	embedding, err := s.vision.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	matches, err := s.registry.SearchByClip(embedding, k)
	if err != nil {
		return nil, err
	}
	return s.hydratePhotos(ctx, matches)
}

// SearchByImage embeds an uploaded image and finds matching photos.
func (s *Service) SearchByImage(ctx context.Context, data []byte, k int) ([]PhotoMatch, error) {
	embedding, err := s.vision.EmbedImage(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("embedding image: %w", err)
	}
	matches, err := s.registry.SearchByClip(embedding, k)
	if err != nil {
		return nil, err
	}
	return s.hydratePhotos(ctx, matches)
}

// SimilarPhotos finds photos similar to an already indexed photo.
func (s *Service) SimilarPhotos(ctx context.Context, photoID string, k int) ([]PhotoMatch, error) {
	matches, err := s.registry.FindSimilarPhotos(photoID, k)
	if err != nil {
		return nil, err
	}
	return s.hydratePhotos(ctx, matches)
}

// SimilarFaces finds faces similar to an already indexed face.
func (s *Service) SimilarFaces(ctx context.Context, faceID string, k int) ([]FaceMatch, error) {
	matches, err := s.registry.FindSimilarFaces(faceID, k)
	if err != nil {
		return nil, err
	}

	out := make([]FaceMatch, 0, len(matches))
	for _, m := range matches {
		face, err := s.store.Face(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if face == nil {
			// Index entry with no record; skip rather than fail the search.
			continue
		}
		out = append(out, FaceMatch{Face: *face, Similarity: m.Similarity})
	}
	return out, nil
}

// Categories lists the detected object classes with their detection
// counts and photo ids, most detected class first.
func (s *Service) Categories(ctx context.Context) ([]store.Category, error) {
	return s.store.Categories(ctx)
}

// SearchByObjectClass returns up to k photos showing an object of the
// given class, newest first. Unknown classes yield an empty slice.
func (s *Service) SearchByObjectClass(ctx context.Context, className string, k int) ([]store.Photo, error) {
	photos, err := s.store.PhotosByClass(ctx, className)
	if err != nil {
		return nil, err
	}
	if k > 0 && k < len(photos) {
		photos = photos[:k]
	}
	return photos, nil
}

func (s *Service) hydratePhotos(ctx context.Context, matches []vector.Match) ([]PhotoMatch, error) {
	out := make([]PhotoMatch, 0, len(matches))
	for _, m := range matches {
		photo, err := s.store.Photo(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		if photo == nil {
			continue
		}
		out = append(out, PhotoMatch{Photo: *photo, Similarity: m.Similarity})
	}
	return out, nil
}

// Stats collects gallery and index counts.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	photos, err := s.store.CountPhotos(ctx)
	if err != nil {
		return nil, err
	}
	faces, err := s.store.CountFaces(ctx)
	if err != nil {
		return nil, err
	}
	clusters, err := s.store.CountClusters(ctx)
	if err != nil {
		return nil, err
	}
	favorites, err := s.store.CountFavorites(ctx)
	if err != nil {
		return nil, err
	}
	detections, err := s.store.CountDetections(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.CountCategories(ctx)
	if err != nil {
		return nil, err
	}
	storageBytes, err := s.store.TotalFileSize(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		GalleryStats: store.GalleryStats{
			Photos:       photos,
			Faces:        faces,
			Clusters:     clusters,
			Favorites:    favorites,
			Detections:   detections,
			Categories:   categories,
			StorageBytes: storageBytes,
		},
		IndexedPhotos: s.registry.Clip().Count(),
		IndexedFaces:  s.registry.Face().Count(),
	}, nil
}

// RebuildIndexes repopulates both vector indices from the embeddings
// stored in the database. Useful after index file loss.
func (s *Service) RebuildIndexes(ctx context.Context, progress func(done, total int)) error {
	photos, err := s.store.PhotosWithClipEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("loading photo embeddings: %w", err)
	}
	faces, err := s.store.FacesWithEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("loading face embeddings: %w", err)
	}

	s.registry.Clip().Reset()
	s.registry.Face().Reset()

	total := len(photos) + len(faces)
	done := 0
	for i := range photos {
		if err := s.registry.AddClipEmbedding(photos[i].ID, photos[i].ClipEmbedding); err != nil {
			return fmt.Errorf("indexing photo %s: %w", photos[i].ID, err)
		}
		done++
		if progress != nil {
			progress(done, total)
		}
	}
	for i := range faces {
		if err := s.registry.AddFaceEmbedding(faces[i].ID, faces[i].Embedding); err != nil {
			return fmt.Errorf("indexing face %s: %w", faces[i].ID, err)
		}
		done++
		if progress != nil {
			progress(done, total)
		}
	}
	return nil
}
