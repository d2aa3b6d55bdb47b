package gallery

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartgallery/backend/internal/cluster"
	"github.com/smartgallery/backend/internal/ml"
	"github.com/smartgallery/backend/internal/store/memory"
	"github.com/smartgallery/backend/internal/vector"
)

// fakeVision returns canned inference results.
type fakeVision struct {
	imageEmbedding []float32
	textEmbedding  []float32
	faces          []ml.DetectedFace
	objects        []ml.DetectedObject

	imageErr   error
	textErr    error
	facesErr   error
	objectsErr error
}

func (f *fakeVision) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	return f.imageEmbedding, f.imageErr
}

func (f *fakeVision) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.textEmbedding, f.textErr
}

func (f *fakeVision) DetectFaces(ctx context.Context, data []byte) ([]ml.DetectedFace, error) {
	return f.faces, f.facesErr
}

func (f *fakeVision) DetectObjects(ctx context.Context, data []byte) ([]ml.DetectedObject, error) {
	return f.objects, f.objectsErr
}

func testService(t *testing.T, vision *fakeVision) (*Service, *memory.Store) {
	t.Helper()
	dir := t.TempDir()
	photosDir := filepath.Join(dir, "photos")
	thumbsDir := filepath.Join(dir, "thumbs")
	for _, d := range []string{photosDir, thumbsDir} {
		if err := os.MkdirAll(d, 0750); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}

	mem := memory.New()
	registry := vector.NewRegistry(filepath.Join(dir, "index"), 3, 2)
	engine := cluster.New(mem, mem, registry.Face(), 0.6)
	return NewService(mem, registry, engine, vision, photosDir, thumbsDir, 0), mem
}

// pngBytes renders a small test image.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 20), uint8(y * 20), 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadPhotoPipeline(t *testing.T) {
	vision := &fakeVision{
		imageEmbedding: []float32{0.1, 0.2, 0.3},
		faces: []ml.DetectedFace{{
			Embedding:  []float32{1, 0},
			BBox:       []float64{0.1, 0.1, 0.3, 0.3},
			Confidence: 0.97,
			Age:        28,
			Gender:     "male",
		}},
		objects: []ml.DetectedObject{{ClassName: "person", Confidence: 0.9, BBox: []float64{0, 0, 1, 1}}},
	}
	svc, mem := testService(t, vision)
	ctx := context.Background()

	photo, err := svc.UploadPhoto(ctx, "holiday.png", pngBytes(t, 10, 8))
	if err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}
	if photo.Width != 10 || photo.Height != 8 {
		t.Errorf("unexpected dimensions %dx%d", photo.Width, photo.Height)
	}
	if !photo.Processed || photo.ProcessingError != "" {
		t.Errorf("expected clean processing, got %+v", photo)
	}

	stored, err := mem.Photo(ctx, photo.ID)
	if err != nil {
		t.Fatalf("Photo returned error: %v", err)
	}
	if len(stored.Detections) != 1 || stored.Detections[0].ClassName != "person" {
		t.Errorf("unexpected detections: %+v", stored.Detections)
	}
	if len(stored.Faces) != 1 {
		t.Fatalf("expected 1 face, got %d", len(stored.Faces))
	}
	if stored.Faces[0].ClusterID == "" {
		t.Error("expected the face to be clustered")
	}
	if len(stored.ClipEmbedding) != 3 {
		t.Errorf("expected stored clip embedding, got %v", stored.ClipEmbedding)
	}

	if svc.Registry().Clip().Count() != 1 {
		t.Errorf("expected 1 indexed photo, got %d", svc.Registry().Clip().Count())
	}
	if svc.Registry().Face().Count() != 1 {
		t.Errorf("expected 1 indexed face, got %d", svc.Registry().Face().Count())
	}

	// Original and thumbnail written to disk.
	if _, err := os.Stat(svc.PhotoPath(stored)); err != nil {
		t.Errorf("photo file missing: %v", err)
	}
	if _, err := os.Stat(svc.ThumbnailPath(photo.ID)); err != nil {
		t.Errorf("thumbnail missing: %v", err)
	}
}

func TestUploadPhotoStageFailureIsolation(t *testing.T) {
	vision := &fakeVision{
		imageEmbedding: []float32{0.1, 0.2, 0.3},
		facesErr:       errors.New("face model unavailable"),
		objects:        []ml.DetectedObject{{ClassName: "dog", Confidence: 0.8}},
	}
	svc, mem := testService(t, vision)
	ctx := context.Background()

	photo, err := svc.UploadPhoto(ctx, "dog.png", pngBytes(t, 6, 6))
	if err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}

	// The failed stage is recorded, the others still ran.
	if !photo.Processed {
		t.Error("photo must be marked processed despite a stage failure")
	}
	if !strings.Contains(photo.ProcessingError, "faces") {
		t.Errorf("expected faces failure recorded, got %q", photo.ProcessingError)
	}

	stored, _ := mem.Photo(ctx, photo.ID)
	if len(stored.Detections) != 1 {
		t.Errorf("object detection should have run, got %+v", stored.Detections)
	}
	if svc.Registry().Clip().Count() != 1 {
		t.Error("embedding stage should have run")
	}
}

func TestUploadPhotoRejectsGarbage(t *testing.T) {
	svc, _ := testService(t, &fakeVision{})

	if _, err := svc.UploadPhoto(context.Background(), "x.jpg", []byte("not an image")); err == nil {
		t.Error("expected error for undecodable data")
	}
}

func TestDeletePhoto(t *testing.T) {
	vision := &fakeVision{
		imageEmbedding: []float32{0.1, 0.2, 0.3},
		faces:          []ml.DetectedFace{{Embedding: []float32{1, 0}, Confidence: 0.9}},
	}
	svc, _ := testService(t, vision)
	ctx := context.Background()

	photo, err := svc.UploadPhoto(ctx, "a.png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}

	found, err := svc.DeletePhoto(ctx, photo.ID)
	if err != nil {
		t.Fatalf("DeletePhoto returned error: %v", err)
	}
	if !found {
		t.Fatal("expected the photo to be found")
	}

	if svc.Registry().Clip().Count() != 0 || svc.Registry().Face().Count() != 0 {
		t.Error("index entries must be pruned with the photo")
	}
	if _, err := os.Stat(svc.ThumbnailPath(photo.ID)); !os.IsNotExist(err) {
		t.Error("thumbnail file must be removed")
	}

	found, err = svc.DeletePhoto(ctx, "missing")
	if err != nil {
		t.Fatalf("DeletePhoto returned error: %v", err)
	}
	if found {
		t.Error("expected false for unknown photo")
	}
}

func TestSearchByText(t *testing.T) {
	vision := &fakeVision{
		imageEmbedding: []float32{1, 0, 0},
		textEmbedding:  []float32{1, 0, 0},
	}
	svc, _ := testService(t, vision)
	ctx := context.Background()

	photo, err := svc.UploadPhoto(ctx, "a.png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}

	matches, err := svc.SearchByText(ctx, "red square", 5)
	if err != nil {
		t.Fatalf("SearchByText returned error: %v", err)
	}
	if len(matches) != 1 || matches[0].Photo.ID != photo.ID {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if matches[0].Similarity < 0.999 {
		t.Errorf("expected similarity ~1, got %f", matches[0].Similarity)
	}
}

func TestSimilarPhotosExcludesSelf(t *testing.T) {
	vision := &fakeVision{imageEmbedding: []float32{1, 0, 0}}
	svc, _ := testService(t, vision)
	ctx := context.Background()

	first, err := svc.UploadPhoto(ctx, "a.png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}
	vision.imageEmbedding = []float32{0.9, 0.1, 0}
	second, err := svc.UploadPhoto(ctx, "b.png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}

	matches, err := svc.SimilarPhotos(ctx, first.ID, 5)
	if err != nil {
		t.Fatalf("SimilarPhotos returned error: %v", err)
	}
	if len(matches) != 1 || matches[0].Photo.ID != second.ID {
		t.Errorf("expected only the second photo, got %+v", matches)
	}
}

func TestStats(t *testing.T) {
	vision := &fakeVision{
		imageEmbedding: []float32{1, 0, 0},
		faces:          []ml.DetectedFace{{Embedding: []float32{0, 1}, Confidence: 0.9}},
	}
	svc, _ := testService(t, vision)
	ctx := context.Background()

	if _, err := svc.UploadPhoto(ctx, "a.png", pngBytes(t, 4, 4)); err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Photos != 1 || stats.Faces != 1 || stats.Clusters != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.IndexedPhotos != 1 || stats.IndexedFaces != 1 {
		t.Errorf("unexpected index counts: %+v", stats)
	}
}

func TestRebuildIndexes(t *testing.T) {
	vision := &fakeVision{
		imageEmbedding: []float32{1, 0, 0},
		faces:          []ml.DetectedFace{{Embedding: []float32{0, 1}, Confidence: 0.9}},
	}
	svc, _ := testService(t, vision)
	ctx := context.Background()

	if _, err := svc.UploadPhoto(ctx, "a.png", pngBytes(t, 4, 4)); err != nil {
		t.Fatalf("UploadPhoto returned error: %v", err)
	}

	// Simulate index loss, then rebuild from the store.
	svc.Registry().Clip().Reset()
	svc.Registry().Face().Reset()

	var calls int
	if err := svc.RebuildIndexes(ctx, func(done, total int) { calls++ }); err != nil {
		t.Fatalf("RebuildIndexes returned error: %v", err)
	}
	if svc.Registry().Clip().Count() != 1 || svc.Registry().Face().Count() != 1 {
		t.Error("expected both indices repopulated")
	}
	if calls != 2 {
		t.Errorf("expected 2 progress calls, got %d", calls)
	}
}
