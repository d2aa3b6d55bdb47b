package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartgallery/backend/internal/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gallery.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("first Open returned error: %v", err)
	}
	s.Close()

	// Reopening must not re-apply migrations.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}
	s.Close()
}

func TestPhotoRoundtrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	taken := time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC)
	photo := &store.Photo{
		Filename:         "abc123.jpg",
		OriginalFilename: "beach.jpg",
		FileSize:         2048,
		MimeType:         "image/jpeg",
		Width:            4000,
		Height:           3000,
		TakenAt:          &taken,
		ClipEmbedding:    []float32{0.1, 0.2, 0.3},
	}
	if err := s.CreatePhoto(ctx, photo); err != nil {
		t.Fatalf("CreatePhoto returned error: %v", err)
	}

	got, err := s.Photo(ctx, photo.ID)
	if err != nil {
		t.Fatalf("Photo returned error: %v", err)
	}
	if got == nil {
		t.Fatal("photo not found after insert")
	}
	if got.OriginalFilename != "beach.jpg" || got.Width != 4000 {
		t.Errorf("unexpected photo: %+v", got)
	}
	if got.TakenAt == nil || !got.TakenAt.Equal(taken) {
		t.Errorf("taken_at mismatch: %v", got.TakenAt)
	}
	if len(got.ClipEmbedding) != 3 || got.ClipEmbedding[1] != 0.2 {
		t.Errorf("embedding mismatch: %v", got.ClipEmbedding)
	}
}

func TestPhotoNotFound(t *testing.T) {
	s := testStore(t)

	got, err := s.Photo(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Photo returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown id, got %+v", got)
	}
}

func TestDeletePhotoCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	photo := &store.Photo{ID: "p1", Filename: "a.jpg"}
	if err := s.CreatePhoto(ctx, photo); err != nil {
		t.Fatalf("CreatePhoto returned error: %v", err)
	}
	if err := s.AddDetections(ctx, "p1", []store.Detection{
		{ClassName: "dog", Confidence: 0.92, BBox: []float64{0.1, 0.1, 0.5, 0.5}},
	}); err != nil {
		t.Fatalf("AddDetections returned error: %v", err)
	}
	for _, id := range []string{"f1", "f2"} {
		face := &store.Face{ID: id, PhotoID: "p1", Embedding: []float32{1, 0}}
		if err := s.CreateFace(ctx, face); err != nil {
			t.Fatalf("CreateFace returned error: %v", err)
		}
	}

	faceIDs, err := s.DeletePhoto(ctx, "p1")
	if err != nil {
		t.Fatalf("DeletePhoto returned error: %v", err)
	}
	if len(faceIDs) != 2 {
		t.Errorf("expected 2 deleted face ids, got %v", faceIDs)
	}

	if f, _ := s.Face(ctx, "f1"); f != nil {
		t.Error("face should cascade on photo delete")
	}
	count, _ := s.CountFaces(ctx)
	if count != 0 {
		t.Errorf("expected 0 faces after cascade, got %d", count)
	}
}

func TestFaceClusterAssignment(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreatePhoto(ctx, &store.Photo{ID: "p1", Filename: "a.jpg"}); err != nil {
		t.Fatalf("CreatePhoto returned error: %v", err)
	}
	if err := s.CreateCluster(ctx, &store.Cluster{ID: "c1", Centroid: []float32{1, 0}}); err != nil {
		t.Fatalf("CreateCluster returned error: %v", err)
	}

	face := &store.Face{
		ID: "f1", PhotoID: "p1", Confidence: 0.98,
		BBox: []float64{0.2, 0.2, 0.4, 0.4}, Age: 30, Gender: "female",
		Embedding: []float32{1, 0},
	}
	if err := s.CreateFace(ctx, face); err != nil {
		t.Fatalf("CreateFace returned error: %v", err)
	}

	if err := s.SetFaceCluster(ctx, "f1", "c1"); err != nil {
		t.Fatalf("SetFaceCluster returned error: %v", err)
	}
	got, _ := s.Face(ctx, "f1")
	if got.ClusterID != "c1" {
		t.Errorf("expected cluster c1, got %q", got.ClusterID)
	}

	// Deleting the cluster clears the assignment via the foreign key.
	if err := s.DeleteCluster(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCluster returned error: %v", err)
	}
	got, _ = s.Face(ctx, "f1")
	if got.ClusterID != "" {
		t.Errorf("expected cleared cluster after delete, got %q", got.ClusterID)
	}

	// Clearing the assignment explicitly also works.
	if err := s.CreateCluster(ctx, &store.Cluster{ID: "c2"}); err != nil {
		t.Fatalf("CreateCluster returned error: %v", err)
	}
	s.SetFaceCluster(ctx, "f1", "c2")
	if err := s.SetFaceCluster(ctx, "f1", ""); err != nil {
		t.Fatalf("SetFaceCluster returned error: %v", err)
	}
	got, _ = s.Face(ctx, "f1")
	if got.ClusterID != "" {
		t.Errorf("expected no cluster, got %q", got.ClusterID)
	}
}

func TestClusterList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreatePhoto(ctx, &store.Photo{ID: "p1", Filename: "a.jpg"}); err != nil {
		t.Fatalf("CreatePhoto returned error: %v", err)
	}
	s.CreateCluster(ctx, &store.Cluster{ID: "c1", Name: "Věra"})
	s.CreateCluster(ctx, &store.Cluster{ID: "c2"})

	for i, cid := range []string{"c1", "c1", "c2"} {
		face := &store.Face{
			ID: string(rune('a' + i)), PhotoID: "p1",
			ClusterID: cid, Embedding: []float32{1},
		}
		if err := s.CreateFace(ctx, face); err != nil {
			t.Fatalf("CreateFace returned error: %v", err)
		}
	}

	clusters, err := s.Clusters(ctx)
	if err != nil {
		t.Fatalf("Clusters returned error: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].ID != "c1" || clusters[0].FaceCount != 2 {
		t.Errorf("expected c1 with 2 faces first, got %+v", clusters[0])
	}

	byName, err := s.ClustersByName(ctx, "vera")
	if err != nil {
		t.Fatalf("ClustersByName returned error: %v", err)
	}
	if len(byName) != 1 || byName[0].ID != "c1" {
		t.Errorf("expected normalized name match on c1, got %+v", byName)
	}

	photoIDs, err := s.PhotoIDsByCluster(ctx, "c1")
	if err != nil {
		t.Fatalf("PhotoIDsByCluster returned error: %v", err)
	}
	if len(photoIDs) != 1 || photoIDs[0] != "p1" {
		t.Errorf("expected [p1], got %v", photoIDs)
	}
}

func TestFacesWithEmbeddingsOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreatePhoto(ctx, &store.Photo{ID: "p1", Filename: "a.jpg"}); err != nil {
		t.Fatalf("CreatePhoto returned error: %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	faces := []*store.Face{
		{ID: "b", PhotoID: "p1", Embedding: []float32{1}, CreatedAt: base.Add(time.Hour)},
		{ID: "a", PhotoID: "p1", Embedding: []float32{1}, CreatedAt: base.Add(time.Hour)},
		{ID: "c", PhotoID: "p1", Embedding: []float32{1}, CreatedAt: base},
		{ID: "d", PhotoID: "p1", CreatedAt: base},
	}
	for _, f := range faces {
		if err := s.CreateFace(ctx, f); err != nil {
			t.Fatalf("CreateFace returned error: %v", err)
		}
	}

	got, err := s.FacesWithEmbeddings(ctx)
	if err != nil {
		t.Fatalf("FacesWithEmbeddings returned error: %v", err)
	}
	want := []string{"c", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d faces, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestCategories(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"p1", "p2", "p3"} {
		photo := &store.Photo{ID: id, Filename: id + ".jpg", FileSize: 100, UploadedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.CreatePhoto(ctx, photo); err != nil {
			t.Fatalf("CreatePhoto returned error: %v", err)
		}
	}
	addDetections := func(photoID string, classes ...string) {
		t.Helper()
		detections := make([]store.Detection, len(classes))
		for i, c := range classes {
			detections[i] = store.Detection{ClassName: c, Confidence: 0.9, BBox: []float64{0, 0, 1, 1}}
		}
		if err := s.AddDetections(ctx, photoID, detections); err != nil {
			t.Fatalf("AddDetections returned error: %v", err)
		}
	}
	addDetections("p1", "dog", "dog")
	addDetections("p2", "dog", "cat")
	addDetections("p3", "cat")

	categories, err := s.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories returned error: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(categories))
	}
	dog := categories[0]
	if dog.ClassName != "dog" || dog.Count != 3 {
		t.Errorf("first category = %s/%d, want dog/3", dog.ClassName, dog.Count)
	}
	if len(dog.PhotoIDs) != 2 || dog.PhotoIDs[0] != "p1" || dog.PhotoIDs[1] != "p2" {
		t.Errorf("dog photo ids = %v, want [p1 p2]", dog.PhotoIDs)
	}

	photos, err := s.PhotosByClass(ctx, "dog")
	if err != nil {
		t.Fatalf("PhotosByClass returned error: %v", err)
	}
	if len(photos) != 2 || photos[0].ID != "p2" || photos[1].ID != "p1" {
		t.Errorf("dog photos = %+v, want [p2 p1]", photos)
	}
	if none, _ := s.PhotosByClass(ctx, "zebra"); len(none) != 0 {
		t.Errorf("got %d zebra photos, want 0", len(none))
	}

	if n, _ := s.CountDetections(ctx); n != 5 {
		t.Errorf("CountDetections = %d, want 5", n)
	}
	if n, _ := s.CountCategories(ctx); n != 2 {
		t.Errorf("CountCategories = %d, want 2", n)
	}
	if total, _ := s.TotalFileSize(ctx); total != 300 {
		t.Errorf("TotalFileSize = %d, want 300", total)
	}
}
