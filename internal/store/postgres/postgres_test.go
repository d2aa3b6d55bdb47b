//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/smartgallery/backend/internal/store"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestContainer(t *testing.T) *Store {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	s, err := Open(dbURL, 0, 0)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreIntegration(t *testing.T) {
	s := setupTestContainer(t)
	if s == nil {
		return
	}
	ctx := context.Background()

	t.Run("PhotoRoundtrip", func(t *testing.T) {
		taken := time.Date(2025, 7, 14, 10, 30, 0, 0, time.UTC)
		photo := &store.Photo{
			ID:               "p1",
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
			t.Fatalf("Failed to create photo: %v", err)
		}

		got, err := s.Photo(ctx, "p1")
		if err != nil {
			t.Fatalf("Failed to get photo: %v", err)
		}
		if got == nil {
			t.Fatal("Expected photo, got nil")
		}
		if got.OriginalFilename != "beach.jpg" {
			t.Errorf("Expected OriginalFilename 'beach.jpg', got '%s'", got.OriginalFilename)
		}
		if got.TakenAt == nil || !got.TakenAt.Equal(taken) {
			t.Errorf("TakenAt mismatch: %v", got.TakenAt)
		}
		if len(got.ClipEmbedding) != 3 {
			t.Errorf("Expected 3 embedding dimensions, got %d", len(got.ClipEmbedding))
		}
	})

	t.Run("FacesAndClusters", func(t *testing.T) {
		if err := s.CreateCluster(ctx, &store.Cluster{ID: "c1", Name: "Jan Novák", Centroid: []float32{1, 0}}); err != nil {
			t.Fatalf("Failed to create cluster: %v", err)
		}

		face := &store.Face{
			ID:         "f1",
			PhotoID:    "p1",
			Confidence: 0.95,
			BBox:       []float64{0.1, 0.2, 0.3, 0.4},
			Age:        30,
			Gender:     "male",
			Embedding:  []float32{1, 0},
		}
		if err := s.CreateFace(ctx, face); err != nil {
			t.Fatalf("Failed to create face: %v", err)
		}
		if err := s.SetFaceCluster(ctx, "f1", "c1"); err != nil {
			t.Fatalf("Failed to assign cluster: %v", err)
		}

		got, err := s.Face(ctx, "f1")
		if err != nil {
			t.Fatalf("Failed to get face: %v", err)
		}
		if got.ClusterID != "c1" {
			t.Errorf("Expected cluster 'c1', got '%s'", got.ClusterID)
		}
		if len(got.BBox) != 4 || got.BBox[1] != 0.2 {
			t.Errorf("BBox mismatch: %v", got.BBox)
		}

		// unaccent-backed name lookup
		byName, err := s.ClustersByName(ctx, "jan-novak")
		if err != nil {
			t.Fatalf("Failed to query by name: %v", err)
		}
		if len(byName) != 1 || byName[0].ID != "c1" {
			t.Errorf("Expected normalized match on c1, got %+v", byName)
		}

		clusters, err := s.Clusters(ctx)
		if err != nil {
			t.Fatalf("Failed to list clusters: %v", err)
		}
		if len(clusters) != 1 || clusters[0].FaceCount != 1 {
			t.Errorf("Unexpected cluster list: %+v", clusters)
		}
	})

	t.Run("DeletePhotoCascades", func(t *testing.T) {
		faceIDs, err := s.DeletePhoto(ctx, "p1")
		if err != nil {
			t.Fatalf("Failed to delete photo: %v", err)
		}
		if len(faceIDs) != 1 || faceIDs[0] != "f1" {
			t.Errorf("Expected deleted face ids [f1], got %v", faceIDs)
		}
		if f, _ := s.Face(ctx, "f1"); f != nil {
			t.Error("Expected face to cascade on photo delete")
		}
	})

	t.Run("DeleteClusterClearsAssignment", func(t *testing.T) {
		if err := s.CreatePhoto(ctx, &store.Photo{ID: "p2", Filename: "b.jpg"}); err != nil {
			t.Fatalf("Failed to create photo: %v", err)
		}
		face := &store.Face{ID: "f2", PhotoID: "p2", ClusterID: "c1", Embedding: []float32{0, 1}}
		if err := s.CreateFace(ctx, face); err != nil {
			t.Fatalf("Failed to create face: %v", err)
		}
		if err := s.DeleteCluster(ctx, "c1"); err != nil {
			t.Fatalf("Failed to delete cluster: %v", err)
		}
		got, _ := s.Face(ctx, "f2")
		if got.ClusterID != "" {
			t.Errorf("Expected cleared assignment, got '%s'", got.ClusterID)
		}
	})

	t.Run("Categories", func(t *testing.T) {
		for _, id := range []string{"cp1", "cp2"} {
			if err := s.CreatePhoto(ctx, &store.Photo{ID: id, Filename: id + ".jpg", FileSize: 50}); err != nil {
				t.Fatalf("Failed to create photo: %v", err)
			}
		}
		if err := s.AddDetections(ctx, "cp1", []store.Detection{
			{ClassName: "dog", Confidence: 0.9, BBox: []float64{0, 0, 1, 1}},
			{ClassName: "dog", Confidence: 0.8, BBox: []float64{0, 0, 1, 1}},
		}); err != nil {
			t.Fatalf("Failed to add detections: %v", err)
		}
		if err := s.AddDetections(ctx, "cp2", []store.Detection{
			{ClassName: "dog", Confidence: 0.7, BBox: []float64{0, 0, 1, 1}},
			{ClassName: "cat", Confidence: 0.9, BBox: []float64{0, 0, 1, 1}},
		}); err != nil {
			t.Fatalf("Failed to add detections: %v", err)
		}

		categories, err := s.Categories(ctx)
		if err != nil {
			t.Fatalf("Failed to list categories: %v", err)
		}
		if len(categories) != 2 {
			t.Fatalf("Expected 2 categories, got %d", len(categories))
		}
		dog := categories[0]
		if dog.ClassName != "dog" || dog.Count != 3 || len(dog.PhotoIDs) != 2 {
			t.Errorf("Unexpected dog category: %+v", dog)
		}

		photos, err := s.PhotosByClass(ctx, "cat")
		if err != nil {
			t.Fatalf("Failed to search by class: %v", err)
		}
		if len(photos) != 1 || photos[0].ID != "cp2" {
			t.Errorf("Expected [cp2] for cat, got %+v", photos)
		}

		if n, _ := s.CountDetections(ctx); n != 4 {
			t.Errorf("Expected 4 detections, got %d", n)
		}
		if n, _ := s.CountCategories(ctx); n != 2 {
			t.Errorf("Expected 2 categories, got %d", n)
		}
		if total, _ := s.TotalFileSize(ctx); total <= 0 {
			t.Errorf("Expected positive storage size, got %d", total)
		}
	})
}
