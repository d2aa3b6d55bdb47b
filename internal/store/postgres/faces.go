package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/smartgallery/backend/internal/store"
)

const faceColumns = `id, photo_id, cluster_id, confidence, bbox, age, gender, embedding, created_at`

// CreateFace stores a new face record, assigning an id if missing.
func (s *Store) CreateFace(ctx context.Context, face *store.Face) error {
	if face.ID == "" {
		face.ID = uuid.NewString()
	}
	if face.CreatedAt.IsZero() {
		face.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO faces (`+faceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		face.ID, face.PhotoID, nullableID(face.ClusterID), face.Confidence,
		pq.Array(face.BBox), face.Age, face.Gender, nullableVector(face.Embedding),
		face.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert face: %w", err)
	}
	return nil
}

// Face retrieves a face by id, nil if not found.
func (s *Store) Face(ctx context.Context, id string) (*store.Face, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+faceColumns+" FROM faces WHERE id = $1", id)

	face, err := scanFace(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query face: %w", err)
	}
	return face, nil
}

// FacesByCluster returns all faces currently assigned to a cluster.
func (s *Store) FacesByCluster(ctx context.Context, clusterID string) ([]store.Face, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+faceColumns+` FROM faces
		WHERE cluster_id = $1 ORDER BY created_at, id`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("query faces by cluster: %w", err)
	}
	defer rows.Close()

	return scanFaceRows(rows)
}

// FacesByPhoto returns all faces detected in a photo.
func (s *Store) FacesByPhoto(ctx context.Context, photoID string) ([]store.Face, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+faceColumns+` FROM faces
		WHERE photo_id = $1 ORDER BY created_at, id`, photoID)
	if err != nil {
		return nil, fmt.Errorf("query faces by photo: %w", err)
	}
	defer rows.Close()

	return scanFaceRows(rows)
}

// FacesWithEmbeddings returns faces carrying an embedding in
// deterministic (creation time, id) order.
func (s *Store) FacesWithEmbeddings(ctx context.Context) ([]store.Face, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+faceColumns+` FROM faces
		WHERE embedding IS NOT NULL
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query faces with embeddings: %w", err)
	}
	defer rows.Close()

	return scanFaceRows(rows)
}

// SetFaceCluster assigns a face to a cluster; empty clusterID clears it.
func (s *Store) SetFaceCluster(ctx context.Context, faceID, clusterID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE faces SET cluster_id = $1 WHERE id = $2", nullableID(clusterID), faceID)
	if err != nil {
		return fmt.Errorf("update face cluster: %w", err)
	}
	return nil
}

// ReassignCluster moves every face from one cluster to another.
func (s *Store) ReassignCluster(ctx context.Context, fromClusterID, toClusterID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE faces SET cluster_id = $1 WHERE cluster_id = $2",
		nullableID(toClusterID), fromClusterID)
	if err != nil {
		return fmt.Errorf("reassign cluster: %w", err)
	}
	return nil
}

// ClearClusterAssignments removes the cluster assignment from all faces.
func (s *Store) ClearClusterAssignments(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE faces SET cluster_id = NULL"); err != nil {
		return fmt.Errorf("clear cluster assignments: %w", err)
	}
	return nil
}

// CountFaces returns the total number of faces.
func (s *Store) CountFaces(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM faces").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// nullableID maps the empty string to NULL so the cluster foreign key
// stays enforceable.
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

func scanFace(row rowScanner) (*store.Face, error) {
	var f store.Face
	var clusterID sql.NullString
	var bbox pq.Float64Array
	var embedding sql.NullString

	err := row.Scan(
		&f.ID, &f.PhotoID, &clusterID, &f.Confidence,
		&bbox, &f.Age, &f.Gender, &embedding, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.ClusterID = clusterID.String
	f.BBox = []float64(bbox)
	f.Embedding, err = scanVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decode face embedding: %w", err)
	}
	return &f, nil
}

func scanFaceRows(rows *sql.Rows) ([]store.Face, error) {
	out := []store.Face{}
	for rows.Next() {
		f, err := scanFace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return out, nil
}
