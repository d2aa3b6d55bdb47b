package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/smartgallery/backend/internal/store"
)

const photoColumns = `id, filename, original_filename, file_size, mime_type, width, height,
	uploaded_at, taken_at, processed, processing_error, favorite, clip_embedding`

// CreatePhoto stores a new photo record, assigning an id if missing.
func (s *Store) CreatePhoto(ctx context.Context, photo *store.Photo) error {
	if photo.ID == "" {
		photo.ID = uuid.NewString()
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = time.Now().UTC()
	}

	var takenAt sql.NullTime
	if photo.TakenAt != nil {
		takenAt = sql.NullTime{Time: photo.TakenAt.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (`+photoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		photo.ID, photo.Filename, photo.OriginalFilename, photo.FileSize, photo.MimeType,
		photo.Width, photo.Height, photo.UploadedAt.UTC(), takenAt,
		photo.Processed, photo.ProcessingError, photo.Favorite, nullableVector(photo.ClipEmbedding),
	)
	if err != nil {
		return fmt.Errorf("insert photo: %w", err)
	}
	return nil
}

// Photo retrieves a photo with its detections and faces, nil if not found.
func (s *Store) Photo(ctx context.Context, id string) (*store.Photo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+photoColumns+" FROM photos WHERE id = $1", id)

	photo, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query photo: %w", err)
	}

	photo.Detections, err = s.detectionsByPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	photo.Faces, err = s.FacesByPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// Photos lists photos ordered by upload time descending.
func (s *Store) Photos(ctx context.Context, limit, offset int) ([]store.Photo, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		ORDER BY uploaded_at DESC, id DESC
		LIMIT NULLIF($1, -1) OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

// UpdatePhotoStatus records the outcome of the processing pipeline.
func (s *Store) UpdatePhotoStatus(ctx context.Context, id string, processed bool, processingError string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE photos SET processed = $1, processing_error = $2 WHERE id = $3",
		processed, processingError, id)
	if err != nil {
		return fmt.Errorf("update photo status: %w", err)
	}
	return nil
}

// SetClipEmbedding stores the photo's semantic embedding.
func (s *Store) SetClipEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE photos SET clip_embedding = $1::vector WHERE id = $2",
		pgvector.NewVector(embedding), id)
	if err != nil {
		return fmt.Errorf("update clip embedding: %w", err)
	}
	return nil
}

// SetFavorite flags or unflags a photo as favorite.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	_, err := s.db.ExecContext(ctx, "UPDATE photos SET favorite = $1 WHERE id = $2", favorite, id)
	if err != nil {
		return fmt.Errorf("update favorite: %w", err)
	}
	return nil
}

// DeletePhoto removes a photo; detections and faces cascade. Returns the
// ids of the deleted faces so callers can prune the vector indices.
func (s *Store) DeletePhoto(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM faces WHERE photo_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, fmt.Errorf("query photo faces: %w", err)
	}
	var faceIDs []string
	for rows.Next() {
		var faceID string
		if err := rows.Scan(&faceID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan face id: %w", err)
		}
		faceIDs = append(faceIDs, faceID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face ids: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM photos WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("delete photo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit photo delete: %w", err)
	}
	return faceIDs, nil
}

// AddDetections stores object-detection results for a photo.
func (s *Store) AddDetections(ctx context.Context, photoID string, detections []store.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO detections (id, photo_id, class_name, confidence, bbox)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range detections {
		d := &detections[i]
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.PhotoID = photoID

		if _, err := stmt.ExecContext(ctx, d.ID, photoID, d.ClassName, d.Confidence, pq.Array(d.BBox)); err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// PhotosWithClipEmbeddings returns photos with a stored semantic
// embedding, ordered by upload time then id.
func (s *Store) PhotosWithClipEmbeddings(ctx context.Context) ([]store.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		WHERE clip_embedding IS NOT NULL
		ORDER BY uploaded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query photos with embeddings: %w", err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

// CountPhotos returns the total number of photos.
func (s *Store) CountPhotos(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos").Scan(&count); err != nil {
		return 0, fmt.Errorf("count photos: %w", err)
	}
	return count, nil
}

// CountFavorites returns the number of favorite photos.
func (s *Store) CountFavorites(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM photos WHERE favorite").Scan(&count); err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return count, nil
}

func (s *Store) detectionsByPhoto(ctx context.Context, photoID string) ([]store.Detection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, photo_id, class_name, confidence, bbox
		FROM detections WHERE photo_id = $1 ORDER BY id`, photoID)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var out []store.Detection
	for rows.Next() {
		var d store.Detection
		var bbox pq.Float64Array
		if err := rows.Scan(&d.ID, &d.PhotoID, &d.ClassName, &d.Confidence, &bbox); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		d.BBox = []float64(bbox)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detections: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// nullableVector maps an empty embedding to NULL.
func nullableVector(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// scanVector parses pgvector's text representation, tolerating NULL.
func scanVector(raw sql.NullString) ([]float32, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var vec pgvector.Vector
	if err := vec.Scan(raw.String); err != nil {
		return nil, fmt.Errorf("parse vector: %w", err)
	}
	return vec.Slice(), nil
}

func scanPhoto(row rowScanner) (*store.Photo, error) {
	var p store.Photo
	var takenAt sql.NullTime
	var embedding sql.NullString

	err := row.Scan(
		&p.ID, &p.Filename, &p.OriginalFilename, &p.FileSize, &p.MimeType,
		&p.Width, &p.Height, &p.UploadedAt, &takenAt,
		&p.Processed, &p.ProcessingError, &p.Favorite, &embedding,
	)
	if err != nil {
		return nil, err
	}
	if takenAt.Valid {
		t := takenAt.Time
		p.TakenAt = &t
	}
	p.ClipEmbedding, err = scanVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("decode clip embedding: %w", err)
	}
	return &p, nil
}

func scanPhotos(rows *sql.Rows) ([]store.Photo, error) {
	out := []store.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photos: %w", err)
	}
	return out, nil
}
