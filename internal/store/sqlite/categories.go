package sqlite

import (
	"context"
	"fmt"
	"sort"

	"github.com/smartgallery/backend/internal/store"
)

// Categories aggregates detections by class, most detected class first.
func (s *Store) Categories(ctx context.Context) ([]store.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT class_name, photo_id FROM detections ORDER BY class_name, photo_id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	byClass := make(map[string]*store.Category)
	var order []string
	for rows.Next() {
		var class, photoID string
		if err := rows.Scan(&class, &photoID); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		c, ok := byClass[class]
		if !ok {
			c = &store.Category{ClassName: class}
			byClass[class] = c
			order = append(order, class)
		}
		c.Count++
		if n := len(c.PhotoIDs); n == 0 || c.PhotoIDs[n-1] != photoID {
			c.PhotoIDs = append(c.PhotoIDs, photoID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	out := make([]store.Category, 0, len(order))
	for _, class := range order {
		out = append(out, *byClass[class])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].ClassName < out[j].ClassName
		}
		return out[i].Count > out[j].Count
	})
	return out, nil
}

// PhotosByClass returns photos with a detection of the class, newest first.
func (s *Store) PhotosByClass(ctx context.Context, className string) ([]store.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos
		WHERE id IN (SELECT DISTINCT photo_id FROM detections WHERE class_name = ?)
		ORDER BY uploaded_at DESC, id DESC`, className)
	if err != nil {
		return nil, fmt.Errorf("query photos by class: %w", err)
	}
	defer rows.Close()

	return scanPhotos(rows)
}

// CountDetections returns the total number of stored detections.
func (s *Store) CountDetections(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM detections").Scan(&count); err != nil {
		return 0, fmt.Errorf("count detections: %w", err)
	}
	return count, nil
}

// CountCategories returns the number of distinct detection classes.
func (s *Store) CountCategories(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT class_name) FROM detections").Scan(&count); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return count, nil
}

// TotalFileSize returns the summed byte size of all stored originals.
func (s *Store) TotalFileSize(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(file_size), 0) FROM photos").Scan(&total); err != nil {
		return 0, fmt.Errorf("sum file sizes: %w", err)
	}
	return total, nil
}
