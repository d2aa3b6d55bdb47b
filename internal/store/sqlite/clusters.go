package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smartgallery/backend/internal/store"
)

const clusterColumns = `c.id, c.name, c.centroid, c.representative_photo_id, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM faces f WHERE f.cluster_id = c.id) AS face_count`

// CreateCluster stores a new cluster, assigning an id if missing.
func (s *Store) CreateCluster(ctx context.Context, cluster *store.Cluster) error {
	if cluster.ID == "" {
		cluster.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cluster.CreatedAt.IsZero() {
		cluster.CreatedAt = now
	}
	cluster.UpdatedAt = now

	var centroid interface{}
	if len(cluster.Centroid) > 0 {
		centroid = store.EncodeEmbedding(cluster.Centroid)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clusters (id, name, centroid, representative_photo_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cluster.ID, cluster.Name, centroid, cluster.RepresentativePhotoID,
		cluster.CreatedAt, cluster.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cluster: %w", err)
	}
	return nil
}

// Cluster retrieves a cluster by id, nil if not found.
func (s *Store) Cluster(ctx context.Context, id string) (*store.Cluster, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+clusterColumns+" FROM clusters c WHERE c.id = ?", id)

	cluster, err := scanCluster(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query cluster: %w", err)
	}
	return cluster, nil
}

// Clusters lists all clusters with face counts, largest first.
func (s *Store) Clusters(ctx context.Context) ([]store.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+clusterColumns+` FROM clusters c
		ORDER BY face_count DESC, c.id`)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	return scanClusterRows(rows)
}

// ClustersByName returns clusters matching the normalized name. SQLite
// has no unaccent, so the comparison happens in Go.
func (s *Store) ClustersByName(ctx context.Context, name string) ([]store.Cluster, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+clusterColumns+` FROM clusters c
		WHERE c.name != '' ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("query named clusters: %w", err)
	}
	defer rows.Close()

	all, err := scanClusterRows(rows)
	if err != nil {
		return nil, err
	}

	want := store.NormalizePersonName(name)
	out := []store.Cluster{}
	for _, c := range all {
		if store.NormalizePersonName(c.Name) == want {
			out = append(out, c)
		}
	}
	return out, nil
}

// RenameCluster sets the user-assigned name.
func (s *Store) RenameCluster(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE clusters SET name = ?, updated_at = ? WHERE id = ?",
		name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("rename cluster: %w", err)
	}
	return nil
}

// UpdateCentroid replaces the cluster centroid.
func (s *Store) UpdateCentroid(ctx context.Context, id string, centroid []float32) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE clusters SET centroid = ?, updated_at = ? WHERE id = ?",
		store.EncodeEmbedding(centroid), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update centroid: %w", err)
	}
	return nil
}

// DeleteCluster removes a cluster; faces lose their assignment through
// the ON DELETE SET NULL foreign key.
func (s *Store) DeleteCluster(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM clusters WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete cluster: %w", err)
	}
	return nil
}

// DeleteAllClusters removes every cluster.
func (s *Store) DeleteAllClusters(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM clusters"); err != nil {
		return fmt.Errorf("delete clusters: %w", err)
	}
	return nil
}

// PhotoIDsByCluster returns distinct photo ids with faces in a cluster.
func (s *Store) PhotoIDsByCluster(ctx context.Context, clusterID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT photo_id FROM faces
		WHERE cluster_id = ? ORDER BY photo_id`, clusterID)
	if err != nil {
		return nil, fmt.Errorf("query cluster photos: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan photo id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate photo ids: %w", err)
	}
	return out, nil
}

// CountClusters returns the total number of clusters.
func (s *Store) CountClusters(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clusters").Scan(&count); err != nil {
		return 0, fmt.Errorf("count clusters: %w", err)
	}
	return count, nil
}

func scanCluster(row rowScanner) (*store.Cluster, error) {
	var c store.Cluster
	var centroid []byte

	err := row.Scan(
		&c.ID, &c.Name, &centroid, &c.RepresentativePhotoID,
		&c.CreatedAt, &c.UpdatedAt, &c.FaceCount,
	)
	if err != nil {
		return nil, err
	}
	if len(centroid) > 0 {
		c.Centroid, err = store.DecodeEmbedding(centroid)
		if err != nil {
			return nil, fmt.Errorf("decode centroid: %w", err)
		}
	}
	return &c, nil
}

func scanClusterRows(rows *sql.Rows) ([]store.Cluster, error) {
	out := []store.Cluster{}
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cluster: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clusters: %w", err)
	}
	return out, nil
}
