// Package postgres implements store.Store on PostgreSQL with the
// pgvector extension. Embeddings live in vector columns so they survive
// a lost index file and can be re-indexed on startup.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	db *sql.DB
}

const (
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 5
)

// poolSettings clamps configured pool limits to sane values. Zero or
// negative limits fall back to the defaults.
func poolSettings(maxOpen, maxIdle int) (int, int) {
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	if maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	return maxOpen, maxIdle
}

// Open connects to the database at url, verifies the connection and
// applies pending migrations. maxOpen and maxIdle bound the connection
// pool; zero or negative values use the defaults.
func Open(url string, maxOpen, maxIdle int) (*Store, error) {
	if url == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen, maxIdle = poolSettings(maxOpen, maxIdle)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}
