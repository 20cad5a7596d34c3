// Package postgres provides the PostgreSQL-backed storage with pgvector
// embedding columns.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/classwatch/classwatch/internal/config"
	"github.com/classwatch/classwatch/internal/storage"
)

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new PostgreSQL connection pool.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool.
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	// Verify connection.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// QueryRow executes a query that returns a single row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec executes a query that doesn't return rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// Migrate creates the schema. The UNIQUE(student_id, date) constraint on
// attendance is what makes Mark atomic; everything above it only
// interprets the outcome.
func (p *Pool) Migrate(ctx context.Context) error {
	if _, err := p.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createStudents := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS students (
			id          BIGSERIAL PRIMARY KEY,
			student_id  VARCHAR(50) UNIQUE NOT NULL,
			name        VARCHAR(100) NOT NULL,
			email       VARCHAR(100) UNIQUE NOT NULL,
			course      VARCHAR(100),
			embedding   vector(%d),
			created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, storage.EmbeddingDim)

	if _, err := p.Exec(ctx, createStudents); err != nil {
		return fmt.Errorf("failed to create students table: %w", err)
	}

	createAttendance := `
		CREATE TABLE IF NOT EXISTS attendance (
			id          BIGSERIAL PRIMARY KEY,
			student_id  BIGINT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
			date        DATE NOT NULL,
			time        TIME NOT NULL,
			status      VARCHAR(20) NOT NULL DEFAULT 'present',
			method      VARCHAR(20) NOT NULL DEFAULT 'face_recognition',
			confidence  DOUBLE PRECISION,
			created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(student_id, date)
		)
	`

	if _, err := p.Exec(ctx, createAttendance); err != nil {
		return fmt.Errorf("failed to create attendance table: %w", err)
	}

	if _, err := p.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS attendance_date_idx ON attendance(date)
	`); err != nil {
		return fmt.Errorf("failed to create attendance date index: %w", err)
	}

	createSessions := `
		CREATE TABLE IF NOT EXISTS sessions (
			id          VARCHAR(64) PRIMARY KEY,
			username    VARCHAR(100) NOT NULL,
			created_at  TIMESTAMP WITH TIME ZONE NOT NULL,
			expires_at  TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`

	if _, err := p.Exec(ctx, createSessions); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	return nil
}
