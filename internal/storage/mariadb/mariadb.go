// Package mariadb provides the MariaDB/MySQL-backed storage. Embeddings
// are stored as little-endian float32 blobs since there is no vector
// column type; matching happens in memory anyway.
package mariadb

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool. The DSN must include
// parseTime=true so TIMESTAMP columns scan into time.Time.
func NewPool(dsn string, maxOpen, maxIdle int) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
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

// Migrate creates the schema. The UNIQUE KEY on (student_id, date) is
// the authoritative per-day dedup guarantee.
func (p *Pool) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id          BIGINT AUTO_INCREMENT PRIMARY KEY,
			student_id  VARCHAR(50) NOT NULL,
			name        VARCHAR(100) NOT NULL,
			email       VARCHAR(100) NOT NULL,
			course      VARCHAR(100),
			embedding   BLOB,
			created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY students_student_id (student_id),
			UNIQUE KEY students_email (email)
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			id          BIGINT AUTO_INCREMENT PRIMARY KEY,
			student_id  BIGINT NOT NULL,
			date        DATE NOT NULL,
			time        TIME NOT NULL,
			status      VARCHAR(20) NOT NULL DEFAULT 'present',
			method      VARCHAR(20) NOT NULL DEFAULT 'face_recognition',
			confidence  DOUBLE,
			created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY attendance_student_date (student_id, date),
			KEY attendance_date (date),
			CONSTRAINT attendance_student_fk FOREIGN KEY (student_id)
				REFERENCES students(id) ON DELETE CASCADE
		)`,
	}

	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating MariaDB schema: %w", err)
		}
	}
	return nil
}

// mysql error 1062 is ER_DUP_ENTRY.
func isDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

// encodeEmbedding packs a float32 vector into a little-endian blob.
func encodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a little-endian blob into a float32 vector.
func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}
	embedding := make([]float32, len(buf)/4)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return embedding, nil
}
