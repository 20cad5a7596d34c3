package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/classwatch/classwatch/internal/storage"
)

// StudentRepository provides PostgreSQL-backed student storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new PostgreSQL student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ListStudents returns all students, newest first.
func (r *StudentRepository) ListStudents(ctx context.Context) ([]storage.Student, error) {
	query := `
		SELECT id, student_id, name, email, COALESCE(course, ''),
		       embedding IS NOT NULL, created_at
		FROM students
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	var students []storage.Student
	for rows.Next() {
		var s storage.Student
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Name, &s.Email, &s.Course, &s.Enrolled, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// GetStudent returns the student with the given external ID.
func (r *StudentRepository) GetStudent(ctx context.Context, studentID string) (*storage.Student, error) {
	query := `
		SELECT id, student_id, name, email, COALESCE(course, ''),
		       embedding IS NOT NULL, created_at
		FROM students
		WHERE student_id = $1
	`

	var s storage.Student
	err := r.pool.QueryRow(ctx, query, studentID).Scan(
		&s.ID, &s.StudentID, &s.Name, &s.Email, &s.Course, &s.Enrolled, &s.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query student: %w", err)
	}
	return &s, nil
}

// ListEnrolled returns the embedding projection of every student with a
// stored embedding, in stable ID order.
func (r *StudentRepository) ListEnrolled(ctx context.Context) ([]storage.Enrollee, error) {
	query := `
		SELECT student_id, name, embedding
		FROM students
		WHERE embedding IS NOT NULL
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query enrolled students: %w", err)
	}
	defer rows.Close()

	var enrolled []storage.Enrollee
	for rows.Next() {
		var e storage.Enrollee
		var vec pgvector.Vector
		if err := rows.Scan(&e.StudentID, &e.Name, &vec); err != nil {
			return nil, fmt.Errorf("scan enrollee: %w", err)
		}
		e.Embedding = vec.Slice()
		enrolled = append(enrolled, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolled students: %w", err)
	}
	return enrolled, nil
}

// AddStudent inserts a new student and returns its database ID.
func (r *StudentRepository) AddStudent(ctx context.Context, s *storage.Student) (int64, error) {
	query := `
		INSERT INTO students (student_id, name, email, course)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query, s.StudentID, s.Name, s.Email, s.Course).Scan(&id)
	if isUniqueViolation(err) {
		return 0, storage.ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert student: %w", err)
	}
	return id, nil
}

// UpdateStudent updates the mutable profile fields.
func (r *StudentRepository) UpdateStudent(ctx context.Context, studentID, name, email, course string) error {
	query := `
		UPDATE students
		SET name = $2, email = $3, course = NULLIF($4, '')
		WHERE student_id = $1
	`

	result, err := r.pool.Exec(ctx, query, studentID, name, email, course)
	if isUniqueViolation(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// UpdateEmbedding replaces the stored embedding for a student.
func (r *StudentRepository) UpdateEmbedding(ctx context.Context, studentID string, embedding []float32) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE students SET embedding = $2 WHERE student_id = $1",
		studentID, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteStudent removes a student; attendance rows cascade.
func (r *StudentRepository) DeleteStudent(ctx context.Context, studentID string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM students WHERE student_id = $1", studentID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
