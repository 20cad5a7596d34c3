package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/classwatch/classwatch/internal/storage"
)

// StudentRepository provides MariaDB-backed student storage.
type StudentRepository struct {
	pool *Pool
}

// NewStudentRepository creates a new MariaDB student repository.
func NewStudentRepository(pool *Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// ListStudents returns all students, newest first.
func (r *StudentRepository) ListStudents(ctx context.Context) ([]storage.Student, error) {
	query := `
		SELECT id, student_id, name, email, COALESCE(course, ''),
		       embedding IS NOT NULL, created_at
		FROM students
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.db.QueryContext(ctx, query)
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
		WHERE student_id = ?
	`

	var s storage.Student
	err := r.pool.db.QueryRowContext(ctx, query, studentID).Scan(
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

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query enrolled students: %w", err)
	}
	defer rows.Close()

	var enrolled []storage.Enrollee
	for rows.Next() {
		var e storage.Enrollee
		var blob []byte
		if err := rows.Scan(&e.StudentID, &e.Name, &blob); err != nil {
			return nil, fmt.Errorf("scan enrollee: %w", err)
		}
		embedding, err := decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", e.StudentID, err)
		}
		e.Embedding = embedding
		enrolled = append(enrolled, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolled students: %w", err)
	}
	return enrolled, nil
}

// AddStudent inserts a new student and returns its database ID.
func (r *StudentRepository) AddStudent(ctx context.Context, s *storage.Student) (int64, error) {
	result, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO students (student_id, name, email, course)
		VALUES (?, ?, ?, NULLIF(?, ''))
	`, s.StudentID, s.Name, s.Email, s.Course)
	if isDuplicateEntry(err) {
		return 0, storage.ErrDuplicate
	}
	if err != nil {
		return 0, fmt.Errorf("insert student: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting insert id: %w", err)
	}
	return id, nil
}

// UpdateStudent updates the mutable profile fields.
func (r *StudentRepository) UpdateStudent(ctx context.Context, studentID, name, email, course string) error {
	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE students
		SET name = ?, email = ?, course = NULLIF(?, '')
		WHERE student_id = ?
	`, name, email, course, studentID)
	if isDuplicateEntry(err) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireRow(result)
}

// UpdateEmbedding replaces the stored embedding for a student.
func (r *StudentRepository) UpdateEmbedding(ctx context.Context, studentID string, embedding []float32) error {
	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE students SET embedding = ? WHERE student_id = ?",
		encodeEmbedding(embedding), studentID,
	)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	return requireRow(result)
}

// DeleteStudent removes a student; attendance rows cascade.
func (r *StudentRepository) DeleteStudent(ctx context.Context, studentID string) error {
	result, err := r.pool.db.ExecContext(ctx, "DELETE FROM students WHERE student_id = ?", studentID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireRow(result)
}

// requireRow maps a zero-row update to storage.ErrNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
