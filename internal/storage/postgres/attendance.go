package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/classwatch/classwatch/internal/storage"
)

// AttendanceRepository is the PostgreSQL-backed attendance ledger. The
// UNIQUE(student_id, date) constraint makes Mark atomic; concurrent
// callers racing on the same pair see exactly one MarkCreated.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// HasEvent reports whether an event exists for the student on the date.
func (r *AttendanceRepository) HasEvent(ctx context.Context, studentID, date string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM attendance a
			JOIN students s ON a.student_id = s.id
			WHERE s.student_id = $1 AND a.date = $2
		)
	`, studentID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return exists, nil
}

// Mark inserts an attendance event, mapping the conflict on
// (student, date) to MarkAlreadyExists.
func (r *AttendanceRepository) Mark(ctx context.Context, m storage.Mark) (storage.MarkOutcome, error) {
	var dbID int64
	err := r.pool.QueryRow(ctx, "SELECT id FROM students WHERE student_id = $1", m.StudentID).Scan(&dbID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolve student: %w", err)
	}

	result, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (student_id, date, time, status, method, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, date) DO NOTHING
	`, dbID, m.Date, m.Time, m.Status, m.Method, nullFloat(m.Confidence))
	if err != nil {
		return 0, fmt.Errorf("insert attendance: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return storage.MarkAlreadyExists, nil
	}
	return storage.MarkCreated, nil
}

// ListRecords returns attendance records matching the filter, newest first.
func (r *AttendanceRepository) ListRecords(ctx context.Context, f storage.RecordFilter) ([]storage.AttendanceRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT a.id, s.student_id, s.name, s.email, COALESCE(s.course, ''),
		       to_char(a.date, 'YYYY-MM-DD'), to_char(a.time, 'HH24:MI:SS'),
		       a.status, a.method, a.confidence, a.created_at
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		WHERE 1=1
	`)

	var args []any
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		sb.WriteString(" AND s.student_id = $" + strconv.Itoa(len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		sb.WriteString(" AND a.date = $" + strconv.Itoa(len(args)))
	}
	sb.WriteString(" ORDER BY a.date DESC, a.time DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []storage.AttendanceRecord
	for rows.Next() {
		var rec storage.AttendanceRecord
		var conf sql.NullFloat64
		if err := rows.Scan(
			&rec.ID, &rec.StudentID, &rec.Name, &rec.Email, &rec.Course,
			&rec.Date, &rec.Time, &rec.Status, &rec.Method, &conf, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		if conf.Valid {
			v := conf.Float64
			rec.Confidence = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

// CountByDate returns per-date attendance counts, newest first.
func (r *AttendanceRepository) CountByDate(ctx context.Context, start, end string, limit int) ([]storage.DayCount, error) {
	var (
		query string
		args  []any
	)
	if start != "" && end != "" {
		query = `
			SELECT to_char(date, 'YYYY-MM-DD'), COUNT(*)
			FROM attendance
			WHERE date BETWEEN $1 AND $2
			GROUP BY date
			ORDER BY date DESC
		`
		args = []any{start, end}
	} else {
		query = `
			SELECT to_char(date, 'YYYY-MM-DD'), COUNT(*)
			FROM attendance
			GROUP BY date
			ORDER BY date DESC
			LIMIT $1
		`
		args = []any{limit}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance counts: %w", err)
	}
	defer rows.Close()

	var counts []storage.DayCount
	for rows.Next() {
		var dc storage.DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan attendance count: %w", err)
		}
		counts = append(counts, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance counts: %w", err)
	}
	return counts, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
