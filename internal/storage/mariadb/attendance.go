package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/classwatch/classwatch/internal/storage"
)

// AttendanceRepository is the MariaDB-backed attendance ledger. The
// UNIQUE KEY on (student_id, date) makes Mark atomic.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new MariaDB attendance repository.
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// HasEvent reports whether an event exists for the student on the date.
func (r *AttendanceRepository) HasEvent(ctx context.Context, studentID, date string) (bool, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		WHERE s.student_id = ? AND a.date = ?
	`, studentID, date).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check attendance exists: %w", err)
	}
	return count > 0, nil
}

// Mark inserts an attendance event. The duplicate-entry error on the
// (student, date) key maps to MarkAlreadyExists.
func (r *AttendanceRepository) Mark(ctx context.Context, m storage.Mark) (storage.MarkOutcome, error) {
	var dbID int64
	err := r.pool.db.QueryRowContext(ctx, "SELECT id FROM students WHERE student_id = ?", m.StudentID).Scan(&dbID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resolve student: %w", err)
	}

	var conf sql.NullFloat64
	if m.Confidence != nil {
		conf = sql.NullFloat64{Float64: *m.Confidence, Valid: true}
	}

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, date, time, status, method, confidence)
		VALUES (?, ?, ?, ?, ?, ?)
	`, dbID, m.Date, m.Time, m.Status, m.Method, conf)
	if isDuplicateEntry(err) {
		return storage.MarkAlreadyExists, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert attendance: %w", err)
	}
	return storage.MarkCreated, nil
}

// ListRecords returns attendance records matching the filter, newest first.
func (r *AttendanceRepository) ListRecords(ctx context.Context, f storage.RecordFilter) ([]storage.AttendanceRecord, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT a.id, s.student_id, s.name, s.email, COALESCE(s.course, ''),
		       DATE_FORMAT(a.date, '%Y-%m-%d'), TIME_FORMAT(a.time, '%H:%i:%s'),
		       a.status, a.method, a.confidence, a.created_at
		FROM attendance a
		JOIN students s ON a.student_id = s.id
		WHERE 1=1
	`)

	var args []any
	if f.StudentID != "" {
		sb.WriteString(" AND s.student_id = ?")
		args = append(args, f.StudentID)
	}
	if f.Date != "" {
		sb.WriteString(" AND a.date = ?")
		args = append(args, f.Date)
	}
	sb.WriteString(" ORDER BY a.date DESC, a.time DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}

	rows, err := r.pool.db.QueryContext(ctx, sb.String(), args...)
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
			SELECT DATE_FORMAT(date, '%Y-%m-%d'), COUNT(*)
			FROM attendance
			WHERE date BETWEEN ? AND ?
			GROUP BY date
			ORDER BY date DESC
		`
		args = []any{start, end}
	} else {
		query = `
			SELECT DATE_FORMAT(date, '%Y-%m-%d'), COUNT(*)
			FROM attendance
			GROUP BY date
			ORDER BY date DESC
			LIMIT ?
		`
		args = []any{limit}
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
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
