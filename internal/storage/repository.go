package storage

import "context"

// EnrollmentReader provides read access to enrolled students.
type EnrollmentReader interface {
	// ListStudents returns all students, newest first.
	ListStudents(ctx context.Context) ([]Student, error)
	// GetStudent returns the student with the given external ID, or
	// ErrNotFound.
	GetStudent(ctx context.Context, studentID string) (*Student, error)
	// ListEnrolled returns the (id, name, embedding) projection of every
	// student with a stored embedding.
	ListEnrolled(ctx context.Context) ([]Enrollee, error)
}

// EnrollmentWriter mutates enrolled students.
type EnrollmentWriter interface {
	// AddStudent inserts a new student and returns its database ID.
	// Returns ErrDuplicate when the student ID or email is taken.
	AddStudent(ctx context.Context, s *Student) (int64, error)
	// UpdateStudent updates the mutable profile fields.
	UpdateStudent(ctx context.Context, studentID, name, email, course string) error
	// UpdateEmbedding replaces the stored embedding for a student.
	UpdateEmbedding(ctx context.Context, studentID string, embedding []float32) error
	// DeleteStudent removes a student and their attendance events.
	DeleteStudent(ctx context.Context, studentID string) error
}

// AttendanceLedger is the durable attendance-event store. The store
// enforces at most one event per (student, date); Mark relies on that
// constraint rather than application-level locking.
type AttendanceLedger interface {
	// HasEvent reports whether an event exists for the student on the date.
	HasEvent(ctx context.Context, studentID, date string) (bool, error)
	// Mark inserts an attendance event. Concurrent calls for the same
	// (student, date) yield exactly one MarkCreated; the rest observe
	// MarkAlreadyExists. Returns ErrNotFound for unknown students.
	Mark(ctx context.Context, m Mark) (MarkOutcome, error)
	// ListRecords returns attendance records matching the filter,
	// newest first.
	ListRecords(ctx context.Context, f RecordFilter) ([]AttendanceRecord, error)
	// CountByDate returns per-date attendance counts, newest first. When
	// start and end are empty the most recent limit days are returned.
	CountByDate(ctx context.Context, start, end string, limit int) ([]DayCount, error)
}

// Store combines everything a full deployment needs from one backend.
type Store interface {
	EnrollmentReader
	EnrollmentWriter
	AttendanceLedger
}
