// Package storage defines the persistence contracts for enrolled
// students and attendance events, shared by the SQL backends and the
// recognition pipeline.
package storage

import (
	"errors"
	"time"
)

// EmbeddingDim is the fixed dimension of face embeddings (dlib ResNet descriptors).
const EmbeddingDim = 128

// Attendance event statuses.
const (
	StatusPresent = "present"
	StatusLate    = "late"
)

// Attendance marking methods.
const (
	MethodRecognition = "face_recognition"
	MethodManual      = "manual"
)

// DateFormat is the canonical representation of an attendance date.
const DateFormat = "2006-01-02"

// TimeFormat is the canonical representation of an attendance time of day.
const TimeFormat = "15:04:05"

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (student ID, email).
var ErrDuplicate = errors.New("duplicate record")

// ErrNotFound is returned when a referenced student does not exist.
var ErrNotFound = errors.New("record not found")

// Student is an enrolled person. Enrolled reports whether a face
// embedding is stored; the vector itself flows through Enrollee only.
type Student struct {
	ID        int64
	StudentID string
	Name      string
	Email     string
	Course    string
	Enrolled  bool
	CreatedAt time.Time
}

// Enrollee is the read-optimized projection consumed by the encoding cache:
// only students with a stored embedding appear.
type Enrollee struct {
	StudentID string
	Name      string
	Embedding []float32
}

// Mark describes one attendance event to insert.
type Mark struct {
	StudentID  string
	Date       string // DateFormat
	Time       string // TimeFormat
	Status     string
	Method     string
	Confidence *float64 // set only for recognition-sourced events
}

// MarkOutcome reports what an attendance insert did.
type MarkOutcome int

const (
	// MarkCreated means a new attendance event was inserted.
	MarkCreated MarkOutcome = iota
	// MarkAlreadyExists means the (student, date) pair already had an event.
	// Callers treat this as success.
	MarkAlreadyExists
)

// AttendanceRecord joins an attendance event with its student.
type AttendanceRecord struct {
	ID         int64
	StudentID  string
	Name       string
	Email      string
	Course     string
	Date       string
	Time       string
	Status     string
	Method     string
	Confidence *float64
	CreatedAt  time.Time
}

// RecordFilter narrows attendance listings. Zero values mean "no filter".
type RecordFilter struct {
	StudentID string
	Date      string
	Limit     int
}

// DayCount is one point of the per-date attendance series.
type DayCount struct {
	Date  string
	Count int
}
