// Package mock provides an in-memory implementation of the storage
// interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/classwatch/classwatch/internal/storage"
)

// Store is an in-memory storage.Store. The zero value via NewStore is
// ready to use; error fields inject failures per operation.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	students   map[string]*storage.Student
	embeddings map[string][]float32
	attendance map[string]storage.AttendanceRecord // keyed studentID+"_"+date

	// Error injection
	ListStudentsError    error
	GetStudentError      error
	ListEnrolledError    error
	AddStudentError      error
	UpdateStudentError   error
	UpdateEmbeddingError error
	DeleteStudentError   error
	HasEventError        error
	MarkError            error
	ListRecordsError     error
	CountByDateError     error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		students:   make(map[string]*storage.Student),
		embeddings: make(map[string][]float32),
		attendance: make(map[string]storage.AttendanceRecord),
	}
}

// AddEnrollee seeds a student with an embedding in one call.
func (s *Store) AddEnrollee(studentID, name string, embedding []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.students[studentID] = &storage.Student{
		ID:        s.nextID,
		StudentID: studentID,
		Name:      name,
		Email:     studentID + "@example.com",
		Enrolled:  embedding != nil,
		CreatedAt: time.Now(),
	}
	if embedding != nil {
		s.embeddings[studentID] = embedding
	}
}

// MarkCount returns the number of attendance events for a student.
func (s *Store) MarkCount(studentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.attendance {
		if rec.StudentID == studentID {
			count++
		}
	}
	return count
}

// ListStudents returns all students, newest first.
func (s *Store) ListStudents(ctx context.Context) ([]storage.Student, error) {
	if s.ListStudentsError != nil {
		return nil, s.ListStudentsError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	students := make([]storage.Student, 0, len(s.students))
	for _, st := range s.students {
		students = append(students, *st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID > students[j].ID })
	return students, nil
}

// GetStudent returns the student with the given external ID.
func (s *Store) GetStudent(ctx context.Context, studentID string) (*storage.Student, error) {
	if s.GetStudentError != nil {
		return nil, s.GetStudentError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

// ListEnrolled returns all students with embeddings in stable ID order.
func (s *Store) ListEnrolled(ctx context.Context) ([]storage.Enrollee, error) {
	if s.ListEnrolledError != nil {
		return nil, s.ListEnrolledError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var enrolled []storage.Enrollee
	for id, emb := range s.embeddings {
		enrolled = append(enrolled, storage.Enrollee{
			StudentID: id,
			Name:      s.students[id].Name,
			Embedding: emb,
		})
	}
	sort.Slice(enrolled, func(i, j int) bool {
		return s.students[enrolled[i].StudentID].ID < s.students[enrolled[j].StudentID].ID
	})
	return enrolled, nil
}

// AddStudent inserts a new student.
func (s *Store) AddStudent(ctx context.Context, st *storage.Student) (int64, error) {
	if s.AddStudentError != nil {
		return 0, s.AddStudentError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[st.StudentID]; ok {
		return 0, storage.ErrDuplicate
	}
	for _, existing := range s.students {
		if existing.Email == st.Email {
			return 0, storage.ErrDuplicate
		}
	}
	s.nextID++
	cp := *st
	cp.ID = s.nextID
	cp.CreatedAt = time.Now()
	s.students[st.StudentID] = &cp
	return cp.ID, nil
}

// UpdateStudent updates the mutable profile fields.
func (s *Store) UpdateStudent(ctx context.Context, studentID, name, email, course string) error {
	if s.UpdateStudentError != nil {
		return s.UpdateStudentError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return storage.ErrNotFound
	}
	st.Name = name
	st.Email = email
	st.Course = course
	return nil
}

// UpdateEmbedding replaces the stored embedding for a student.
func (s *Store) UpdateEmbedding(ctx context.Context, studentID string, embedding []float32) error {
	if s.UpdateEmbeddingError != nil {
		return s.UpdateEmbeddingError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[studentID]
	if !ok {
		return storage.ErrNotFound
	}
	s.embeddings[studentID] = embedding
	st.Enrolled = true
	return nil
}

// DeleteStudent removes a student and their attendance events.
func (s *Store) DeleteStudent(ctx context.Context, studentID string) error {
	if s.DeleteStudentError != nil {
		return s.DeleteStudentError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[studentID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.students, studentID)
	delete(s.embeddings, studentID)
	for key, rec := range s.attendance {
		if rec.StudentID == studentID {
			delete(s.attendance, key)
		}
	}
	return nil
}

// HasEvent reports whether an event exists for the student on the date.
func (s *Store) HasEvent(ctx context.Context, studentID, date string) (bool, error) {
	if s.HasEventError != nil {
		return false, s.HasEventError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.attendance[studentID+"_"+date]
	return ok, nil
}

// Mark inserts an attendance event; the map insert under the mutex
// mirrors the database uniqueness constraint.
func (s *Store) Mark(ctx context.Context, m storage.Mark) (storage.MarkOutcome, error) {
	if s.MarkError != nil {
		return 0, s.MarkError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[m.StudentID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	key := m.StudentID + "_" + m.Date
	if _, exists := s.attendance[key]; exists {
		return storage.MarkAlreadyExists, nil
	}
	s.nextID++
	s.attendance[key] = storage.AttendanceRecord{
		ID:         s.nextID,
		StudentID:  m.StudentID,
		Name:       st.Name,
		Email:      st.Email,
		Course:     st.Course,
		Date:       m.Date,
		Time:       m.Time,
		Status:     m.Status,
		Method:     m.Method,
		Confidence: m.Confidence,
		CreatedAt:  time.Now(),
	}
	return storage.MarkCreated, nil
}

// ListRecords returns attendance records matching the filter, newest first.
func (s *Store) ListRecords(ctx context.Context, f storage.RecordFilter) ([]storage.AttendanceRecord, error) {
	if s.ListRecordsError != nil {
		return nil, s.ListRecordsError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []storage.AttendanceRecord
	for _, rec := range s.attendance {
		if f.StudentID != "" && rec.StudentID != f.StudentID {
			continue
		}
		if f.Date != "" && rec.Date != f.Date {
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].Time > records[j].Time
	})
	if f.Limit > 0 && len(records) > f.Limit {
		records = records[:f.Limit]
	}
	return records, nil
}

// CountByDate returns per-date attendance counts, newest first.
func (s *Store) CountByDate(ctx context.Context, start, end string, limit int) ([]storage.DayCount, error) {
	if s.CountByDateError != nil {
		return nil, s.CountByDateError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	byDate := make(map[string]int)
	for _, rec := range s.attendance {
		if start != "" && end != "" && (rec.Date < start || rec.Date > end) {
			continue
		}
		byDate[rec.Date]++
	}
	counts := make([]storage.DayCount, 0, len(byDate))
	for date, count := range byDate {
		counts = append(counts, storage.DayCount{Date: date, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Date > counts[j].Date })
	if start == "" && limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}
