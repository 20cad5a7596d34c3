package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/storage/mock"
)

func TestDashboardStats(t *testing.T) {
	store := mock.NewStore()
	store.AddEnrollee("S001", "Alice Novak", make([]float32, storage.EmbeddingDim))
	store.AddEnrollee("S002", "Bob Dvorak", make([]float32, storage.EmbeddingDim))
	store.AddEnrollee("S003", "Carol King", nil) // registered but no embedding

	today := time.Now().Format(storage.DateFormat)
	yesterday := time.Now().AddDate(0, 0, -1).Format(storage.DateFormat)
	seedAttendance(t, store, "S001", today)
	seedAttendance(t, store, "S002", today)
	seedAttendance(t, store, "S001", yesterday)

	h := NewStatsHandler(store)

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.TotalStudents != 3 {
		t.Errorf("expected 3 students, got %d", resp.TotalStudents)
	}
	if resp.EnrolledStudents != 2 {
		t.Errorf("expected 2 enrolled, got %d", resp.EnrolledStudents)
	}
	if resp.PresentToday != 2 {
		t.Errorf("expected 2 present today, got %d", resp.PresentToday)
	}
	if resp.AttendanceRate != 66.7 {
		t.Errorf("expected attendance rate 66.7, got %f", resp.AttendanceRate)
	}
	if len(resp.RecentDays) != 2 {
		t.Errorf("expected 2 days with attendance, got %d", len(resp.RecentDays))
	}
	if len(resp.RecentRecords) != 3 {
		t.Errorf("expected 3 recent records, got %d", len(resp.RecentRecords))
	}
}

func TestDashboardStatsEmpty(t *testing.T) {
	h := NewStatsHandler(mock.NewStore())

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	var resp statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.TotalStudents != 0 || resp.PresentToday != 0 {
		t.Errorf("expected empty stats, got %+v", resp)
	}
	if resp.AttendanceRate != 0 {
		t.Errorf("expected zero attendance rate, got %f", resp.AttendanceRate)
	}
}
