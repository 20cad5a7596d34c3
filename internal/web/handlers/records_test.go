package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/storage/mock"
)

func seedAttendance(t *testing.T, store *mock.Store, studentID, date string) {
	t.Helper()
	if _, err := store.Mark(context.Background(), storage.Mark{
		StudentID: studentID,
		Date:      date,
		Time:      "09:00:00",
		Status:    storage.StatusPresent,
		Method:    storage.MethodRecognition,
	}); err != nil {
		t.Fatalf("seeding attendance: %v", err)
	}
}

func TestListRecords(t *testing.T) {
	store := mock.NewStore()
	store.AddEnrollee("S001", "Alice Novak", make([]float32, storage.EmbeddingDim))
	store.AddEnrollee("S002", "Bob Dvorak", make([]float32, storage.EmbeddingDim))
	seedAttendance(t, store, "S001", "2026-03-10")
	seedAttendance(t, store, "S002", "2026-03-10")
	seedAttendance(t, store, "S001", "2026-03-11")

	h := NewRecordsHandler(store)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Records []recordResponse `json:"records"`
		Count   int              `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 3 {
		t.Errorf("expected 3 records, got %d", resp.Count)
	}

	// Filter by student
	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance?student_id=S001", nil))
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("expected 2 records for S001, got %d", resp.Count)
	}

	// Filter by date
	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance?date=2026-03-11", nil))
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Records[0].StudentID != "S001" {
		t.Errorf("unexpected date filter result: %+v", resp)
	}
}

func TestListRecordsBadParams(t *testing.T) {
	h := NewRecordsHandler(mock.NewStore())

	for _, url := range []string{
		"/api/v1/attendance?date=11-03-2026",
		"/api/v1/attendance?limit=0",
		"/api/v1/attendance?limit=9999",
	} {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", url, rec.Code)
		}
	}
}

func TestManualMark(t *testing.T) {
	store := mock.NewStore()
	store.AddEnrollee("S001", "Alice Novak", make([]float32, storage.EmbeddingDim))
	h := NewRecordsHandler(store)

	body := strings.NewReader(`{"student_id": "S001"}`)
	rec := httptest.NewRecorder()
	h.ManualMark(rec, httptest.NewRequest(http.MethodPost, "/api/v1/attendance", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.MarkCount("S001") != 1 {
		t.Errorf("expected one event, got %d", store.MarkCount("S001"))
	}

	records, err := store.ListRecords(t.Context(), storage.RecordFilter{StudentID: "S001"})
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if records[0].Method != storage.MethodManual {
		t.Errorf("expected manual method, got %s", records[0].Method)
	}
	if records[0].Date != time.Now().Format(storage.DateFormat) {
		t.Errorf("expected today's date, got %s", records[0].Date)
	}
}

func TestManualMarkDuplicate(t *testing.T) {
	store := mock.NewStore()
	store.AddEnrollee("S001", "Alice Novak", make([]float32, storage.EmbeddingDim))
	seedAttendance(t, store, "S001", "2026-03-10")
	h := NewRecordsHandler(store)

	body := strings.NewReader(`{"student_id": "S001", "date": "2026-03-10"}`)
	rec := httptest.NewRecorder()
	h.ManualMark(rec, httptest.NewRequest(http.MethodPost, "/api/v1/attendance", body))

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestManualMarkUnknownStudent(t *testing.T) {
	h := NewRecordsHandler(mock.NewStore())

	body := strings.NewReader(`{"student_id": "S404"}`)
	rec := httptest.NewRecorder()
	h.ManualMark(rec, httptest.NewRequest(http.MethodPost, "/api/v1/attendance", body))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestManualMarkValidation(t *testing.T) {
	store := mock.NewStore()
	store.AddEnrollee("S001", "Alice Novak", make([]float32, storage.EmbeddingDim))
	h := NewRecordsHandler(store)

	for name, body := range map[string]string{
		"missing id": `{}`,
		"bad date":   `{"student_id": "S001", "date": "10.03.2026"}`,
		"bad status": `{"student_id": "S001", "status": "absent"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ManualMark(rec, httptest.NewRequest(http.MethodPost, "/api/v1/attendance", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}
