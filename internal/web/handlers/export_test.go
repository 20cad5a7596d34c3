package handlers

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/classwatch/classwatch/internal/storage"
	"github.com/classwatch/classwatch/internal/storage/mock"
)

func TestExportCSV(t *testing.T) {
	store := mock.NewStore()
	store.AddEnrollee("S001", "Alice Novak", make([]float32, storage.EmbeddingDim))
	seedAttendance(t, store, "S001", "2026-03-10")

	h := NewExportHandler(store)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("expected attachment disposition, got %s", cd)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d rows", len(rows))
	}
	if rows[0][0] != "Student ID" || rows[0][4] != "Date" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "S001" || rows[1][4] != "2026-03-10" || rows[1][6] != storage.StatusPresent {
		t.Errorf("unexpected row: %v", rows[1])
	}
}

func TestExportRespectsFilters(t *testing.T) {
	store := mock.NewStore()
	store.AddEnrollee("S001", "Alice Novak", make([]float32, storage.EmbeddingDim))
	store.AddEnrollee("S002", "Bob Dvorak", make([]float32, storage.EmbeddingDim))
	seedAttendance(t, store, "S001", "2026-03-10")
	seedAttendance(t, store, "S002", "2026-03-10")

	h := NewExportHandler(store)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export?student_id=S002", nil))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "S002" {
		t.Errorf("expected only S002 exported, got %v", rows)
	}
}

func TestExportBadDate(t *testing.T) {
	h := NewExportHandler(mock.NewStore())

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/api/v1/attendance/export?date=bogus", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}
