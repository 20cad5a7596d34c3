package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/classwatch/classwatch/internal/storage"
)

// RecordsHandler handles attendance record endpoints
type RecordsHandler struct {
	store storage.Store
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(store storage.Store) *RecordsHandler {
	return &RecordsHandler{store: store}
}

// recordResponse is the JSON shape for one attendance record
type recordResponse struct {
	ID         int64    `json:"id"`
	StudentID  string   `json:"student_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Course     string   `json:"course,omitempty"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	Status     string   `json:"status"`
	Method     string   `json:"method"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func toRecordResponse(rec *storage.AttendanceRecord) recordResponse {
	return recordResponse{
		ID:         rec.ID,
		StudentID:  rec.StudentID,
		Name:       rec.Name,
		Email:      rec.Email,
		Course:     rec.Course,
		Date:       rec.Date,
		Time:       rec.Time,
		Status:     rec.Status,
		Method:     rec.Method,
		Confidence: rec.Confidence,
	}
}

// parseRecordFilter builds a filter from query parameters.
func parseRecordFilter(r *http.Request) (storage.RecordFilter, string) {
	f := storage.RecordFilter{
		StudentID: r.URL.Query().Get("student_id"),
		Date:      r.URL.Query().Get("date"),
		Limit:     100,
	}
	if f.Date != "" {
		if _, err := time.Parse(storage.DateFormat, f.Date); err != nil {
			return f, "date must be YYYY-MM-DD"
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 1000 {
			return f, "limit must be 1-1000"
		}
		f.Limit = n
	}
	return f, ""
}

// List returns attendance records, newest first. Supports student_id,
// date, and limit query parameters.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseRecordFilter(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	records, err := h.store.ListRecords(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	out := make([]recordResponse, 0, len(records))
	for i := range records {
		out = append(out, toRecordResponse(&records[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": out,
		"count":   len(out),
	})
}

// manualMarkRequest represents a manual attendance entry
type manualMarkRequest struct {
	StudentID string `json:"student_id"`
	Date      string `json:"date"`   // optional, defaults to today
	Status    string `json:"status"` // optional, defaults to present
}

// ManualMark records attendance entered by the admin, e.g. for a
// student the camera missed.
func (h *RecordsHandler) ManualMark(w http.ResponseWriter, r *http.Request) {
	var req manualMarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.StudentID == "" {
		respondError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	now := time.Now()
	if req.Date == "" {
		req.Date = now.Format(storage.DateFormat)
	} else if _, err := time.Parse(storage.DateFormat, req.Date); err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	switch req.Status {
	case "":
		req.Status = storage.StatusPresent
	case storage.StatusPresent, storage.StatusLate:
	default:
		respondError(w, http.StatusBadRequest, "status must be present or late")
		return
	}

	outcome, err := h.store.Mark(r.Context(), storage.Mark{
		StudentID: req.StudentID,
		Date:      req.Date,
		Time:      now.Format(storage.TimeFormat),
		Status:    req.Status,
		Method:    storage.MethodManual,
	})
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to mark attendance")
		return
	}
	if outcome == storage.MarkAlreadyExists {
		respondError(w, http.StatusConflict, "attendance already marked for this date")
		return
	}

	log.Printf("manual attendance for %s on %s", sanitizeForLog(req.StudentID), req.Date)
	respondJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
