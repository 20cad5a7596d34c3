package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/classwatch/classwatch/internal/storage"
)

// ExportHandler streams attendance records as CSV
type ExportHandler struct {
	store storage.AttendanceLedger
}

// NewExportHandler creates a new export handler
func NewExportHandler(store storage.AttendanceLedger) *ExportHandler {
	return &ExportHandler{store: store}
}

// csvHeader is the column layout of exported attendance files.
var csvHeader = []string{"Student ID", "Name", "Email", "Course", "Date", "Time", "Status", "Method", "Confidence"}

// WriteCSV writes the records matching the filter to w. Shared with the
// export CLI command.
func WriteCSV(w *csv.Writer, records []storage.AttendanceRecord) error {
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i := range records {
		rec := &records[i]
		confidence := ""
		if rec.Confidence != nil {
			confidence = strconv.FormatFloat(*rec.Confidence, 'f', 4, 64)
		}
		row := []string{
			rec.StudentID,
			rec.Name,
			rec.Email,
			rec.Course,
			rec.Date,
			rec.Time,
			rec.Status,
			rec.Method,
			confidence,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// Export downloads attendance records as a CSV file. Supports the same
// filters as the records listing.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, msg := parseRecordFilter(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	// Exports are not paginated like the JSON listing.
	filter.Limit = 0

	records, err := h.store.ListRecords(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	filename := "attendance_records_" + time.Now().Format("20060102_150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := WriteCSV(csv.NewWriter(w), records); err != nil {
		// Headers are already out; nothing sensible left to send.
		return
	}
}
