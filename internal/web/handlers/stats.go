package handlers

import (
	"math"
	"net/http"
	"time"

	"github.com/classwatch/classwatch/internal/storage"
)

// statsWindowDays is how many days of history the dashboard shows.
const statsWindowDays = 30

// recentRecordsLimit caps the recent-activity list on the dashboard.
const recentRecordsLimit = 10

// StatsHandler serves dashboard statistics
type StatsHandler struct {
	store storage.Store
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(store storage.Store) *StatsHandler {
	return &StatsHandler{store: store}
}

// statsResponse is the dashboard summary
type statsResponse struct {
	TotalStudents    int               `json:"total_students"`
	EnrolledStudents int               `json:"enrolled_students"`
	PresentToday     int               `json:"present_today"`
	AttendanceRate   float64           `json:"attendance_rate"`
	RecentDays       []dayCountPayload `json:"recent_days"`
	RecentRecords    []recordResponse  `json:"recent_records"`
}

type dayCountPayload struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Dashboard returns enrollment totals, today's attendance rate, the
// per-day counts for the last 30 days and the latest records.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load students")
		return
	}

	enrolled := 0
	for i := range students {
		if students[i].Enrolled {
			enrolled++
		}
	}

	now := time.Now()
	today := now.Format(storage.DateFormat)
	windowStart := now.AddDate(0, 0, -(statsWindowDays - 1)).Format(storage.DateFormat)

	counts, err := h.store.CountByDate(r.Context(), windowStart, today, statsWindowDays)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load attendance counts")
		return
	}

	presentToday := 0
	days := make([]dayCountPayload, 0, len(counts))
	for _, c := range counts {
		if c.Date == today {
			presentToday = c.Count
		}
		days = append(days, dayCountPayload{Date: c.Date, Count: c.Count})
	}

	rate := 0.0
	if len(students) > 0 {
		rate = math.Round(float64(presentToday)/float64(len(students))*1000) / 10
	}

	records, err := h.store.ListRecords(r.Context(), storage.RecordFilter{Limit: recentRecordsLimit})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load recent records")
		return
	}
	recent := make([]recordResponse, 0, len(records))
	for i := range records {
		recent = append(recent, toRecordResponse(&records[i]))
	}

	respondJSON(w, http.StatusOK, statsResponse{
		TotalStudents:    len(students),
		EnrolledStudents: enrolled,
		PresentToday:     presentToday,
		AttendanceRate:   rate,
		RecentDays:       days,
		RecentRecords:    recent,
	})
}
