// Package dedup keeps a per-day record of students already confirmed by
// the recognition loop, so the database is not hit for every frame a
// known face stays in view.
package dedup

import (
	"log"
	"sync"
	"time"

	"github.com/classwatch/classwatch/internal/storage"
)

// Gate is an in-memory set of "already marked today" students. It is a
// cache in front of the attendance ledger, not the source of truth; the
// database unique constraint still guards against duplicates.
type Gate struct {
	now func() time.Time

	mu        sync.Mutex
	date      string
	confirmed map[string]struct{}
}

// NewGate creates a gate for the current day.
func NewGate() *Gate {
	return newGate(time.Now)
}

func newGate(now func() time.Time) *Gate {
	return &Gate{
		now:       now,
		date:      now().Format(storage.DateFormat),
		confirmed: make(map[string]struct{}),
	}
}

// AlreadyConfirmed reports whether the student was confirmed today.
func (g *Gate) AlreadyConfirmed(studentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	_, ok := g.confirmed[studentID]
	return ok
}

// Confirm records that the student's attendance is settled for today.
func (g *Gate) Confirm(studentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	g.confirmed[studentID] = struct{}{}
}

// ResetIfNewDay clears the set when the date has changed since the gate
// was last used. Called at stream start and implicitly on every check.
func (g *Gate) ResetIfNewDay() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
}

// Size returns how many students are confirmed for today.
func (g *Gate) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return len(g.confirmed)
}

func (g *Gate) rolloverLocked() {
	today := g.now().Format(storage.DateFormat)
	if today == g.date {
		return
	}
	log.Printf("attendance day rolled over from %s to %s, clearing %d confirmations", g.date, today, len(g.confirmed))
	g.date = today
	g.confirmed = make(map[string]struct{})
}
