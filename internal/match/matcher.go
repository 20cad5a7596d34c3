package match

import (
	"github.com/classwatch/classwatch/internal/encodings"
)

// DefaultTolerance is the dlib-recommended distance threshold for the
// 128-dim ResNet descriptors. Probes at this distance or farther from
// every enrolled embedding are reported as unknown.
const DefaultTolerance = 0.6

// Result describes the closest enrolled student for a probe embedding.
type Result struct {
	Index      int
	StudentID  string
	Name       string
	Distance   float64
	Confidence float64
}

// Matcher performs an exact nearest-neighbor scan over a snapshot.
type Matcher struct {
	tolerance float64
}

// NewMatcher creates a matcher with the given distance tolerance. A
// tolerance of zero or less falls back to DefaultTolerance.
func NewMatcher(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{tolerance: tolerance}
}

// Tolerance returns the configured distance threshold.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Best returns the closest enrolled student strictly within tolerance.
// The second return value is false when the snapshot is empty or the
// closest distance is at or above it. Ties resolve to the lowest
// snapshot index, so results are deterministic across runs.
func (m *Matcher) Best(snap *encodings.Snapshot, probe []float32) (Result, bool) {
	best := -1
	bestDist := 0.0
	for i, vec := range snap.Vectors {
		d := EuclideanDistance(vec, probe)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 || bestDist >= m.tolerance {
		return Result{}, false
	}
	return m.result(snap, best, bestDist), true
}

func (m *Matcher) result(snap *encodings.Snapshot, idx int, dist float64) Result {
	confidence := 1 - dist
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Result{
		Index:      idx,
		StudentID:  snap.IDs[idx],
		Name:       snap.Names[idx],
		Distance:   dist,
		Confidence: confidence,
	}
}
