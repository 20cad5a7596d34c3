package match

import (
	"math"
	"testing"

	"github.com/classwatch/classwatch/internal/encodings"
)

// embeddingAtDistance builds a 128-dim vector whose L2 distance from the
// zero vector is exactly d.
func embeddingAtDistance(d float64) []float32 {
	v := make([]float32, 128)
	v[0] = float32(d)
	return v
}

func zeroProbe() []float32 {
	return make([]float32, 128)
}

func snapshotOf(pairs ...[2]any) *encodings.Snapshot {
	snap := &encodings.Snapshot{}
	for _, p := range pairs {
		snap.IDs = append(snap.IDs, p[0].(string))
		snap.Names = append(snap.Names, p[0].(string))
		snap.Vectors = append(snap.Vectors, p[1].([]float32))
	}
	return snap
}

func TestEuclideanDistance(t *testing.T) {
	a := []float32{3, 0, 4}
	b := []float32{0, 0, 0}
	if got := EuclideanDistance(a, b); math.Abs(got-5) > 1e-9 {
		t.Errorf("expected distance 5, got %f", got)
	}
	if got := EuclideanDistance(a, a); got != 0 {
		t.Errorf("expected zero distance to self, got %f", got)
	}
}

func TestMatcherWithinTolerance(t *testing.T) {
	snap := snapshotOf(
		[2]any{"S001", embeddingAtDistance(0.3)},
		[2]any{"S002", embeddingAtDistance(0.9)},
	)
	m := NewMatcher(0.6)

	res, ok := m.Best(snap, zeroProbe())
	if !ok {
		t.Fatal("expected a match within tolerance")
	}
	if res.StudentID != "S001" {
		t.Errorf("expected S001, got %s", res.StudentID)
	}
	if math.Abs(res.Distance-0.3) > 1e-6 {
		t.Errorf("expected distance 0.3, got %f", res.Distance)
	}
	if math.Abs(res.Confidence-0.7) > 1e-6 {
		t.Errorf("expected confidence 0.7, got %f", res.Confidence)
	}
}

func TestMatcherBeyondTolerance(t *testing.T) {
	snap := snapshotOf([2]any{"S001", embeddingAtDistance(0.65)})
	m := NewMatcher(0.6)

	if _, ok := m.Best(snap, zeroProbe()); ok {
		t.Error("expected no match for distance 0.65 with tolerance 0.6")
	}
}

func TestMatcherBoundaryDistanceIsNoMatch(t *testing.T) {
	snap := snapshotOf([2]any{"S001", embeddingAtDistance(0.5)})
	m := NewMatcher(0.5)

	if _, ok := m.Best(snap, zeroProbe()); ok {
		t.Error("expected no match when the distance equals the tolerance")
	}
}

func TestMatcherToleranceMonotonic(t *testing.T) {
	snap := snapshotOf(
		[2]any{"S001", embeddingAtDistance(0.45)},
		[2]any{"S002", embeddingAtDistance(0.9)},
	)
	probe := zeroProbe()

	tolerances := []float64{0.3, 0.5, 0.6, 1.0}
	prev := false
	for _, tol := range tolerances {
		_, ok := NewMatcher(tol).Best(snap, probe)
		if prev && !ok {
			t.Errorf("match lost when widening tolerance to %f", tol)
		}
		prev = ok
	}
	if !prev {
		t.Error("expected a match at the widest tolerance")
	}
}

func TestMatcherEmptySnapshot(t *testing.T) {
	m := NewMatcher(0.6)
	if _, ok := m.Best(&encodings.Snapshot{}, zeroProbe()); ok {
		t.Error("expected no match for empty snapshot")
	}
}

func TestMatcherTieBreaksToLowestIndex(t *testing.T) {
	same := embeddingAtDistance(0.2)
	snap := snapshotOf(
		[2]any{"S001", same},
		[2]any{"S002", same},
	)
	m := NewMatcher(0.6)

	res, ok := m.Best(snap, zeroProbe())
	if !ok {
		t.Fatal("expected a match")
	}
	if res.StudentID != "S001" {
		t.Errorf("tie should resolve to the lowest index, got %s", res.StudentID)
	}
}

func TestMatcherConfidenceClamped(t *testing.T) {
	snap := snapshotOf([2]any{"S001", embeddingAtDistance(1.5)})
	m := NewMatcher(2.0)

	res, ok := m.Best(snap, zeroProbe())
	if !ok {
		t.Fatal("expected a match with wide tolerance")
	}
	if res.Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %f", res.Confidence)
	}
}

func TestMatcherDefaultTolerance(t *testing.T) {
	m := NewMatcher(0)
	if m.Tolerance() != DefaultTolerance {
		t.Errorf("expected default tolerance %f, got %f", DefaultTolerance, m.Tolerance())
	}
}
