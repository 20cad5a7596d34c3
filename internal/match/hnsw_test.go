package match

import (
	"fmt"
	"math"
	"testing"

	"github.com/classwatch/classwatch/internal/encodings"
)

func clusterSnapshot(n int) *encodings.Snapshot {
	snap := &encodings.Snapshot{}
	for i := 0; i < n; i++ {
		v := make([]float32, 128)
		v[0] = float32(i) // each enrollee 1.0 apart on one axis
		snap.IDs = append(snap.IDs, fmt.Sprintf("S%03d", i))
		snap.Names = append(snap.Names, fmt.Sprintf("Student %d", i))
		snap.Vectors = append(snap.Vectors, v)
	}
	return snap
}

func TestIndexAgreesWithLinearMatcher(t *testing.T) {
	snap := clusterSnapshot(50)
	m := NewMatcher(0.6)
	ix := BuildIndex(snap)

	for i := 0; i < 50; i++ {
		probe := make([]float32, 128)
		probe[0] = float32(i) + 0.1

		lin, linOK := m.Best(snap, probe)
		ann, annOK := ix.Best(m, probe)

		if linOK != annOK {
			t.Fatalf("probe %d: linear ok=%v, index ok=%v", i, linOK, annOK)
		}
		if !linOK {
			continue
		}
		if lin.StudentID != ann.StudentID {
			t.Errorf("probe %d: linear matched %s, index matched %s", i, lin.StudentID, ann.StudentID)
		}
		if math.Abs(lin.Distance-ann.Distance) > 1e-6 {
			t.Errorf("probe %d: distance mismatch %f vs %f", i, lin.Distance, ann.Distance)
		}
	}
}

func TestIndexRespectsTolerance(t *testing.T) {
	snap := clusterSnapshot(20)
	m := NewMatcher(0.6)
	ix := BuildIndex(snap)

	probe := make([]float32, 128)
	probe[0] = 0.8 // 0.8 from S000, 0.2 from S001

	res, ok := ix.Best(m, probe)
	if !ok {
		t.Fatal("expected a match")
	}
	if res.StudentID != "S001" {
		t.Errorf("expected S001, got %s", res.StudentID)
	}

	far := make([]float32, 128)
	far[0] = -5
	if _, ok := ix.Best(m, far); ok {
		t.Error("expected no match beyond tolerance")
	}
}

func TestIndexBoundaryDistanceIsNoMatch(t *testing.T) {
	snap := clusterSnapshot(20)
	m := NewMatcher(0.5)
	ix := BuildIndex(snap)

	probe := make([]float32, 128)
	probe[0] = 0.5 // exactly the tolerance away from S000

	if _, ok := ix.Best(m, probe); ok {
		t.Error("expected no match when the distance equals the tolerance")
	}
}

func TestIndexEmptySnapshot(t *testing.T) {
	m := NewMatcher(0.6)
	ix := BuildIndex(&encodings.Snapshot{})
	if _, ok := ix.Best(m, make([]float32, 128)); ok {
		t.Error("expected no match for empty index")
	}
}

func TestEngineSelectsByThreshold(t *testing.T) {
	snap := clusterSnapshot(10)
	m := NewMatcher(0.6)

	// Below threshold: linear path, no index built.
	engine := NewEngine(m, 100)
	probe := make([]float32, 128)
	probe[0] = 3.2
	res, ok := engine.Best(snap, probe)
	if !ok || res.StudentID != "S003" {
		t.Fatalf("linear path: expected S003, got %+v ok=%v", res, ok)
	}
	if engine.index != nil {
		t.Error("expected no index below the threshold")
	}

	// Above threshold: index built and reused for the same snapshot.
	engine = NewEngine(m, 5)
	res, ok = engine.Best(snap, probe)
	if !ok || res.StudentID != "S003" {
		t.Fatalf("indexed path: expected S003, got %+v ok=%v", res, ok)
	}
	if engine.index == nil {
		t.Fatal("expected index to be built")
	}
	first := engine.index
	if _, _ = engine.Best(snap, probe); engine.index != first {
		t.Error("expected index reuse for unchanged snapshot")
	}

	// New snapshot triggers a rebuild.
	snap2 := clusterSnapshot(12)
	if _, _ = engine.Best(snap2, probe); engine.index == first {
		t.Error("expected index rebuild for a new snapshot")
	}
}

func TestEngineDisabled(t *testing.T) {
	snap := clusterSnapshot(10)
	engine := NewEngine(NewMatcher(0.6), 0)

	probe := make([]float32, 128)
	probe[0] = 7.1
	res, ok := engine.Best(snap, probe)
	if !ok || res.StudentID != "S007" {
		t.Fatalf("expected S007 via linear scan, got %+v ok=%v", res, ok)
	}
	if engine.index != nil {
		t.Error("expected no index when disabled")
	}
}
