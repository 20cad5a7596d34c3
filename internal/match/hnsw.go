package match

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/classwatch/classwatch/internal/encodings"
)

const (
	// hnswMaxNeighbors is M, the max connections per graph node.
	hnswMaxNeighbors = 16
	// hnswCandidates is how many approximate neighbors we pull before
	// exact re-ranking.
	hnswCandidates = 8
)

// Index is an approximate nearest-neighbor index over one snapshot.
// Search results are exact-re-ranked, so the tie-break and tolerance
// semantics match the linear Matcher.
type Index struct {
	graph *hnsw.Graph[int]
	snap  *encodings.Snapshot
}

// BuildIndex constructs an HNSW graph over the snapshot's embeddings.
// Keys are snapshot indices.
func BuildIndex(snap *encodings.Snapshot) *Index {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for i, vec := range snap.Vectors {
		g.Add(hnsw.MakeNode(i, vec))
	}
	return &Index{graph: g, snap: snap}
}

// Best searches the graph for candidates and re-ranks them with exact
// distances. Ties resolve to the lowest snapshot index.
func (ix *Index) Best(m *Matcher, probe []float32) (Result, bool) {
	if ix.snap.Len() == 0 {
		return Result{}, false
	}

	k := hnswCandidates
	if k > ix.snap.Len() {
		k = ix.snap.Len()
	}
	neighbors := ix.graph.Search(probe, k)
	if len(neighbors) == 0 {
		return Result{}, false
	}

	best := -1
	bestDist := 0.0
	for _, n := range neighbors {
		d := EuclideanDistance(ix.snap.Vectors[n.Key], probe)
		if best == -1 || d < bestDist || (d == bestDist && n.Key < best) {
			best = n.Key
			bestDist = d
		}
	}
	if bestDist >= m.tolerance {
		return Result{}, false
	}
	return m.result(ix.snap, best, bestDist), true
}

// Engine picks between the exact matcher and the HNSW index based on
// snapshot size, rebuilding the index when the snapshot changes. With
// minIndexed <= 0 the index is never used.
type Engine struct {
	matcher    *Matcher
	minIndexed int

	mu    sync.Mutex
	index *Index
}

// NewEngine creates an engine that switches to approximate search once
// a snapshot has at least minIndexed entries.
func NewEngine(matcher *Matcher, minIndexed int) *Engine {
	return &Engine{matcher: matcher, minIndexed: minIndexed}
}

// Best finds the closest enrolled student for the probe.
func (e *Engine) Best(snap *encodings.Snapshot, probe []float32) (Result, bool) {
	if e.minIndexed <= 0 || snap.Len() < e.minIndexed {
		return e.matcher.Best(snap, probe)
	}

	e.mu.Lock()
	if e.index == nil || e.index.snap != snap {
		e.index = BuildIndex(snap)
	}
	index := e.index
	e.mu.Unlock()

	return index.Best(e.matcher, probe)
}
