// Package encodings keeps the enrolled face embeddings in memory so the
// recognition loop never touches the database per frame. The cache holds
// an immutable snapshot that is swapped atomically on reload.
package encodings

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/classwatch/classwatch/internal/storage"
)

// Snapshot is an immutable view of the enrolled students. The three
// slices are parallel: Vectors[i] belongs to the student with ID IDs[i]
// and display name Names[i]. Callers must not mutate a snapshot.
type Snapshot struct {
	IDs     []string
	Names   []string
	Vectors [][]float32
}

// Len returns the number of enrolled students in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.IDs)
}

// Cache loads enrollee embeddings from storage and serves them to the
// recognition loop. Safe for concurrent use.
type Cache struct {
	source storage.EnrollmentReader

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewCache creates an empty cache backed by the given reader. Call
// Reload before serving recognition traffic.
func NewCache(source storage.EnrollmentReader) *Cache {
	return &Cache{
		source:   source,
		snapshot: &Snapshot{},
	}
}

// Snapshot returns the current snapshot. The returned value is shared
// and must be treated as read-only.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Reload fetches all enrollees and swaps in a fresh snapshot. On error
// the previous snapshot stays in place so recognition keeps working
// with slightly stale data.
func (c *Cache) Reload(ctx context.Context) error {
	enrollees, err := c.source.ListEnrolled(ctx)
	if err != nil {
		return fmt.Errorf("could not load enrolled students: %w", err)
	}

	next := &Snapshot{
		IDs:     make([]string, 0, len(enrollees)),
		Names:   make([]string, 0, len(enrollees)),
		Vectors: make([][]float32, 0, len(enrollees)),
	}
	for _, e := range enrollees {
		if len(e.Embedding) != storage.EmbeddingDim {
			log.Printf("skipping student %s: embedding has %d dimensions", e.StudentID, len(e.Embedding))
			continue
		}
		next.IDs = append(next.IDs, e.StudentID)
		next.Names = append(next.Names, e.Name)
		next.Vectors = append(next.Vectors, e.Embedding)
	}

	c.mu.Lock()
	c.snapshot = next
	c.mu.Unlock()

	log.Printf("encoding cache reloaded: %d enrolled students", next.Len())
	return nil
}
