package testutil

import "sync"

// SequenceGenerator hands out consecutive TIDs from a fixed start.
//
// It satisfies the core's ID generator interface without touching the
// filesystem, which makes created entity and statement IDs predictable in
// tests. Generate never fails.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu   sync.Mutex
	next int64
}

// NewSequenceGenerator creates a generator whose first TID is start.
// A start below 1 begins at 1_000_000_000_000.
func NewSequenceGenerator(start int64) *SequenceGenerator {
	if start < 1 {
		start = 1_000_000_000_000
	}
	return &SequenceGenerator{next: start}
}

// Generate returns the next TID.
func (g *SequenceGenerator) Generate() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := g.next
	g.next++
	return t, nil
}

// Peek returns the TID the next Generate call will return.
func (g *SequenceGenerator) Peek() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
