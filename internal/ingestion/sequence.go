package ingestion

import "sync"

// SequenceGuard tracks the highest source sequence delivered per subject
// and flags regressions. A regression is harmless when it is a JetStream
// redelivery, which the engine's processed marker absorbs; anything else
// means the upstream decoder published out of order and the derived
// entities may correlate against the wrong stream prefix.
type SequenceGuard struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewSequenceGuard() *SequenceGuard {
	return &SequenceGuard{last: make(map[string]int64)}
}

// Observe records seq for the subject and reports whether it moved
// backward relative to the highest sequence seen so far.
func (g *SequenceGuard) Observe(subject string, seq int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev, seen := g.last[subject]
	if !seen || seq >= prev {
		g.last[subject] = seq
		return false
	}
	return true
}
