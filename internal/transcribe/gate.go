package transcribe

import (
	"context"
	"sync"
)

// Gate bounds concurrent inference. Admission is a counting semaphore so a
// burst of requests cannot pile onto the CPU; the inner mutex additionally
// guarantees that raw engine calls never interleave, because the engine
// keeps attempt-scoped decode state that corrupts under concurrency. The
// mutex is released between the initial attempt and a retry so a wedged
// attempt cannot poison the next one.
type Gate struct {
	slots chan struct{}
	mu    sync.Mutex
}

// NewGate returns a gate admitting at most limit callers; limit below one is
// treated as one.
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is free or ctx is cancelled. The returned
// permit must be released on every exit path.
func (g *Gate) Acquire(ctx context.Context) (*Permit, error) {
	select {
	case g.slots <- struct{}{}:
		return &Permit{gate: g}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// exclusive runs fn while holding the raw engine lock.
func (g *Gate) exclusive(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// Permit represents one admitted request. Release is idempotent.
type Permit struct {
	gate *Gate
	once sync.Once
}

// Release frees the admission slot.
func (p *Permit) Release() {
	p.once.Do(func() {
		<-p.gate.slots
	})
}
