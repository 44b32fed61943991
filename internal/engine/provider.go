package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// OpenFunc creates the underlying engine; Provider invokes it at most once
// concurrently.
type OpenFunc func(ctx context.Context) (Engine, error)

// Provider owns the process-wide engine singleton. The model is loaded
// lazily on first use; a failed load leaves the provider unloaded so a later
// request triggers a fresh attempt. Waiting callers can bail out through
// their context while another load is in flight.
type Provider struct {
	log  *slog.Logger
	open OpenFunc

	loading chan struct{} // capacity 1, held for the duration of a load

	mu  sync.RWMutex
	eng Engine
}

// NewProvider returns an unloaded Provider.
func NewProvider(open OpenFunc, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	if open == nil {
		panic("engine: open func must not be nil")
	}
	return &Provider{
		log:     logger.With("component", "engine.provider"),
		open:    open,
		loading: make(chan struct{}, 1),
	}
}

// Engine returns the loaded engine, loading it first if needed. Only one
// load attempt is ever in flight; concurrent callers wait for it or give up
// when their context is cancelled.
func (p *Provider) Engine(ctx context.Context) (Engine, error) {
	if eng := p.current(); eng != nil {
		return eng, nil
	}

	select {
	case p.loading <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.loading }()

	// Another caller may have finished the load while we waited.
	if eng := p.current(); eng != nil {
		return eng, nil
	}

	p.log.Info("loading inference engine")
	eng, err := p.open(ctx)
	if err != nil {
		p.log.Error("engine load failed", "error", err)
		return nil, fmt.Errorf("engine: load: %w", err)
	}

	p.mu.Lock()
	p.eng = eng
	p.mu.Unlock()
	p.log.Info("inference engine loaded")
	return eng, nil
}

// Loaded reports whether an engine is available without triggering a load.
func (p *Provider) Loaded() bool {
	return p.current() != nil
}

// Close releases the engine if one was loaded.
func (p *Provider) Close() error {
	p.mu.Lock()
	eng := p.eng
	p.eng = nil
	p.mu.Unlock()
	if eng == nil {
		return nil
	}
	return eng.Close()
}

func (p *Provider) current() Engine {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.eng
}
