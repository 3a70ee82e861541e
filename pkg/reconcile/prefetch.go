package reconcile

import (
	"context"
	"sync"
)

// prefetcher runs best-effort background fetches of the identity/path
// values for newly added items. One prefetcher exists per query generation;
// a restart cancels the whole generation in bulk.
//
// Prefetches never block a publish, and a fetch completing after
// cancellation or after its item was evicted is discarded.
type prefetcher struct {
	engine *Engine
	source ValueSource
	keys   []string

	ctx    context.Context
	stop   context.CancelFunc
	sem    chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	queued map[ItemID]struct{}
}

func newPrefetcher(e *Engine, workers int) *prefetcher {
	ctx, stop := context.WithCancel(context.Background())
	return &prefetcher{
		engine: e,
		source: e.source,
		keys:   e.pathKeys,
		ctx:    ctx,
		stop:   stop,
		sem:    make(chan struct{}, workers),
		queued: make(map[ItemID]struct{}),
	}
}

// schedule enqueues background fetches for the given items. Items already
// queued in this generation are skipped.
func (p *prefetcher) schedule(ids []ItemID) {
	for _, id := range ids {
		p.mu.Lock()
		if _, dup := p.queued[id]; dup {
			p.mu.Unlock()
			continue
		}
		p.queued[id] = struct{}{}
		p.mu.Unlock()

		p.wg.Add(1)
		go p.fetch(id)
	}
}

func (p *prefetcher) fetch(id ItemID) {
	defer p.wg.Done()

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-p.ctx.Done():
		return
	}

	if p.ctx.Err() != nil {
		return
	}

	values, err := p.source.FetchValues(id, p.keys)
	if err != nil || len(values) == 0 {
		// Path information is supplementary; failures are silent.
		return
	}

	if p.ctx.Err() != nil {
		// Cancelled mid-fetch: discard rather than apply.
		return
	}

	p.engine.mergePrefetched(p, id, values)
}

// cancel stops the generation in bulk. In-flight fetches observe the
// cancelled context and discard their results.
func (p *prefetcher) cancel() {
	p.stop()
}
