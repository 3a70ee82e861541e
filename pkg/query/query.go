// Package query is the public facade over the metadata search stack.
//
// A Query owns one backend request at a time. Callers configure scope,
// predicate, attributes, sorting and grouping, then Start it; the query
// compiles the predicate, submits the request, forwards backend
// notifications into the reconciliation engine, and delivers published
// snapshots through the results handler.
//
// Reconfiguring a running query stops the backend request, clears all
// reconciled state and immediately re-issues the request with the new
// configuration. There is no incremental reconfiguration.
//
// Example usage:
//
//	q := query.New(fsBackend, query.Config{
//	    Scopes:     []string{"/home/me/Documents"},
//	    Monitoring: true,
//	}, logger.Default())
//	q.SetResultsHandler(func(snap reconcile.Snapshot, diff reconcile.Diff) {
//	    fmt.Printf("%d items (%d added)\n", snap.Len(), len(diff.Added))
//	})
//	_ = q.SetPredicate(predicate.Attr(attribute.FileExtension).Equals("pdf"))
//	if err := q.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Stop()
package query

import (
	"context"
	"fmt"
	"sync"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/backend"
	"github.com/hxhall/mdq/pkg/logger"
	"github.com/hxhall/mdq/pkg/predicate"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// ResultsHandler receives each published snapshot and its diff.
//
// Handlers run with no internal lock held and may call back into the
// query (Results, Stop).
type ResultsHandler func(snapshot reconcile.Snapshot, diff reconcile.Diff)

// Config contains the initial query configuration.
type Config struct {
	// Scopes are the search locations (directories).
	Scopes []string

	// Attributes are the logical attributes to fetch per item, beyond
	// those the predicate references. The path attribute is always
	// fetched.
	Attributes []attribute.ID

	// SortKeys order the result set.
	SortKeys []attribute.SortKey

	// GroupKeys configure the grouped results projection.
	GroupKeys []attribute.GroupKey

	// Monitoring keeps the query alive after gathering, reporting live
	// updates.
	Monitoring bool

	// Batching tunes publish coalescing. Zero-value fields take defaults.
	Batching reconcile.BatchingPolicy

	// PublishDuringGathering enables intermediate publishes during the
	// initial sweep.
	PublishDuringGathering bool
}

// Query orchestrates one search against a backend.
type Query struct {
	backendImpl backend.Backend
	logger      logger.Logger

	mu         sync.Mutex
	config     Config
	expr       predicate.Expression
	compiled   string
	handler    ResultsHandler
	engine     *reconcile.Engine
	handle     backend.Handle
	ctx        context.Context
	running    bool
	closed     bool
	generation int
	gatherDone chan struct{}
}

// New creates a query over the given backend.
//
// Parameters:
//   - b: Search backend
//   - cfg: Initial configuration
//   - log: Logger instance
func New(b backend.Backend, cfg Config, log logger.Logger) *Query {
	if log == nil {
		log = logger.Noop()
	}

	q := &Query{
		backendImpl: b,
		logger:      log,
		config:      cfg,
		compiled:    mustCompileNil(),
	}

	q.engine = reconcile.NewEngine(reconcile.Config{
		Policy:                 cfg.Batching,
		PublishDuringGathering: cfg.PublishDuringGathering,
	}, q.dispatch, log)

	return q
}

func mustCompileNil() string {
	s, _ := predicate.Compile(nil)
	return s
}

// dispatch forwards engine publishes to the configured handler.
func (q *Query) dispatch(snapshot reconcile.Snapshot, diff reconcile.Diff) {
	q.mu.Lock()
	handler := q.handler
	q.mu.Unlock()

	if handler != nil {
		handler(snapshot, diff)
	}
}

// SetPredicate compiles and assigns the predicate. A nil expression
// matches every indexed item.
//
// Compilation happens here, not lazily: an invalid predicate is reported
// immediately and leaves the previous predicate in place. Assigning while
// running restarts the query with a cleared snapshot.
func (q *Query) SetPredicate(e predicate.Expression) error {
	compiled, err := predicate.Compile(e)
	if err != nil {
		return fmt.Errorf("failed to compile predicate: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.expr = e
	q.compiled = compiled
	return q.restartLocked()
}

// Predicate returns the current expression and its compiled query string.
func (q *Query) Predicate() (predicate.Expression, string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.expr, q.compiled
}

// SetScopes replaces the search scopes. Restarts if running.
func (q *Query) SetScopes(scopes ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.config.Scopes = scopes
	return q.restartLocked()
}

// SetAttributes replaces the fetched attribute list. Restarts if running.
func (q *Query) SetAttributes(attrs ...attribute.ID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.config.Attributes = attrs
	return q.restartLocked()
}

// SetSortKeys replaces the sort order. Restarts if running.
func (q *Query) SetSortKeys(keys ...attribute.SortKey) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.config.SortKeys = keys
	return q.restartLocked()
}

// SetGroupKeys replaces the grouping configuration. Restarts if running.
func (q *Query) SetGroupKeys(keys ...attribute.GroupKey) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.config.GroupKeys = keys
	return q.restartLocked()
}

// SetMonitoring toggles live monitoring. Restarts if running.
func (q *Query) SetMonitoring(enabled bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.config.Monitoring = enabled
	return q.restartLocked()
}

// SetResultsHandler assigns the publish callback. Takes effect on the next
// publish; does not restart.
func (q *Query) SetResultsHandler(handler ResultsHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Start begins the search. A no-op if the query is already running.
func (q *Query) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrStopped
	}
	if q.running {
		return nil
	}

	q.ctx = ctx
	return q.startLocked()
}

// Stop cancels the backend request and all background work, returning the
// query to idle without a final results callback.
func (q *Query) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopLocked()
}

// Close stops the query permanently.
func (q *Query) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	return q.stopLocked()
}

// Running reports whether a backend request is active.
func (q *Query) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Phase returns the reconciliation lifecycle phase.
func (q *Query) Phase() reconcile.Phase {
	return q.engine.Phase()
}

// Results returns the current snapshot, forcing a publish of any pending
// updates first. Safe to call from any goroutine.
func (q *Query) Results() reconcile.Snapshot {
	return q.engine.Results()
}

// HierarchyResults builds the path-tree projection of the current snapshot.
func (q *Query) HierarchyResults() *TreeNode {
	return BuildHierarchy(q.Results())
}

// GroupedResults builds the attribute-grouped projection of the current
// snapshot using the configured group keys.
func (q *Query) GroupedResults() []*Group {
	q.mu.Lock()
	keys := q.config.GroupKeys
	q.mu.Unlock()

	return BuildGrouped(q.Results(), keys)
}

// restartLocked re-issues the backend request when the query is running.
// Reconfiguring an idle query just stores the new configuration.
func (q *Query) restartLocked() error {
	if !q.running {
		return nil
	}
	if err := q.stopLocked(); err != nil {
		return err
	}
	return q.startLocked()
}

func (q *Query) startLocked() error {
	if q.running {
		// A concurrent Start won the stop window during a restart; the
		// active request already reflects the current configuration.
		return nil
	}
	if q.backendImpl == nil {
		return ErrNoBackend
	}
	if len(q.config.Scopes) == 0 {
		return ErrNoScopes
	}

	req := backend.Request{
		Expression: q.expr,
		Query:      q.compiled,
		Scopes:     append([]string{}, q.config.Scopes...),
		SortKeys:   append([]attribute.SortKey{}, q.config.SortKeys...),
		GroupKeys:  append([]attribute.GroupKey{}, q.config.GroupKeys...),
		FetchKeys:  q.fetchKeysLocked(),
		Batching:   q.config.Batching,
	}

	ctx := q.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	handle, err := q.backendImpl.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to submit query: %w", err)
	}

	q.handle = handle
	q.running = true
	q.generation++
	q.gatherDone = make(chan struct{})
	q.engine.OnGatheringStarted(handle, req.FetchKeys)

	go q.forward(handle, q.generation, q.config.Monitoring, q.gatherDone)

	q.logger.Info("query started",
		"scopes", len(req.Scopes),
		"query", req.Query,
		"monitoring", q.config.Monitoring)
	return nil
}

func (q *Query) stopLocked() error {
	if !q.running {
		return nil
	}
	q.running = false
	q.generation++

	handle := q.handle
	q.handle = nil

	// Release the lock around the backend stop: the forwarding goroutine
	// may be blocked inside an engine call that wants the handler.
	q.mu.Unlock()
	q.engine.Stop()
	var err error
	if handle != nil {
		err = handle.Stop()
	}
	q.mu.Lock()

	if err != nil {
		q.logger.Warn("failed to stop backend request", "error", err)
	}

	q.logger.Info("query stopped")
	return nil
}

// fetchKeysLocked computes the union of backend keys the query needs per
// item: requested attributes, predicate-referenced attributes, sort and
// group keys. The identity/path key is added by the engine.
func (q *Query) fetchKeysLocked() []string {
	seen := make(map[string]bool)
	var keys []string

	add := func(id attribute.ID) {
		for _, key := range attribute.Keys(id) {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}

	add(attribute.FileName)
	for _, id := range q.config.Attributes {
		add(id)
	}
	for _, id := range predicate.ReferencedAttributes(q.expr) {
		add(id)
	}
	for _, sk := range q.config.SortKeys {
		add(sk.Attribute)
	}
	for _, gk := range q.config.GroupKeys {
		add(gk.Attribute)
	}

	return keys
}

// forward drains one backend handle's notifications into the engine.
// A stale generation (after restart or stop) drops its notifications.
func (q *Query) forward(h backend.Handle, gen int, monitoring bool, done chan struct{}) {
	for n := range h.Notifications() {
		if !q.currentGeneration(gen) {
			return
		}

		switch n.Kind {
		case backend.GatheringStarted:
			// Engine state was reset when the request was issued.

		case backend.GatheringProgress, backend.ResultsUpdated:
			q.engine.OnBatch(n.Added, n.Removed, n.Changed)

		case backend.GatheringFinished:
			if monitoring {
				if err := h.EnableLiveUpdates(); err != nil {
					q.logger.Warn("failed to enable live updates", "error", err)
					monitoring = false
				}
			}
			q.engine.OnGatheringFinished(monitoring)
			select {
			case <-done:
				// A backend may emit a duplicate finish notification.
			default:
				close(done)
			}

			if !monitoring {
				q.finishGeneration(gen, h)
				return
			}
		}
	}
}

func (q *Query) currentGeneration(gen int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.generation == gen
}

// finishGeneration winds down a non-monitoring query after gathering.
func (q *Query) finishGeneration(gen int, h backend.Handle) {
	q.mu.Lock()
	if q.generation != gen {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.handle = nil
	q.mu.Unlock()

	if err := h.Stop(); err != nil {
		q.logger.Warn("failed to stop backend request", "error", err)
	}
}

// Search runs a one-shot, non-monitoring query to completion and returns
// the final snapshot. The caller owns nothing afterwards: the backend
// request is stopped before returning.
func Search(ctx context.Context, b backend.Backend, cfg Config, e predicate.Expression, log logger.Logger) (reconcile.Snapshot, error) {
	cfg.Monitoring = false

	q := New(b, cfg, log)
	defer func() { _ = q.Close() }()

	if err := q.SetPredicate(e); err != nil {
		return reconcile.Snapshot{}, err
	}
	if err := q.Start(ctx); err != nil {
		return reconcile.Snapshot{}, err
	}

	q.mu.Lock()
	done := q.gatherDone
	q.mu.Unlock()

	select {
	case <-done:
		return q.Results(), nil
	case <-ctx.Done():
		return reconcile.Snapshot{}, ctx.Err()
	}
}
