package reconcile

import (
	"sync"
	"time"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/logger"
)

// ValueSource is the engine's view of the backend request: authoritative
// membership and order, plus per-item value fetches.
type ValueSource interface {
	// CurrentIDs returns the backend-visible result identities in result
	// order. The backend is the source of truth for membership and order.
	CurrentIDs() []ItemID

	// Count returns the backend-reported result count. It may run ahead of
	// len(CurrentIDs()) while per-item materialization is outstanding.
	Count() int

	// FetchValues fetches current attribute values for one item.
	FetchValues(id ItemID, keys []string) (map[string]any, error)
}

// PublishHandler receives each published snapshot and its diff.
//
// The engine never holds its lock while invoking the handler, so the
// handler may call back into the engine (Results, Stop) safely.
type PublishHandler func(snapshot Snapshot, diff Diff)

// Config contains engine configuration.
type Config struct {
	// Policy is the batching policy. Zero-value fields take defaults.
	Policy BatchingPolicy

	// PublishDuringGathering enables intermediate publishes while the
	// initial sweep is still running.
	PublishDuringGathering bool

	// PrefetchWorkers caps concurrent background path prefetches.
	// Default: 16.
	PrefetchWorkers int

	// FinishRecheckDelay is the single deferred re-check delay used when
	// the backend count and the materialized count disagree at gathering
	// end. Default: 50ms.
	FinishRecheckDelay time.Duration
}

// Engine reconciles backend notification batches into a consistent,
// deduplicated, ordered snapshot.
//
// All entry points are safe for concurrent use; snapshot and pending state
// are guarded by a single mutex. Reconciliation itself never fails:
// inconsistent backend notifications are absorbed as no-ops.
type Engine struct {
	config  Config
	logger  logger.Logger
	handler PublishHandler

	mu        sync.Mutex
	phase     Phase
	source    ValueSource
	fetchKeys []string
	pathKeys  []string

	items    map[ItemID]*record
	order    []ItemID
	pend     *pending
	snapshot Snapshot

	published    bool
	lastPublish  time.Time
	publishTimer *time.Timer

	prefetch *prefetcher
}

// record is the engine-owned mutable form of an Item.
type record struct {
	values   map[string]any
	previous map[string]any
}

// NewEngine creates a reconciliation engine.
//
// Parameters:
//   - cfg: Engine configuration
//   - handler: Publish callback (may be nil)
//   - log: Logger instance
func NewEngine(cfg Config, handler PublishHandler, log logger.Logger) *Engine {
	if cfg.PrefetchWorkers == 0 {
		cfg.PrefetchWorkers = 16
	}
	if cfg.FinishRecheckDelay == 0 {
		cfg.FinishRecheckDelay = 50 * time.Millisecond
	}
	cfg.Policy = cfg.Policy.WithDefaults()

	return &Engine{
		config:   cfg,
		logger:   log,
		handler:  handler,
		phase:    PhaseIdle,
		items:    make(map[ItemID]*record),
		pend:     newPending(),
		pathKeys: attribute.Keys(attribute.FilePath),
	}
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// OnGatheringStarted clears all state and begins a new gathering phase.
//
// fetchKeys is the union of backend keys the query needs per item; the
// identity/path key is always included.
func (e *Engine) OnGatheringStarted(source ValueSource, fetchKeys []string) {
	e.mu.Lock()

	e.stopPrefetchLocked()
	e.items = make(map[ItemID]*record)
	e.order = nil
	e.pend.clear()
	e.snapshot = Snapshot{}
	e.published = false
	e.lastPublish = time.Time{}
	e.source = source
	e.fetchKeys = withPathKeys(fetchKeys, e.pathKeys)
	e.phase = PhaseGathering
	e.prefetch = newPrefetcher(e, e.config.PrefetchWorkers)
	keyCount := len(e.fetchKeys)

	e.mu.Unlock()

	e.logger.Debug("gathering started", "fetch_keys", keyCount)
}

func withPathKeys(keys, pathKeys []string) []string {
	out := make([]string, 0, len(keys)+len(pathKeys))
	seen := make(map[string]bool, len(keys)+len(pathKeys))
	for _, k := range append(append([]string{}, pathKeys...), keys...) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// OnBatch merges a notification batch into the pending accumulator and
// publishes when the batching policy's thresholds are met.
//
// During gathering, publishes happen only when the engine was configured
// with PublishDuringGathering; otherwise the batch just accumulates until
// OnGatheringFinished. During monitoring every batch is published, subject
// to the coalescing window.
func (e *Engine) OnBatch(added, removed, changed []ItemID) {
	e.mu.Lock()

	if e.phase == PhaseIdle {
		e.mu.Unlock()
		return
	}

	e.pend.merge(added, removed, changed)
	count := e.pend.size()
	phase := e.phase

	if count == 0 {
		e.mu.Unlock()
		return
	}

	if phase == PhaseGathering && !e.config.PublishDuringGathering {
		e.mu.Unlock()
		return
	}

	interval, threshold := e.thresholdsLocked(phase)

	switch {
	case count >= threshold:
		e.publishAndNotifyLocked()
	case e.published && time.Since(e.lastPublish) >= interval:
		e.publishAndNotifyLocked()
	default:
		// Before the first publish the interval is the initial delay,
		// counted from the first batch rather than from a prior publish.
		e.schedulePublishLocked(interval)
		e.mu.Unlock()
	}
}

// thresholdsLocked selects the active interval and count threshold: the
// initial thresholds apply until the first publish of this query.
func (e *Engine) thresholdsLocked(phase Phase) (time.Duration, int) {
	p := e.config.Policy
	if !e.published {
		return p.InitialDelay, p.InitialCountThreshold
	}
	if phase == PhaseMonitoring {
		return p.MonitoringInterval, p.MonitoringCountThreshold
	}
	return p.GatheringInterval, p.GatheringCountThreshold
}

// schedulePublishLocked arms a one-shot deferred publish if none is armed.
func (e *Engine) schedulePublishLocked(after time.Duration) {
	if e.publishTimer != nil {
		return
	}
	e.publishTimer = time.AfterFunc(after, func() {
		e.mu.Lock()
		e.publishTimer = nil
		if e.phase == PhaseIdle || e.pend.size() == 0 {
			e.mu.Unlock()
			return
		}
		e.publishAndNotifyLocked()
	})
}

// OnGatheringFinished concludes the initial sweep.
//
// If updates are pending they publish immediately. If the backend count has
// run ahead of the materialized snapshot, a single deferred re-check is
// scheduled before the finish publish. Transitions to Monitoring when
// monitoring was requested, Idle otherwise.
func (e *Engine) OnGatheringFinished(monitoring bool) {
	e.mu.Lock()

	if e.phase != PhaseGathering {
		e.mu.Unlock()
		return
	}

	next := PhaseIdle
	if monitoring {
		next = PhaseMonitoring
	}
	e.phase = next

	if e.pend.size() > 0 {
		e.publishAndNotifyLocked()
		return
	}

	if e.source != nil && e.source.Count() != len(e.order) {
		// Per-item materialization is still outstanding. One deferred
		// attempt, not a retry loop.
		delay := e.config.FinishRecheckDelay
		e.mu.Unlock()
		e.logger.Debug("gathering finished with outstanding items", "recheck_in", delay)
		time.AfterFunc(delay, func() { e.Publish() })
		return
	}

	e.publishAndNotifyLocked()
}

// Publish forces a publish of the current backend-visible result set.
func (e *Engine) Publish() {
	e.mu.Lock()
	if e.source == nil {
		e.mu.Unlock()
		return
	}
	e.publishAndNotifyLocked()
}

// Results forces a publish if updates are pending and returns the current
// snapshot. Safe to call from any goroutine, including the publish handler.
func (e *Engine) Results() Snapshot {
	e.mu.Lock()

	if e.source != nil && e.phase != PhaseIdle && e.pend.size() > 0 {
		e.publishAndNotifyLocked()
		e.mu.Lock()
	}

	snap := e.snapshot
	e.mu.Unlock()
	return snap
}

// Stop cancels background prefetches, disarms deferred publishes and
// returns to Idle without emitting a final callback. The last published
// snapshot is retained for synchronous reads until the next gathering.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopPrefetchLocked()
	if e.publishTimer != nil {
		e.publishTimer.Stop()
		e.publishTimer = nil
	}
	e.phase = PhaseIdle
	e.source = nil
	e.mu.Unlock()
}

func (e *Engine) stopPrefetchLocked() {
	if e.prefetch != nil {
		e.prefetch.cancel()
		e.prefetch = nil
	}
}

// publishAndNotifyLocked materializes and publishes the snapshot, then
// invokes the handler with the lock released. The lock is NOT held on
// return.
func (e *Engine) publishAndNotifyLocked() {
	snap, diff, prefetchIDs := e.materializeLocked()
	handler := e.handler
	pf := e.prefetch
	e.mu.Unlock()

	if len(prefetchIDs) > 0 && pf != nil {
		pf.schedule(prefetchIDs)
	}

	if handler != nil {
		handler(snap, diff)
	}
}

// materializeLocked is the single authoritative place where backend-held
// values are copied into the engine's item records.
func (e *Engine) materializeLocked() (Snapshot, Diff, []ItemID) {
	if e.publishTimer != nil {
		e.publishTimer.Stop()
		e.publishTimer = nil
	}

	var order []ItemID
	if e.source != nil {
		order = dedupe(e.source.CurrentIDs())
	}

	var diff Diff
	newItems := make(map[ItemID]*record, len(order))
	var needPath []ItemID

	for _, id := range order {
		rec, existed := e.items[id]

		switch {
		case !existed:
			// Initial fetch: no previous snapshot to diff against.
			rec = &record{values: e.fetchLocked(id)}
			diff.Added = append(diff.Added, id)
		case e.pend.has(e.pend.changed, id):
			// Update fetch: save previous values so downstream code
			// can detect per-attribute deltas.
			rec.previous = rec.values
			rec.values = e.fetchLocked(id)
			diff.Changed = append(diff.Changed, id)
		case e.pend.has(e.pend.added, id):
			// Re-reported as added while already materialized:
			// refresh as an initial fetch.
			rec.previous = nil
			rec.values = e.fetchLocked(id)
		}

		if _, hasPath := pathValue(rec.values, e.pathKeys); !hasPath {
			needPath = append(needPath, id)
		}
		newItems[id] = rec
	}

	for id := range e.items {
		if _, still := newItems[id]; !still {
			diff.Removed = append(diff.Removed, id)
		}
	}

	e.items = newItems
	e.order = order
	e.pend.clear()
	e.published = true
	e.lastPublish = time.Now()
	e.snapshot = e.buildSnapshotLocked()

	e.logger.Debug("published snapshot",
		"items", len(order),
		"added", len(diff.Added),
		"removed", len(diff.Removed),
		"changed", len(diff.Changed))

	return e.snapshot, diff, needPath
}

func (e *Engine) fetchLocked(id ItemID) map[string]any {
	values, err := e.source.FetchValues(id, e.fetchKeys)
	if err != nil {
		// Value fetch failures are absorbed: the item stays in the
		// snapshot with whatever values it has.
		e.logger.Warn("value fetch failed", "item", string(id), "error", err)
		return map[string]any{}
	}
	if values == nil {
		values = map[string]any{}
	}
	return values
}

func (e *Engine) buildSnapshotLocked() Snapshot {
	items := make([]Item, 0, len(e.order))
	for _, id := range e.order {
		rec := e.items[id]
		items = append(items, Item{
			id:       id,
			values:   copyValues(rec.values),
			previous: copyValues(rec.previous),
		})
	}
	return Snapshot{items: items}
}

// mergePrefetched folds a completed background path fetch into the item
// record. Results for evicted items or stale generations are discarded.
func (e *Engine) mergePrefetched(gen *prefetcher, id ItemID, values map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.prefetch != gen {
		// A restart evicted the generation this fetch belongs to.
		return
	}
	rec, ok := e.items[id]
	if !ok {
		return
	}
	for k, v := range values {
		if _, exists := rec.values[k]; !exists {
			rec.values[k] = v
		}
	}
}

func (p *pending) has(set map[ItemID]struct{}, id ItemID) bool {
	_, ok := set[id]
	return ok
}

func pathValue(values map[string]any, pathKeys []string) (string, bool) {
	for _, key := range pathKeys {
		if v, ok := values[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func copyValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func dedupe(ids []ItemID) []ItemID {
	seen := make(map[ItemID]struct{}, len(ids))
	out := make([]ItemID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
