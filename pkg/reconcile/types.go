// Package reconcile maintains the authoritative snapshot of query results.
//
// The engine consumes added/removed/changed notification batches from the
// search backend, coalesces them under a configurable batching policy, and
// publishes deduplicated ordered snapshots together with a diff describing
// what changed since the previous publish.
//
// Example usage:
//
//	eng := reconcile.NewEngine(reconcile.Config{}, onPublish, logger.Default())
//	eng.OnGatheringStarted(source, fetchKeys)
//	eng.OnBatch(added, removed, changed)
//	eng.OnGatheringFinished(true)
//	snapshot := eng.Results()
package reconcile

import (
	"time"

	"github.com/hxhall/mdq/pkg/attribute"
)

// ItemID is the stable, backend-assigned identity of a result item.
type ItemID string

// Phase is the lifecycle phase of the reconciliation engine.
type Phase int

// Lifecycle phases.
const (
	// PhaseIdle means no query is active.
	PhaseIdle Phase = iota

	// PhaseGathering means the initial backend sweep is in progress.
	PhaseGathering

	// PhaseMonitoring means live updates only.
	PhaseMonitoring
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseGathering:
		return "gathering"
	case PhaseMonitoring:
		return "monitoring"
	default:
		return "unknown"
	}
}

// Item is one result record: a stable identity plus the attribute values
// fetched for it, keyed by backend key.
//
// Items handed to callers are copies; the engine exclusively owns the
// authoritative records.
type Item struct {
	id       ItemID
	values   map[string]any
	previous map[string]any
}

// NewItem constructs an item from fetched values, for callers that
// materialize items outside the engine (projections, rendering).
func NewItem(id ItemID, values map[string]any) Item {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Item{id: id, values: copied}
}

// NewSnapshot builds a snapshot over the given items, in order.
func NewSnapshot(items ...Item) Snapshot {
	out := make([]Item, len(items))
	copy(out, items)
	return Snapshot{items: out}
}

// ID returns the item's stable identity.
func (it Item) ID() ItemID {
	return it.id
}

// Value returns the fetched value for a backend key.
func (it Item) Value(key string) (any, bool) {
	v, ok := it.values[key]
	return v, ok
}

// Attribute returns the fetched value for a logical attribute, trying each
// of its backend keys in catalog order.
func (it Item) Attribute(id attribute.ID) (any, bool) {
	for _, key := range attribute.Keys(id) {
		if v, ok := it.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Path returns the item's path value, or an empty string if the path has
// not been fetched yet (path resolution is best-effort background work).
func (it Item) Path() string {
	if v, ok := it.Attribute(attribute.FilePath); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// PreviousValue returns the value a backend key held before the most recent
// update fetch. Absent for items on their initial fetch.
func (it Item) PreviousValue(key string) (any, bool) {
	if it.previous == nil {
		return nil, false
	}
	v, ok := it.previous[key]
	return v, ok
}

// ChangedAttributes returns the backend keys whose value differs from the
// previous snapshot of this item. Best-effort: returns nil for items that
// have no previous snapshot.
func (it Item) ChangedAttributes() []string {
	if it.previous == nil {
		return nil
	}

	var changed []string
	for key, val := range it.values {
		prev, had := it.previous[key]
		if !had || !valueEqual(prev, val) {
			changed = append(changed, key)
		}
	}
	for key := range it.previous {
		if _, still := it.values[key]; !still {
			changed = append(changed, key)
		}
	}
	return changed
}

func valueEqual(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if la, ok := a.([]string); ok {
		lb, ok := b.([]string)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if la[i] != lb[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

// Snapshot is an ordered, deduplicated collection of result items at a
// point in time. Snapshots are immutable copies.
type Snapshot struct {
	items []Item
}

// Len returns the number of items.
func (s Snapshot) Len() int {
	return len(s.items)
}

// Items returns the items in backend result order.
func (s Snapshot) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// At returns the item at position i.
func (s Snapshot) At(i int) Item {
	return s.items[i]
}

// IDs returns the item identities in order.
func (s Snapshot) IDs() []ItemID {
	ids := make([]ItemID, len(s.items))
	for i, it := range s.items {
		ids[i] = it.id
	}
	return ids
}

// Diff describes what changed between two published snapshots.
type Diff struct {
	// Added lists identities present now but not at the last publish.
	Added []ItemID

	// Removed lists identities present at the last publish but gone now.
	Removed []ItemID

	// Changed lists identities present in both whose values were updated.
	Changed []ItemID
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// BatchingPolicy holds the per-phase publish coalescing thresholds.
//
// The policy is advisory: a publish may occur later than the configured
// interval, and is triggered early when the pending count reaches the
// phase's count threshold.
type BatchingPolicy struct {
	// InitialDelay applies before the first publish of a query.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// InitialCountThreshold forces the first publish early.
	InitialCountThreshold int `yaml:"initial_count_threshold"`

	// GatheringInterval is the coalescing window during gathering.
	GatheringInterval time.Duration `yaml:"gathering_interval"`

	// GatheringCountThreshold forces a gathering publish early.
	GatheringCountThreshold int `yaml:"gathering_count_threshold"`

	// MonitoringInterval is the coalescing window during monitoring.
	MonitoringInterval time.Duration `yaml:"monitoring_interval"`

	// MonitoringCountThreshold forces a monitoring publish early.
	MonitoringCountThreshold int `yaml:"monitoring_count_threshold"`
}

// DefaultBatchingPolicy returns the default thresholds.
func DefaultBatchingPolicy() BatchingPolicy {
	return BatchingPolicy{
		InitialDelay:             100 * time.Millisecond,
		InitialCountThreshold:    500,
		GatheringInterval:        500 * time.Millisecond,
		GatheringCountThreshold:  1000,
		MonitoringInterval:       250 * time.Millisecond,
		MonitoringCountThreshold: 100,
	}
}

// WithDefaults fills each zero-value field from DefaultBatchingPolicy, so a
// partially specified policy keeps the fields it sets.
func (p BatchingPolicy) WithDefaults() BatchingPolicy {
	def := DefaultBatchingPolicy()
	if p.InitialDelay == 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.InitialCountThreshold == 0 {
		p.InitialCountThreshold = def.InitialCountThreshold
	}
	if p.GatheringInterval == 0 {
		p.GatheringInterval = def.GatheringInterval
	}
	if p.GatheringCountThreshold == 0 {
		p.GatheringCountThreshold = def.GatheringCountThreshold
	}
	if p.MonitoringInterval == 0 {
		p.MonitoringInterval = def.MonitoringInterval
	}
	if p.MonitoringCountThreshold == 0 {
		p.MonitoringCountThreshold = def.MonitoringCountThreshold
	}
	return p
}

// pending accumulates notification batches between publishes.
//
// Collapse invariants: an id added then removed within the window nets to
// absent; an id added then changed stays added (initial fetch, not a delta).
type pending struct {
	added   map[ItemID]struct{}
	removed map[ItemID]struct{}
	changed map[ItemID]struct{}
}

func newPending() *pending {
	return &pending{
		added:   make(map[ItemID]struct{}),
		removed: make(map[ItemID]struct{}),
		changed: make(map[ItemID]struct{}),
	}
}

func (p *pending) merge(added, removed, changed []ItemID) {
	for _, id := range added {
		if _, wasRemoved := p.removed[id]; wasRemoved {
			// Removed then re-added: the item existed at the last
			// publish, so the net effect is an update.
			delete(p.removed, id)
			p.changed[id] = struct{}{}
			continue
		}
		p.added[id] = struct{}{}
	}

	for _, id := range removed {
		delete(p.changed, id)
		if _, wasAdded := p.added[id]; wasAdded {
			delete(p.added, id)
			continue
		}
		p.removed[id] = struct{}{}
	}

	for _, id := range changed {
		if _, isAdded := p.added[id]; isAdded {
			continue
		}
		p.changed[id] = struct{}{}
	}
}

func (p *pending) size() int {
	return len(p.added) + len(p.removed) + len(p.changed)
}

func (p *pending) clear() {
	p.added = make(map[ItemID]struct{})
	p.removed = make(map[ItemID]struct{})
	p.changed = make(map[ItemID]struct{})
}
