// Package fsbackend implements the search backend contract over the local
// file system.
//
// It walks the request's scope directories, evaluates the predicate tree
// against each file's metadata, and emits the phased notification stream
// the reconciliation engine consumes. With live updates enabled it watches
// the scopes with fsnotify and converts debounced file events into
// added/changed/removed batches, coalesced per the request's batching
// policy.
//
// Example usage:
//
//	b := fsbackend.New(fsbackend.Config{}, logger.Default())
//	handle, err := b.Submit(ctx, backend.Request{
//	    Expression: predicate.Attr(attribute.FileExtension).Equals("png"),
//	    Scopes:     []string{"/tmp/photos"},
//	})
package fsbackend

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/backend"
	"github.com/hxhall/mdq/pkg/backend/valuestore"
	"github.com/hxhall/mdq/pkg/logger"
	"github.com/hxhall/mdq/pkg/predicate"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// Config contains filesystem backend configuration.
type Config struct {
	// DebounceInterval coalesces rapid file events for the same path.
	// Default: 100ms.
	DebounceInterval time.Duration

	// Store persists observed attribute values per path. Default: an
	// in-memory store.
	Store valuestore.Store

	// SkipHidden skips dot-directories during the sweep. Default true
	// via NewConfig; the zero value of Config does not skip.
	SkipHidden bool
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		DebounceInterval: 100 * time.Millisecond,
		SkipHidden:       true,
	}
}

// FSBackend is a file system implementation of backend.Backend.
type FSBackend struct {
	config Config
	logger logger.Logger
}

// New creates a filesystem backend.
//
// Parameters:
//   - cfg: Backend configuration
//   - log: Logger instance
func New(cfg Config, log logger.Logger) *FSBackend {
	if cfg.DebounceInterval == 0 {
		cfg.DebounceInterval = 100 * time.Millisecond
	}
	if cfg.Store == nil {
		cfg.Store = valuestore.NewMemoryStore()
	}

	return &FSBackend{
		config: cfg,
		logger: log,
	}
}

// Submit implements backend.Backend.Submit.
//
// The gathering sweep runs on its own goroutine; notifications flow on the
// returned handle immediately.
func (b *FSBackend) Submit(ctx context.Context, req backend.Request) (backend.Handle, error) {
	if err := predicate.Validate(req.Expression); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPredicate, err)
	}
	if len(req.Scopes) == 0 {
		return nil, ErrNoScopes
	}

	scopes := make([]string, 0, len(req.Scopes))
	for _, scope := range req.Scopes {
		abs, err := filepath.Abs(scope)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			b.logger.Warn("skipping invalid scope", "scope", scope)
			continue
		}
		scopes = append(scopes, abs)
	}
	if len(scopes) == 0 {
		return nil, ErrInvalidScope
	}

	req.Batching = req.Batching.WithDefaults()

	h := &handle{
		backend:        b,
		req:            req,
		scopes:         scopes,
		logger:         b.logger,
		store:          b.config.Store,
		notifications:  make(chan backend.Notification, 64),
		items:          make(map[reconcile.ItemID]map[string]any),
		stopChan:       make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
	}

	go h.gather(ctx)

	return h, nil
}

// handle is an active filesystem search request.
type handle struct {
	backend *FSBackend
	req     backend.Request
	scopes  []string
	logger  logger.Logger
	store   valuestore.Store

	notifications chan backend.Notification

	mu      sync.RWMutex
	items   map[reconcile.ItemID]map[string]any
	order   []reconcile.ItemID
	live    bool
	stopped bool

	// Live update state.
	fsw            *fsnotify.Watcher
	stopChan       chan struct{}
	stopOnce       sync.Once
	sendMu         sync.RWMutex
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	// Pending live batch, coalesced per the monitoring interval.
	pendingMu      sync.Mutex
	pendingAdded   []reconcile.ItemID
	pendingRemoved []reconcile.ItemID
	pendingChanged []reconcile.ItemID
	flushTimer     *time.Timer
}

// Notifications implements backend.Handle.Notifications.
func (h *handle) Notifications() <-chan backend.Notification {
	return h.notifications
}

// CurrentIDs implements backend.Handle.CurrentIDs.
func (h *handle) CurrentIDs() []reconcile.ItemID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]reconcile.ItemID, len(h.order))
	copy(out, h.order)
	return out
}

// Count implements backend.Handle.Count.
func (h *handle) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// FetchValues implements backend.Handle.FetchValues.
//
// Unknown identities fall back to the persistent store before failing,
// so values survive across request generations.
func (h *handle) FetchValues(id reconcile.ItemID, keys []string) (map[string]any, error) {
	h.mu.RLock()
	values, ok := h.items[id]
	h.mu.RUnlock()

	if ok {
		return filterKeys(values, keys), nil
	}

	stored, err := h.store.Get(string(id))
	if err == nil && stored != nil {
		return filterKeys(stored, keys), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownItem, id)
}

// EnableLiveUpdates implements backend.Handle.EnableLiveUpdates.
func (h *handle) EnableLiveUpdates() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return ErrStopped
	}
	if h.live {
		h.mu.Unlock()
		return nil
	}
	h.live = true
	h.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	h.mu.Lock()
	h.fsw = fsw
	h.mu.Unlock()

	for _, scope := range h.scopes {
		if addErr := h.watchRecursive(scope); addErr != nil {
			h.logger.Warn("failed to watch scope", "scope", scope, "error", addErr)
		}
	}

	go h.processEvents()

	h.logger.Debug("live updates enabled", "scopes", len(h.scopes))
	return nil
}

// DisableLiveUpdates implements backend.Handle.DisableLiveUpdates.
func (h *handle) DisableLiveUpdates() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return ErrStopped
	}
	if !h.live {
		return nil
	}
	h.live = false

	if h.fsw != nil {
		if err := h.fsw.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
		h.fsw = nil
	}
	return nil
}

// Stop implements backend.Handle.Stop.
func (h *handle) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	h.live = false
	fsw := h.fsw
	h.fsw = nil
	h.mu.Unlock()

	h.stopOnce.Do(func() { close(h.stopChan) })

	if fsw != nil {
		if err := fsw.Close(); err != nil {
			h.logger.Warn("failed to close fsnotify watcher", "error", err)
		}
	}

	h.debounceMu.Lock()
	for _, timer := range h.debounceTimers {
		timer.Stop()
	}
	h.debounceTimers = nil
	h.debounceMu.Unlock()

	h.pendingMu.Lock()
	if h.flushTimer != nil {
		h.flushTimer.Stop()
		h.flushTimer = nil
	}
	h.pendingMu.Unlock()

	// In-flight sends observe the closed stop channel and back off
	// before the notification channel closes.
	h.sendMu.Lock()
	close(h.notifications)
	h.sendMu.Unlock()
	return nil
}

// gather performs the initial sweep of all scopes.
func (h *handle) gather(ctx context.Context) {
	h.send(backend.Notification{Kind: backend.GatheringStarted})

	var batch []reconcile.ItemID
	lastFlush := time.Now()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		h.send(backend.Notification{Kind: backend.GatheringProgress, Added: batch})
		batch = nil
		lastFlush = time.Now()
	}

	for _, scope := range h.scopes {
		walkErr := filepath.WalkDir(scope, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Unreadable entries are skipped, not fatal.
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-h.stopChan:
				return filepath.SkipAll
			default:
			}

			if d.IsDir() {
				if h.backend.config.SkipHidden && path != scope && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			info, statErr := d.Info()
			if statErr != nil {
				return nil
			}

			values := extractValues(path, info)
			if !h.matches(values) {
				return nil
			}

			id := reconcile.ItemID(path)
			h.mu.Lock()
			if _, dup := h.items[id]; !dup {
				h.items[id] = values
				h.order = append(h.order, id)
				batch = append(batch, id)
			}
			h.mu.Unlock()

			if storeErr := h.store.Put(path, values); storeErr != nil {
				h.logger.Debug("value store put failed", "path", path, "error", storeErr)
			}

			if len(batch) >= h.req.Batching.GatheringCountThreshold ||
				time.Since(lastFlush) >= h.req.Batching.GatheringInterval {
				flush()
			}
			return nil
		})
		if walkErr != nil {
			h.logger.Warn("scope walk interrupted", "scope", scope, "error", walkErr)
		}
	}

	h.sortItems()
	flush()
	h.send(backend.Notification{Kind: backend.GatheringFinished})

	h.logger.Debug("gathering complete", "matched", h.Count())
}

// matches evaluates the request predicate against one value map.
func (h *handle) matches(values map[string]any) bool {
	return predicate.Evaluate(h.req.Expression, func(id attribute.ID) (any, bool) {
		for _, key := range attribute.Keys(id) {
			if v, ok := values[key]; ok {
				return v, true
			}
		}
		return nil, false
	})
}

// sortItems orders the result set by the request's sort keys, tie-breaking
// on identity so order is stable between publishes.
func (h *handle) sortItems() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.req.SortKeys) == 0 {
		sort.Slice(h.order, func(i, j int) bool { return h.order[i] < h.order[j] })
		return
	}

	sort.SliceStable(h.order, func(i, j int) bool {
		a := h.items[h.order[i]]
		b := h.items[h.order[j]]
		for _, key := range h.req.SortKeys {
			cmp := compareByAttr(a, b, key.Attribute)
			if cmp == 0 {
				continue
			}
			if key.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return h.order[i] < h.order[j]
	})
}

func compareByAttr(a, b map[string]any, attr attribute.ID) int {
	keys := attribute.Keys(attr)
	av, aok := firstValue(a, keys)
	bv, bok := firstValue(b, keys)

	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1 // Missing values sort first.
	case !bok:
		return 1
	}
	return compareValues(av, bv)
}

func firstValue(values map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			default:
				return 0
			}
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case bv:
				return -1
			default:
				return 1
			}
		}
	default:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// watchRecursive adds a directory and its subdirectories to the watcher.
func (h *handle) watchRecursive(root string) error {
	h.mu.RLock()
	fsw := h.fsw
	h.mu.RUnlock()
	if fsw == nil {
		return ErrStopped
	}

	if err := fsw.Add(root); err != nil {
		return fmt.Errorf("failed to add watch path: %w", err)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if h.backend.config.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := fsw.Add(path); addErr != nil {
			h.logger.Debug("failed to watch subdirectory", "path", path, "error", addErr)
		}
		return nil
	})
}

// processEvents drains fsnotify events until the handle stops.
func (h *handle) processEvents() {
	h.mu.RLock()
	fsw := h.fsw
	h.mu.RUnlock()
	if fsw == nil {
		return
	}

	for {
		select {
		case <-h.stopChan:
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			h.handleEvent(event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			h.logger.Warn("fsnotify error", "error", err)
		}
	}
}

// handleEvent debounces one fsnotify event per path.
func (h *handle) handleEvent(event fsnotify.Event) {
	// New directories need watches before their contents produce events.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := h.watchRecursive(event.Name); err != nil {
				h.logger.Debug("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	h.debounceMu.Lock()
	defer h.debounceMu.Unlock()

	if h.debounceTimers == nil {
		return
	}
	if timer, exists := h.debounceTimers[event.Name]; exists {
		timer.Stop()
	}

	path := event.Name
	removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0

	h.debounceTimers[path] = time.AfterFunc(h.backend.config.DebounceInterval, func() {
		h.debounceMu.Lock()
		delete(h.debounceTimers, path)
		h.debounceMu.Unlock()

		h.reevaluate(path, removed)
	})
}

// reevaluate re-stats a path and folds the outcome into the pending live
// batch: a file can enter, leave or change within the result set.
func (h *handle) reevaluate(path string, removedHint bool) {
	id := reconcile.ItemID(path)

	info, err := os.Stat(path)
	gone := removedHint || err != nil || info.IsDir()

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	_, present := h.items[id]

	if gone {
		h.mu.Unlock()
		if present {
			h.evict(id)
			h.queueLive(nil, []reconcile.ItemID{id}, nil)
		}
		return
	}

	values := extractValues(path, info)
	h.mu.Unlock()

	matched := h.matches(values)

	switch {
	case matched && !present:
		h.insert(id, values)
		h.queueLive([]reconcile.ItemID{id}, nil, nil)
	case matched && present:
		h.update(id, values)
		h.queueLive(nil, nil, []reconcile.ItemID{id})
	case !matched && present:
		h.evict(id)
		h.queueLive(nil, []reconcile.ItemID{id}, nil)
	}

	if matched {
		if storeErr := h.store.Put(path, values); storeErr != nil {
			h.logger.Debug("value store put failed", "path", path, "error", storeErr)
		}
	} else if present {
		if delErr := h.store.Delete(path); delErr != nil {
			h.logger.Debug("value store delete failed", "path", path, "error", delErr)
		}
	}
}

func (h *handle) insert(id reconcile.ItemID, values map[string]any) {
	h.mu.Lock()
	h.items[id] = values
	h.order = append(h.order, id)
	h.mu.Unlock()
	h.sortItems()
}

func (h *handle) update(id reconcile.ItemID, values map[string]any) {
	h.mu.Lock()
	h.items[id] = values
	h.mu.Unlock()
	h.sortItems()
}

func (h *handle) evict(id reconcile.ItemID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.items, id)
	for i, existing := range h.order {
		if existing == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// queueLive coalesces live changes and flushes them per the monitoring
// thresholds.
func (h *handle) queueLive(added, removed, changed []reconcile.ItemID) {
	h.pendingMu.Lock()

	h.pendingAdded = append(h.pendingAdded, added...)
	h.pendingRemoved = append(h.pendingRemoved, removed...)
	h.pendingChanged = append(h.pendingChanged, changed...)
	count := len(h.pendingAdded) + len(h.pendingRemoved) + len(h.pendingChanged)

	if count >= h.req.Batching.MonitoringCountThreshold {
		h.pendingMu.Unlock()
		h.flushLive()
		return
	}

	if h.flushTimer == nil {
		h.flushTimer = time.AfterFunc(h.req.Batching.MonitoringInterval, h.flushLive)
	}
	h.pendingMu.Unlock()
}

func (h *handle) flushLive() {
	h.pendingMu.Lock()
	if h.flushTimer != nil {
		h.flushTimer.Stop()
		h.flushTimer = nil
	}
	added := h.pendingAdded
	removed := h.pendingRemoved
	changed := h.pendingChanged
	h.pendingAdded = nil
	h.pendingRemoved = nil
	h.pendingChanged = nil
	h.pendingMu.Unlock()

	if len(added)+len(removed)+len(changed) == 0 {
		return
	}

	h.send(backend.Notification{
		Kind:    backend.ResultsUpdated,
		Added:   added,
		Removed: removed,
		Changed: changed,
	})
}

// send delivers a notification unless the handle has stopped.
func (h *handle) send(n backend.Notification) {
	h.sendMu.RLock()
	defer h.sendMu.RUnlock()

	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.notifications <- n:
	case <-h.stopChan:
	}
}
