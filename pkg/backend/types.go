// Package backend defines the contract with the search backend collaborator.
//
// The backend is the external service that actually performs file search
// and attribute retrieval. It accepts a compiled predicate plus scope and
// fetch-key lists, and asynchronously emits phased notifications carrying
// added/removed/changed item references. The fsbackend subpackage provides
// a reference implementation over the local file system.
package backend

import (
	"context"

	"github.com/hxhall/mdq/pkg/attribute"
	"github.com/hxhall/mdq/pkg/predicate"
	"github.com/hxhall/mdq/pkg/reconcile"
)

// NotificationKind identifies a backend notification.
type NotificationKind int

// Notification kinds.
const (
	// GatheringStarted signals the start of the initial sweep.
	GatheringStarted NotificationKind = iota

	// GatheringProgress carries a batch discovered during the sweep.
	GatheringProgress

	// GatheringFinished signals the sweep is complete.
	GatheringFinished

	// ResultsUpdated carries a live-update batch (monitoring phase).
	ResultsUpdated
)

// String returns the notification kind name.
func (k NotificationKind) String() string {
	switch k {
	case GatheringStarted:
		return "gatheringStarted"
	case GatheringProgress:
		return "gatheringProgress"
	case GatheringFinished:
		return "gatheringFinished"
	case ResultsUpdated:
		return "resultsUpdated"
	default:
		return "unknown"
	}
}

// Notification is one backend event for an active request.
type Notification struct {
	// Kind is the notification kind.
	Kind NotificationKind

	// Added, Removed and Changed reference items by identity. Populated
	// for GatheringProgress and ResultsUpdated.
	Added   []reconcile.ItemID
	Removed []reconcile.ItemID
	Changed []reconcile.ItemID
}

// Request describes one search submission.
type Request struct {
	// Expression is the predicate tree. A nil expression matches every
	// indexed item.
	Expression predicate.Expression

	// Query is the compiled backend query string for Expression.
	Query string

	// Scopes are the search locations (directories).
	Scopes []string

	// SortKeys order the result set; empty means backend-native order.
	SortKeys []attribute.SortKey

	// GroupKeys are forwarded for backends that group natively.
	GroupKeys []attribute.GroupKey

	// FetchKeys are the backend keys to retrieve per item.
	FetchKeys []string

	// Batching tunes the backend's notification cadence. Advisory.
	Batching reconcile.BatchingPolicy
}

// Handle is an active search request.
//
// Notification delivery is sequential per handle: a consumer observing
// the channel sees events in backend order.
type Handle interface {
	// Notifications returns the notification stream for this request.
	// The channel is closed when the request stops.
	Notifications() <-chan Notification

	// CurrentIDs returns the current result identities in result order.
	CurrentIDs() []reconcile.ItemID

	// Count returns the backend-reported result count.
	Count() int

	// FetchValues retrieves attribute values for one item by identity.
	FetchValues(id reconcile.ItemID, keys []string) (map[string]any, error)

	// EnableLiveUpdates turns on monitoring-phase notifications.
	EnableLiveUpdates() error

	// DisableLiveUpdates turns off monitoring-phase notifications.
	DisableLiveUpdates() error

	// Stop cancels the request and closes the notification stream.
	Stop() error
}

// Backend submits search requests.
type Backend interface {
	// Submit compiles and starts a search. Notifications begin flowing
	// once the returned handle is being consumed.
	Submit(ctx context.Context, req Request) (Handle, error)
}
