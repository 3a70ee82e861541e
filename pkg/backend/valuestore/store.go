// Package valuestore persists per-path attribute values for the filesystem
// backend.
//
// The store lets the backend detect attribute changes across runs and serve
// warm value fetches without re-statting files. Values are keyed by absolute
// path; each entry is the flat backend-key → value map last observed.
package valuestore

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketValues = []byte("path_values") // Path -> encoded value map

// Store persists attribute value maps keyed by file path.
type Store interface {
	// Get returns the last stored values for a path.
	//
	// Returns (nil, nil) when the path has no stored entry.
	Get(path string) (map[string]any, error)

	// Put stores the values for a path, replacing any previous entry.
	Put(path string, values map[string]any) error

	// Delete removes the entry for a path. Deleting a missing path is a
	// no-op.
	Delete(path string) error
}

// entry is the persisted form of a value map. Values are tagged with a
// type discriminator so dates and byte counts round-trip through JSON.
type entry map[string]typedValue

type typedValue struct {
	Type  string `json:"t"`
	Value any    `json:"v"`
}

// boltStore implements Store using BoltDB.
type boltStore struct {
	db *bolt.DB
	mu sync.RWMutex
}

// NewBoltStore creates a BoltDB-backed value store.
//
// Parameters:
//   - db: BoltDB database instance
//
// Returns:
//   - Configured Store
//   - Error if the bucket cannot be initialized
func NewBoltStore(db *bolt.DB) (Store, error) {
	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketValues)
		return createErr
	}); err != nil {
		return nil, fmt.Errorf("failed to create values bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Get implements Store.Get.
func (s *boltStore) Get(path string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var values map[string]any

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketValues).Get([]byte(path))
		if data == nil {
			return nil
		}

		var e entry
		if unmarshalErr := json.Unmarshal(data, &e); unmarshalErr != nil {
			return fmt.Errorf("failed to unmarshal values: %w", unmarshalErr)
		}
		values = decodeEntry(e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// Put implements Store.Put.
func (s *boltStore) Put(path string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(encodeEntry(values))
	if err != nil {
		return fmt.Errorf("failed to marshal values: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if putErr := tx.Bucket(bucketValues).Put([]byte(path), data); putErr != nil {
			return fmt.Errorf("failed to store values: %w", putErr)
		}
		return nil
	})
}

// Delete implements Store.Delete.
func (s *boltStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketValues).Delete([]byte(path))
	})
}

func encodeEntry(values map[string]any) entry {
	e := make(entry, len(values))
	for key, v := range values {
		switch val := v.(type) {
		case time.Time:
			e[key] = typedValue{Type: "date", Value: val.UTC().Format(time.RFC3339Nano)}
		case int64:
			e[key] = typedValue{Type: "int", Value: val}
		case []string:
			e[key] = typedValue{Type: "list", Value: val}
		case bool:
			e[key] = typedValue{Type: "bool", Value: val}
		case float64:
			e[key] = typedValue{Type: "float", Value: val}
		default:
			e[key] = typedValue{Type: "string", Value: fmt.Sprintf("%v", val)}
		}
	}
	return e
}

func decodeEntry(e entry) map[string]any {
	values := make(map[string]any, len(e))
	for key, tv := range e {
		switch tv.Type {
		case "date":
			if s, ok := tv.Value.(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					values[key] = t
				}
			}
		case "int":
			// JSON numbers decode as float64.
			if f, ok := tv.Value.(float64); ok {
				values[key] = int64(f)
			}
		case "list":
			if raw, ok := tv.Value.([]any); ok {
				list := make([]string, 0, len(raw))
				for _, elem := range raw {
					if s, ok := elem.(string); ok {
						list = append(list, s)
					}
				}
				values[key] = list
			}
		case "bool":
			if b, ok := tv.Value.(bool); ok {
				values[key] = b
			}
		case "float":
			if f, ok := tv.Value.(float64); ok {
				values[key] = f
			}
		default:
			if s, ok := tv.Value.(string); ok {
				values[key] = s
			}
		}
	}
	return values
}

// memoryStore implements Store using an in-memory map. Useful for testing
// and for backends that do not need persistence.
type memoryStore struct {
	entries map[string]map[string]any
	mu      sync.RWMutex
}

// NewMemoryStore creates an in-memory value store.
func NewMemoryStore() Store {
	return &memoryStore{
		entries: make(map[string]map[string]any),
	}
}

// Get implements Store.Get.
func (s *memoryStore) Get(path string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, exists := s.entries[path]
	if !exists {
		return nil, nil
	}

	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// Put implements Store.Put.
func (s *memoryStore) Put(path string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	s.entries[path] = copied
	return nil
}

// Delete implements Store.Delete.
func (s *memoryStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, path)
	return nil
}
