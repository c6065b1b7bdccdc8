package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/i474232898/rain-outlook/internal/weather"
)

var (
	// ErrNotFound is returned when no history is available for a given location.
	ErrNotFound = errors.New("no history for location")
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// Tables are immutable, so a reload only swaps the map under the lock and
// in-flight requests keep using the tables they already hold.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location name
	tables map[string]*weather.FeatureTable
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*weather.FeatureTable),
	}
}

// ReplaceTables publishes a new set of tables, dropping locations not in it.
func (s *MemoryStore) ReplaceTables(tables []*weather.FeatureTable) error {
	next := make(map[string]*weather.FeatureTable, len(tables))
	for _, t := range tables {
		next[t.Location()] = t
	}

	s.mu.Lock()
	s.tables = next
	s.mu.Unlock()
	return nil
}

// GetTable returns the table for a location.
func (s *MemoryStore) GetTable(location string) (*weather.FeatureTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[location]
	if !ok || t.Len() == 0 {
		return nil, ErrNotFound
	}
	return t, nil
}

// Locations returns a summary per location, sorted by name.
func (s *MemoryStore) Locations() ([]weather.LocationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.LocationSummary, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
