package metrics

import (
	"math"
	"sync"
	"time"

	"fleet-console/internal/model"
)

// Key addresses one sample. Device is empty for counters that are not per device.
type Key struct {
	Kind    model.EntityKind
	Entity  string // entity UUID
	Counter Counter
	Device  string
}

// Store answers the latest sample for a key, or NaN when none is available.
type Store interface {
	Value(key Key) float64
}

// Snapshot is an in-memory Store refreshed by the collector.
// It is safe for concurrent use.
type Snapshot struct {
	mu        sync.RWMutex
	values    map[Key]float64
	updatedAt time.Time
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{values: make(map[Key]float64)}
}

// Value implements Store.
func (s *Snapshot) Value(key Key) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return math.NaN()
	}
	return v
}

// Set records a sample. Storing NaN removes the key.
func (s *Snapshot) Set(key Key, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if math.IsNaN(value) {
		delete(s.values, key)
		return
	}
	s.values[key] = value
	s.updatedAt = time.Now()
}

// Replace swaps in a complete set of samples, dropping everything else.
func (s *Snapshot) Replace(values map[Key]float64) {
	next := make(map[Key]float64, len(values))
	for k, v := range values {
		if !math.IsNaN(v) {
			next[k] = v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = next
	s.updatedAt = time.Now()
}

// Len returns the number of stored samples.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// UpdatedAt returns the time of the last write.
func (s *Snapshot) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
