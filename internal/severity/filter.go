// Package severity provides the six-switch visibility filter applied to alert lists.
package severity

import (
	"sort"
	"sync"

	"fleet-console/internal/model"
)

// Filter holds one visibility flag per severity bucket. All buckets start visible.
// A Filter is safe for concurrent use; subscribers run after the lock is released.
type Filter struct {
	mu      sync.RWMutex
	visible map[model.Severity]bool

	subMu       sync.Mutex
	subscribers map[int]func()
	nextID      int
}

// NewFilter creates a filter with every bucket visible.
func NewFilter() *Filter {
	f := &Filter{
		visible:     make(map[model.Severity]bool, len(model.AllSeverities)),
		subscribers: make(map[int]func()),
	}
	for _, s := range model.AllSeverities {
		f.visible[s] = true
	}
	return f
}

// NewFilterHiding creates a filter with the given buckets hidden. Invalid
// severities are ignored.
func NewFilterHiding(hidden ...model.Severity) *Filter {
	f := NewFilter()
	for _, s := range hidden {
		if s.IsValid() {
			f.visible[s] = false
		}
	}
	return f
}

// IsFilterActive returns true if at least one bucket is hidden.
func (f *Filter) IsFilterActive() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, v := range f.visible {
		if !v {
			return true
		}
	}
	return false
}

// ShouldHide returns true unless the bucket of sev is visible. Buckets are
// independent; values outside the six buckets are always hidden.
func (f *Filter) ShouldHide(sev model.Severity) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.visible[sev]
	return !ok || !v
}

// Visible returns the flag of one bucket.
func (f *Filter) Visible(sev model.Severity) bool {
	return !f.ShouldHide(sev)
}

// HiddenLevels returns the hidden buckets in menu order.
func (f *Filter) HiddenLevels() []model.Severity {
	f.mu.RLock()
	defer f.mu.RUnlock()

	hidden := make([]model.Severity, 0)
	for _, s := range model.AllSeverities {
		if !f.visible[s] {
			hidden = append(hidden, s)
		}
	}
	return hidden
}

// Toggle flips the flag of one bucket and notifies subscribers.
// Invalid severities are ignored.
func (f *Filter) Toggle(sev model.Severity) {
	if !sev.IsValid() {
		return
	}
	f.mu.Lock()
	f.visible[sev] = !f.visible[sev]
	f.mu.Unlock()

	f.notify()
}

// SetVisible sets the flag of one bucket. Subscribers are notified only if the flag changed.
func (f *Filter) SetVisible(sev model.Severity, visible bool) {
	if !sev.IsValid() {
		return
	}
	f.mu.Lock()
	changed := f.visible[sev] != visible
	f.visible[sev] = visible
	f.mu.Unlock()

	if changed {
		f.notify()
	}
}

// Reset makes every bucket visible again.
func (f *Filter) Reset() {
	f.mu.Lock()
	changed := false
	for _, s := range model.AllSeverities {
		if !f.visible[s] {
			f.visible[s] = true
			changed = true
		}
	}
	f.mu.Unlock()

	if changed {
		f.notify()
	}
}

// SetHidden hides exactly the given buckets and shows the others, notifying
// subscribers once if any flag changed. Invalid severities are ignored.
func (f *Filter) SetHidden(hidden ...model.Severity) {
	hide := make(map[model.Severity]bool, len(hidden))
	for _, s := range hidden {
		hide[s] = true
	}

	f.mu.Lock()
	changed := false
	for _, s := range model.AllSeverities {
		if f.visible[s] == hide[s] {
			f.visible[s] = !hide[s]
			changed = true
		}
	}
	f.mu.Unlock()

	if changed {
		f.notify()
	}
}

// Subscribe registers fn to run after every state change. The returned
// function removes the subscription.
func (f *Filter) Subscribe(fn func()) (unsubscribe func()) {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	id := f.nextID
	f.nextID++
	f.subscribers[id] = fn

	return func() {
		f.subMu.Lock()
		defer f.subMu.Unlock()
		delete(f.subscribers, id)
	}
}

func (f *Filter) notify() {
	f.subMu.Lock()
	ids := make([]int, 0, len(f.subscribers))
	for id := range f.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.subscribers[id])
	}
	f.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
