package audit

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory append-only repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, cloneEntry(e))
	return nil
}

func (r *MemoryRepo) Query(ctx context.Context, f Filter) ([]Entry, error) {
	r.mu.Lock()
	matched := make([]Entry, 0)
	// Walk backwards so equal timestamps keep newest-appended first.
	for i := len(r.entries) - 1; i >= 0; i-- {
		if f.Matches(r.entries[i]) {
			matched = append(matched, cloneEntry(r.entries[i]))
		}
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := f.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if f.Limit == 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// Entries returns every stored entry in append order.
func (r *MemoryRepo) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = cloneEntry(e)
	}
	return out
}

func cloneEntry(e Entry) Entry {
	if e.Metadata != nil {
		m := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			m[k] = v
		}
		e.Metadata = m
	}
	if e.DurationMs != nil {
		d := *e.DurationMs
		e.DurationMs = &d
	}
	return e
}
