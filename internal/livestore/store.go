// Package livestore keeps a snapshot of rows current by merging row changes into it.
package livestore

import (
	"sort"
	"sync"

	"venue-pos/internal/domain"
)

// Options tune a Store. Key is required.
type Options[T any] struct {
	Key func(T) string
	// Keep drops rows that no longer belong in the view, e.g. terminal statuses.
	Keep func(T) bool
	// Less orders List; insertion order is used when nil.
	Less func(a, b T) bool
}

type Store[T any] struct {
	opts Options[T]

	mu    sync.RWMutex
	items map[string]T
	seq   map[string]int
	next  int
}

func New[T any](opts Options[T]) *Store[T] {
	return &Store[T]{opts: opts, items: make(map[string]T), seq: make(map[string]int)}
}

// Replace swaps the whole view for a freshly fetched snapshot.
func (s *Store[T]) Replace(rows []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T, len(rows))
	s.seq = make(map[string]int, len(rows))
	s.next = 0
	for _, r := range rows {
		s.putLocked(r)
	}
}

// Upsert inserts or replaces one row. It returns false when Keep rejected the row
// and it was removed instead.
func (s *Store[T]) Upsert(row T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(row)
}

func (s *Store[T]) putLocked(row T) bool {
	key := s.opts.Key(row)
	if s.opts.Keep != nil && !s.opts.Keep(row) {
		delete(s.items, key)
		delete(s.seq, key)
		return false
	}
	if _, ok := s.seq[key]; !ok {
		s.seq[key] = s.next
		s.next++
	}
	s.items[key] = row
	return true
}

func (s *Store[T]) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	delete(s.items, key)
	delete(s.seq, key)
	return ok
}

// Apply merges a row change: inserts and updates are decoded and upserted,
// deletes remove by primary key.
func (s *Store[T]) Apply(ev domain.ChangeEvent) error {
	if ev.Type == domain.ChangeDelete {
		s.Remove(ev.RowID())
		return nil
	}
	row, err := domain.DecodeNew[T](ev)
	if err != nil {
		return err
	}
	s.Upsert(row)
	return nil
}

func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// List returns a copy of the rows in view order.
func (s *Store[T]) List() []T {
	return s.Filter(nil)
}

// Filter returns the rows matching pred in view order; nil pred matches all.
func (s *Store[T]) Filter(pred func(T) bool) []T {
	s.mu.RLock()
	type entry struct {
		row T
		seq int
	}
	entries := make([]entry, 0, len(s.items))
	for k, v := range s.items {
		if pred == nil || pred(v) {
			entries = append(entries, entry{row: v, seq: s.seq[k]})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if s.opts.Less != nil {
			a, b := entries[i].row, entries[j].row
			if s.opts.Less(a, b) {
				return true
			}
			if s.opts.Less(b, a) {
				return false
			}
		}
		return entries[i].seq < entries[j].seq
	})
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.row
	}
	return out
}
