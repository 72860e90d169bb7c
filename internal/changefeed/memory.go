package changefeed

import (
	"context"
	"slices"
	"sync"

	"venue-pos/internal/domain"
)

// Memory is an in-process Feed. Publish delivers synchronously on the caller's goroutine.
type Memory struct {
	mu       sync.Mutex
	subs     map[int]*memSub
	next     int
	failures int
	opened   int
}

type memSub struct {
	spec    Spec
	deliver Deliver
	ch      *channel
}

func NewMemory() *Memory { return &Memory{subs: make(map[int]*memSub)} }

func (m *Memory) Subscribe(_ context.Context, spec Spec, deliver Deliver) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return nil, ErrSubscribe
	}
	id := m.next
	m.next++
	m.opened++
	sub := &memSub{spec: spec, deliver: deliver}
	sub.ch = newChannel(func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	})
	m.subs[id] = sub
	return sub.ch, nil
}

func (m *Memory) Publish(ev domain.ChangeEvent) {
	m.mu.Lock()
	var targets []*memSub
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if sub := m.subs[id]; sub.spec.Match(ev) {
			targets = append(targets, sub)
		}
	}
	m.mu.Unlock()
	for _, sub := range targets {
		sub.deliver(ev)
	}
}

// Drop fails every open channel on table, as a lost connection would.
func (m *Memory) Drop(table string) int {
	m.mu.Lock()
	var victims []*memSub
	for _, sub := range m.subs {
		if sub.spec.Table == table {
			victims = append(victims, sub)
		}
	}
	m.mu.Unlock()
	for _, sub := range victims {
		sub.ch.fail(ErrChannelDropped)
	}
	return len(victims)
}

// FailSubscribes makes the next n Subscribe calls fail.
func (m *Memory) FailSubscribes(n int) {
	m.mu.Lock()
	m.failures = n
	m.mu.Unlock()
}

// Open is the number of channels currently subscribed.
func (m *Memory) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// OpenFor counts open channels on table.
func (m *Memory) OpenFor(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, sub := range m.subs {
		if sub.spec.Table == table {
			n++
		}
	}
	return n
}

// Specs returns the specs of open channels.
func (m *Memory) Specs() []Spec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Spec, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub.spec)
	}
	return out
}

// Subscribed is the total number of successful Subscribe calls.
func (m *Memory) Subscribed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}
