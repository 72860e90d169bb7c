package realtime

import "sync"

// backlog is the per-venue FIFO between feed callbacks and the dispatch goroutine.
// push never blocks, so one slow venue cannot stall a listener shared by others.
type backlog struct {
	mu    sync.Mutex
	items []queued
	ready chan struct{}
}

func newBacklog() *backlog {
	return &backlog{ready: make(chan struct{}, 1)}
}

// push appends q and returns the depth after the append.
func (b *backlog) push(q queued) int {
	b.mu.Lock()
	b.items = append(b.items, q)
	n := len(b.items)
	b.mu.Unlock()
	select {
	case b.ready <- struct{}{}:
	default:
	}
	return n
}

// drain takes everything queued so far, oldest first.
func (b *backlog) drain() []queued {
	b.mu.Lock()
	out := b.items
	b.items = nil
	b.mu.Unlock()
	return out
}

func (b *backlog) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
