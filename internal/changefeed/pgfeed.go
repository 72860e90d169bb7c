package changefeed

import (
	"context"
	"slices"
	"sync"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/domain"
)

// PGFeed multiplexes one Source across many channels and filters in process.
// It serves single-node deployments that run without the broker.
type PGFeed struct {
	base context.Context
	src  Source
	log  *logger.Logger

	mu      sync.Mutex
	subs    map[int]*memSub
	next    int
	running bool
}

func NewPGFeed(base context.Context, src Source, lg *logger.Logger) *PGFeed {
	return &PGFeed{base: base, src: src, log: lg, subs: make(map[int]*memSub)}
}

func (f *PGFeed) Subscribe(_ context.Context, spec Spec, deliver Deliver) (Channel, error) {
	if err := f.base.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	sub := &memSub{spec: spec, deliver: deliver}
	sub.ch = newChannel(func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	})
	f.subs[id] = sub

	if !f.running {
		f.running = true
		go f.loop()
	}
	return sub.ch, nil
}

func (f *PGFeed) loop() {
	err := f.src.Listen(f.base, f.dispatch)

	f.mu.Lock()
	f.running = false
	victims := make([]*memSub, 0, len(f.subs))
	for _, sub := range f.subs {
		victims = append(victims, sub)
	}
	f.mu.Unlock()

	if err != nil {
		f.log.Error("listener_failed", err, map[string]any{"channels": len(victims)})
	}
	cause := err
	if cause == nil {
		cause = ErrChannelDropped
	}
	for _, sub := range victims {
		sub.ch.fail(cause)
	}
}

func (f *PGFeed) dispatch(ev domain.ChangeEvent) {
	f.mu.Lock()
	var targets []*memSub
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if sub := f.subs[id]; sub.spec.Match(ev) {
			targets = append(targets, sub)
		}
	}
	f.mu.Unlock()
	for _, sub := range targets {
		sub.deliver(ev)
	}
}
