package changefeed

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/metrics"
)

type SupervisorOptions struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// StableAfter is how long a channel must stay up before the backoff starts over.
	// Defaults to MaxInterval.
	StableAfter time.Duration
	Logger          *logger.Logger
	Metrics         *metrics.Metrics
}

// Supervisor keeps channels open: a dropped or failed channel is re-subscribed with
// exponential backoff until its context ends.
type Supervisor struct {
	feed    Feed
	opts    SupervisorOptions
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewSupervisor(feed Feed, opts SupervisorOptions) *Supervisor {
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}
	if opts.StableAfter <= 0 {
		opts.StableAfter = opts.MaxInterval
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.Nop()
	}
	return &Supervisor{feed: feed, opts: opts, log: lg, metrics: opts.Metrics}
}

// Watched is a supervised channel.
type Watched struct {
	spec   Spec
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	open bool
}

func (w *Watched) Spec() Spec { return w.spec }

// Open reports whether the underlying channel is currently subscribed.
func (w *Watched) Open() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

func (w *Watched) setOpen(v bool) {
	w.mu.Lock()
	w.open = v
	w.mu.Unlock()
}

// Stop closes the channel and waits for the supervising goroutine to exit.
func (w *Watched) Stop() {
	w.cancel()
	<-w.done
}

// Watch opens spec and supervises it. The first attempt runs before Watch returns;
// its failure is logged and retried in the background. onReconnect runs after every
// successful re-subscribe, never after the first.
func (s *Supervisor) Watch(ctx context.Context, spec Spec, deliver Deliver, onReconnect func(Spec)) *Watched {
	wctx, cancel := context.WithCancel(ctx)
	w := &Watched{spec: spec, cancel: cancel, done: make(chan struct{})}

	first, err := s.feed.Subscribe(wctx, spec, deliver)
	if err != nil {
		s.log.Warn("channel_open_failed", map[string]any{"channel": spec.Name, "table": spec.Table, "error": err.Error()})
	}
	go s.run(wctx, w, first, deliver, onReconnect)
	return w
}

func (s *Supervisor) run(ctx context.Context, w *Watched, ch Channel, deliver Deliver, onReconnect func(Spec)) {
	defer close(w.done)

	// One backoff per watched channel, kept across drops: a feed that accepts the
	// subscribe and fails right after must still back off.
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.opts.InitialInterval
	b.MaxInterval = s.opts.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	reconnect := ch == nil
	for {
		if ch == nil {
			var err error
			if ch, err = s.resubscribe(ctx, w.spec, deliver, b); err != nil {
				return
			}
		}
		opened := time.Now()
		w.setOpen(true)
		s.metrics.ChannelOpened()
		if reconnect {
			s.metrics.Reconnect(w.spec.Table)
			s.log.Info("channel_reconnected", map[string]any{"channel": w.spec.Name})
			if onReconnect != nil {
				onReconnect(w.spec)
			}
		}

		select {
		case <-ctx.Done():
			_ = ch.Close()
			w.setOpen(false)
			s.metrics.ChannelClosed()
			return
		case err := <-ch.Done():
			w.setOpen(false)
			s.metrics.ChannelClosed()
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = ErrChannelDropped
			}
			if time.Since(opened) >= s.opts.StableAfter {
				b.Reset()
			}
			wait := b.NextBackOff()
			s.log.Warn("channel_dropped", map[string]any{"channel": w.spec.Name, "error": err.Error(), "retry_in": wait.String()})
			if !sleep(ctx, wait) {
				return
			}
			ch = nil
			reconnect = true
		}
	}
}

// resubscribe retries Subscribe on b until it succeeds or ctx ends. b is not reset here.
func (s *Supervisor) resubscribe(ctx context.Context, spec Spec, deliver Deliver, b backoff.BackOff) (Channel, error) {
	for {
		ch, err := s.feed.Subscribe(ctx, spec, deliver)
		if err == nil {
			return ch, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		wait := b.NextBackOff()
		s.log.Debug("channel_retry", map[string]any{"channel": spec.Name, "error": err.Error(), "retry_in": wait.String()})
		if !sleep(ctx, wait) {
			return nil, ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
