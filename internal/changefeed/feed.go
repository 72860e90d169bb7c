// Package changefeed delivers backend row changes to subscribers, one channel per
// table and venue filter, and keeps those channels open across drops.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"venue-pos/internal/domain"
)

var (
	ErrChannelDropped = errors.New("change channel dropped")
	ErrSubscribe      = errors.New("change channel subscribe failed")
)

// Filter narrows a channel to rows whose Column equals Value. The zero Filter passes everything.
type Filter struct {
	Column string
	Value  string
}

// VenueFilter filters on venue_id; AllVenues yields the zero Filter.
func VenueFilter(venueID string) Filter {
	if venueID == "" || venueID == domain.AllVenues {
		return Filter{}
	}
	return Filter{Column: "venue_id", Value: venueID}
}

func (f Filter) IsZero() bool { return f.Column == "" || f.Value == "" }

func (f Filter) Match(ev domain.ChangeEvent) bool {
	if f.IsZero() {
		return true
	}
	if f.Column == "venue_id" {
		return ev.VenueID() == f.Value
	}
	return columnValue(ev, f.Column) == f.Value
}

func columnValue(ev domain.ChangeEvent, column string) string {
	raw := ev.New
	if len(raw) == 0 {
		raw = ev.Old
	}
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return ""
	}
	v, ok := row[column]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Spec names one channel.
type Spec struct {
	Name   string
	Table  string
	Filter Filter
}

func (s Spec) Match(ev domain.ChangeEvent) bool {
	return ev.Table == s.Table && s.Filter.Match(ev)
}

// Deliver is called for every change on a channel, in commit order.
type Deliver func(domain.ChangeEvent)

// Channel is an open subscription.
type Channel interface {
	Close() error
	// Done is closed when the channel ends. A drop sends the cause first; Close sends nothing.
	Done() <-chan error
}

type Feed interface {
	Subscribe(ctx context.Context, spec Spec, deliver Deliver) (Channel, error)
}

type channel struct {
	once    sync.Once
	done    chan error
	onClose func()
}

func newChannel(onClose func()) *channel {
	return &channel{done: make(chan error, 1), onClose: onClose}
}

func (c *channel) Done() <-chan error { return c.done }

func (c *channel) Close() error {
	c.end(nil)
	return nil
}

func (c *channel) fail(err error) { c.end(err) }

func (c *channel) end(err error) {
	c.once.Do(func() {
		if c.onClose != nil {
			c.onClose()
		}
		if err != nil {
			c.done <- err
		}
		close(c.done)
	})
}

// RoutingKey is the broker key a change is published under.
func RoutingKey(table, venueID string) string {
	if venueID == "" {
		venueID = "none"
	}
	return table + "." + venueID
}

// BindingKey is the broker binding for spec.
func BindingKey(spec Spec) string {
	if spec.Filter.IsZero() || spec.Filter.Column != "venue_id" {
		return spec.Table + ".*"
	}
	return RoutingKey(spec.Table, spec.Filter.Value)
}

// DecodeNotification parses the JSON body produced by the notify trigger.
func DecodeNotification(body []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode change: %w", err)
	}
	if ev.Table == "" {
		return ev, errors.New("decode change: missing table")
	}
	switch ev.Type {
	case domain.ChangeInsert, domain.ChangeUpdate, domain.ChangeDelete:
	default:
		return ev, fmt.Errorf("decode change: unknown type %q", ev.Type)
	}
	return ev, nil
}
