// Package lifecycle validates status transitions. Event names equal the
// destination status, so callers ask for "ready" rather than "mark_ready".
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/looplab/fsm"

	"venue-pos/internal/domain"
)

type Machine struct {
	name   string
	events fsm.Events
}

func New(name string, events fsm.Events) *Machine {
	return &Machine{name: name, events: events}
}

// Next returns the status reached by moving from to target, or ErrInvalidTransition.
func (m *Machine) Next(from, target string) (string, error) {
	f := fsm.NewFSM(from, m.events, nil)
	if err := f.Event(context.Background(), target); err != nil {
		var inv fsm.InvalidEventError
		var unk fsm.UnknownEventError
		if errors.As(err, &inv) || errors.As(err, &unk) {
			return "", fmt.Errorf("%w: %s %s -> %s", domain.ErrInvalidTransition, m.name, from, target)
		}
		if errors.As(err, new(fsm.NoTransitionError)) {
			return from, nil
		}
		return "", err
	}
	return f.Current(), nil
}

// Allowed lists the targets reachable from a status, sorted.
func (m *Machine) Allowed(from string) []string {
	out := fsm.NewFSM(from, m.events, nil).AvailableTransitions()
	sort.Strings(out)
	return out
}

var Orders = New("order", fsm.Events{
	{Name: string(domain.OrderConfirmed), Src: []string{string(domain.OrderPending)}, Dst: string(domain.OrderConfirmed)},
	{Name: string(domain.OrderPreparing), Src: []string{string(domain.OrderPending), string(domain.OrderConfirmed)}, Dst: string(domain.OrderPreparing)},
	{Name: string(domain.OrderReady), Src: []string{string(domain.OrderPreparing)}, Dst: string(domain.OrderReady)},
	{Name: string(domain.OrderServed), Src: []string{string(domain.OrderReady)}, Dst: string(domain.OrderServed)},
	{Name: string(domain.OrderCompleted), Src: []string{string(domain.OrderReady), string(domain.OrderServed)}, Dst: string(domain.OrderCompleted)},
	{Name: string(domain.OrderCancelled), Src: []string{string(domain.OrderPending), string(domain.OrderConfirmed), string(domain.OrderPreparing), string(domain.OrderReady)}, Dst: string(domain.OrderCancelled)},
})

var Reservations = New("reservation", fsm.Events{
	{Name: string(domain.ReservationConfirmed), Src: []string{string(domain.ReservationPending)}, Dst: string(domain.ReservationConfirmed)},
	{Name: string(domain.ReservationSeated), Src: []string{string(domain.ReservationPending), string(domain.ReservationConfirmed)}, Dst: string(domain.ReservationSeated)},
	{Name: string(domain.ReservationCompleted), Src: []string{string(domain.ReservationSeated)}, Dst: string(domain.ReservationCompleted)},
	{Name: string(domain.ReservationCancelled), Src: []string{string(domain.ReservationPending), string(domain.ReservationConfirmed)}, Dst: string(domain.ReservationCancelled)},
	{Name: string(domain.ReservationNoShow), Src: []string{string(domain.ReservationPending), string(domain.ReservationConfirmed)}, Dst: string(domain.ReservationNoShow)},
})

var WaiterCalls = New("waiter_call", fsm.Events{
	{Name: string(domain.CallAcknowledged), Src: []string{string(domain.CallPending)}, Dst: string(domain.CallAcknowledged)},
	{Name: string(domain.CallCompleted), Src: []string{string(domain.CallPending), string(domain.CallAcknowledged)}, Dst: string(domain.CallCompleted)},
	{Name: string(domain.CallDismissed), Src: []string{string(domain.CallPending), string(domain.CallAcknowledged)}, Dst: string(domain.CallDismissed)},
})
