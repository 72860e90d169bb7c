package realtime

import "context"

// Sounds the dashboards know how to play.
const (
	SoundNewOrder    = "new_order"
	SoundOrderReady  = "order_ready"
	SoundWaiterCall  = "waiter_call"
	SoundNewMessage  = "new_message"
	SoundReservation = "reservation"
)

type Alert struct {
	VenueID string `json:"venue_id"`
	Sound   string `json:"sound"`
	Ref     string `json:"ref"`
}

// Alerter plays sounds and animations on the venue's screens.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

type AlerterFunc func(ctx context.Context, a Alert)

func (f AlerterFunc) Alert(ctx context.Context, a Alert) { f(ctx, a) }

// NopAlerter drops alerts.
var NopAlerter Alerter = AlerterFunc(func(context.Context, Alert) {})
