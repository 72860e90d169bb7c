package service

import (
	"time"

	"venue-pos/internal/domain"
)

type Urgency string

const (
	UrgencyOK       Urgency = "ok"
	UrgencyWarning  Urgency = "warning"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyCritical Urgency = "critical"
)

const (
	warningAfter  = 5 * time.Minute
	urgentAfter   = 10 * time.Minute
	criticalAfter = 15 * time.Minute
)

var urgencyRank = map[Urgency]int{UrgencyOK: 0, UrgencyWarning: 1, UrgencyUrgent: 2, UrgencyCritical: 3}

// Rank orders urgencies from ok (0) to critical (3).
func (u Urgency) Rank() int { return urgencyRank[u] }

// Classify grades an order by time since it was placed. Orders that are ready or
// already out of the kitchen are always ok.
func Classify(createdAt time.Time, status domain.OrderStatus, now time.Time) Urgency {
	switch status {
	case domain.OrderReady, domain.OrderServed, domain.OrderCompleted, domain.OrderCancelled:
		return UrgencyOK
	}
	elapsed := now.Sub(createdAt)
	switch {
	case elapsed >= criticalAfter:
		return UrgencyCritical
	case elapsed >= urgentAfter:
		return UrgencyUrgent
	case elapsed >= warningAfter:
		return UrgencyWarning
	default:
		return UrgencyOK
	}
}
