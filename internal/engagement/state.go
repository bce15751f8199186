// Package engagement holds the visitor's consent and interest-capture state
// and the scheduler that decides when to show the interest interstitial.
package engagement

import "time"

// DefaultCooldown is how long a dismissed interstitial stays hidden.
const DefaultCooldown = 24 * time.Hour

// Consent is the tri-state consent decision.
type Consent string

const (
	ConsentUndecided Consent = "undecided"
	ConsentAccepted  Consent = "accepted"
	ConsentRejected  Consent = "rejected"
)

// Event is a transition applied to State.
type Event int

const (
	EventAccept Event = iota + 1
	EventReject
	EventCapture
	EventDismiss
)

// State is the persisted engagement record. At most one of Accepted and
// Rejected is true. A zero LastDismissedAt means never dismissed.
type State struct {
	Accepted        bool
	Rejected        bool
	Captured        bool
	LastDismissedAt time.Time
}

// Apply returns the state after ev happened at now.
func (s State) Apply(ev Event, now time.Time) State {
	switch ev {
	case EventAccept:
		s.Accepted, s.Rejected = true, false
	case EventReject:
		s.Accepted, s.Rejected = false, true
	case EventCapture:
		s.Captured = true
	case EventDismiss:
		s.LastDismissedAt = now.UTC()
	}
	return s
}

// Consent derives the tri-state decision.
func (s State) Consent() Consent {
	switch {
	case s.Accepted:
		return ConsentAccepted
	case s.Rejected:
		return ConsentRejected
	}
	return ConsentUndecided
}

// Decided reports whether the visitor answered the consent prompt either way.
func (s State) Decided() bool {
	return s.Accepted || s.Rejected
}

// CooldownRemaining returns how much of the cooldown is left at now.
func (s State) CooldownRemaining(now time.Time, cooldown time.Duration) time.Duration {
	if s.LastDismissedAt.IsZero() {
		return 0
	}
	left := cooldown - now.Sub(s.LastDismissedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Eligible reports whether the interstitial may be offered at now.
func (s State) Eligible(now time.Time, cooldown time.Duration) bool {
	return s.Decided() && !s.Captured && s.CooldownRemaining(now, cooldown) == 0
}

// ShowCallToAction reports whether the persistent interest button is shown.
func (s State) ShowCallToAction(presenting bool) bool {
	return s.Decided() && !s.Captured && !presenting
}
