package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketTypeDef defines one tier of tickets for an event. Code is unique
// within the event (e.g. "GA", "VIP", "EARLY_BIRD"). Price is in the
// smallest currency unit.
type TicketTypeDef struct {
	Code     string `json:"code"`
	Price    int64  `json:"price"`
	Capacity int    `json:"capacity"`
}

// Event is an immutable event definition as recorded by a CreateEvent
// transaction. Mutable counters (tickets minted per type) live in the
// catalog projection, not here.
type Event struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Venue           string          `json:"venue"`
	StartsAt        time.Time       `json:"starts_at"`
	RefundableUntil time.Time       `json:"refundable_until"`
	MaxPerWallet    int             `json:"max_per_wallet"`
	OrganizerWallet string          `json:"organizer_wallet"`
	TicketTypes     []TicketTypeDef `json:"ticket_types"`
}

// TicketType returns the type definition for code, or false.
func (e *Event) TicketType(code string) (TicketTypeDef, bool) {
	for _, tt := range e.TicketTypes {
		if tt.Code == code {
			return tt, true
		}
	}
	return TicketTypeDef{}, false
}

// Refund tiers: fraction of the list price returned, by days remaining
// before the event starts. Mirrors the venue refund policy.
const (
	refundFullDays    = 7
	refundPartialDays = 3
	refundMinimalDays = 1
)

// RefundAmount computes the refund value for a ticket of the given list
// price at time now. Returns 0 and false when the ticket is no longer
// refundable (past the deadline or under one day before the event).
func (e *Event) RefundAmount(listPrice int64, now time.Time) (int64, bool) {
	if now.After(e.RefundableUntil) {
		return 0, false
	}
	daysLeft := int(e.StartsAt.Sub(now).Hours() / 24)
	switch {
	case daysLeft >= refundFullDays:
		return listPrice, true
	case daysLeft >= refundPartialDays:
		return listPrice * 75 / 100, true
	case daysLeft >= refundMinimalDays:
		return listPrice / 2, true
	default:
		return 0, false
	}
}
