package model

import "time"

// Event is a party night that sells tickets.  Capacity bounds the total
// quantity of tickets across the ticket ledger; zero means unlimited.
// TicketsSold is a cached copy of that ledger sum kept for display only and
// is always overwritten with a fresh resum after a ledger mutation.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – public event name.
//  Description – free-form text shown on the event page.
//  Date        – when the event takes place (UTC).
//  PriceCents  – ticket price in cents (≥ 0).
//  Capacity    – maximum tickets (0 = unlimited).
//  Archived    – archived events accept no purchases.
//  TicketsSold – cached ledger sum, never authoritative.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Event struct {
	ID          uint64    `json:"id"`           // events.id
	Name        string    `json:"name"`         // events.name
	Description string    `json:"description"`  // events.description
	Date        time.Time `json:"date"`         // events.event_date
	PriceCents  int64     `json:"price_cents"`  // events.price_cents
	Capacity    int       `json:"capacity"`     // events.capacity
	Archived    bool      `json:"archived"`     // events.archived
	TicketsSold int       `json:"tickets_sold"` // events.tickets_sold
	CreatedAt   time.Time `json:"created_at"`   // events.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // events.updated_at
}

// Unlimited reports whether the event has no capacity bound.
func (e Event) Unlimited() bool { return e.Capacity == 0 }

// HasPassed reports whether the event date lies before now.
func (e Event) HasPassed(now time.Time) bool { return e.Date.Before(now) }
