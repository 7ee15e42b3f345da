package model

import "time"

// Ticket is one purchase transaction in the ticket ledger.  A ticket admits
// Quantity people and is identified publicly (and in its QR code) by the
// opaque TicketID.  At most one ticket exists per (EventID, Email).
//
// Fields:
//  TicketID  – opaque unique identifier (uuid).
//  EventID   – owning event.
//  Name      – holder first name.
//  Surname   – holder last name.
//  Email     – holder email, stored lowercased.
//  Quantity  – number of admissions (≥ 1).
//  CreatedAt – purchase timestamp.
type Ticket struct {
	TicketID  string    `json:"ticket_id"`  // tickets.ticket_id
	EventID   uint64    `json:"event_id"`   // tickets.event_id
	Name      string    `json:"name"`       // tickets.name
	Surname   string    `json:"surname"`    // tickets.surname
	Email     string    `json:"email"`      // tickets.email
	Quantity  int       `json:"quantity"`   // tickets.quantity
	CreatedAt time.Time `json:"created_at"` // tickets.created_at
}

// HolderName joins first and last name for display.
func (t Ticket) HolderName() string {
	if t.Surname == "" {
		return t.Name
	}
	return t.Name + " " + t.Surname
}

// Redemption counts how many admissions of a ticket have been used at the
// door.  A ticket with no stored redemption has UsedCount zero.
type Redemption struct {
	TicketID   string     `json:"ticket_id"`              // ticket_redemptions.ticket_id
	UsedCount  int        `json:"used_count"`             // ticket_redemptions.used_count
	LastUsedAt *time.Time `json:"last_used_at,omitempty"` // ticket_redemptions.last_used_at (nullable)
}

// Available returns how many admissions of t remain after r.
func (r Redemption) Available(t Ticket) int {
	n := t.Quantity - r.UsedCount
	if n < 0 {
		return 0
	}
	return n
}

// TicketWithUsage pairs a ticket with its redemption counter for admin
// listings.
type TicketWithUsage struct {
	Ticket
	UsedCount int `json:"used_count"`
}
