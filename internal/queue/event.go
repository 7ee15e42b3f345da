// Package queue defines the domain events exchanged over the message broker,
// the publisher used by the services and the activity log consumer.
package queue

import (
	"context"
	"sync"
)

// Queue names.  Each event type has its own durable queue, named after the
// routing key.
const (
	TicketPurchasedQueue = "ticket.purchased"
	TicketRedeemedQueue  = "ticket.redeemed"
	MerchSoldQueue       = "merch.sold"
	MerchDeliveredQueue  = "merch.delivered"
)

// Queues lists every queue the activity consumer listens on.
var Queues = []string{TicketPurchasedQueue, TicketRedeemedQueue, MerchSoldQueue, MerchDeliveredQueue}

// Event is a message payload.  RoutingKey names its queue.
type Event interface {
	RoutingKey() string
}

// TicketPurchasedEvent is published after a new ticket is committed.
// Duplicate purchases that return an existing ticket publish nothing.
type TicketPurchasedEvent struct {
	TicketID    string `json:"ticket_id"`
	EventID     uint64 `json:"event_id"`
	EventName   string `json:"event_name"`
	Email       string `json:"email"`
	Quantity    int    `json:"quantity"`
	TicketsSold int    `json:"tickets_sold"`
	PurchasedAt string `json:"purchased_at"`
}

// TicketRedeemedEvent is published after admissions are confirmed at the door.
type TicketRedeemedEvent struct {
	TicketID   string `json:"ticket_id"`
	EventID    uint64 `json:"event_id"`
	Quantity   int    `json:"quantity"`
	UsedCount  int    `json:"used_count"`
	Total      int    `json:"total"`
	RedeemedAt string `json:"redeemed_at"`
}

// MerchSoldEvent is published after a merch order is committed.
type MerchSoldEvent struct {
	SaleID     string `json:"sale_id"`
	ItemName   string `json:"item_name"`
	DragName   string `json:"drag_name"`
	Quantity   int    `json:"quantity"`
	TotalCents int64  `json:"total_cents"`
	Email      string `json:"email"`
	SoldAt     string `json:"sold_at"`
}

// MerchDeliveredEvent is published when an order is handed over.
type MerchDeliveredEvent struct {
	SaleID      string `json:"sale_id"`
	ItemName    string `json:"item_name"`
	DragName    string `json:"drag_name"`
	Quantity    int    `json:"quantity"`
	DeliveredAt string `json:"delivered_at"`
}

func (TicketPurchasedEvent) RoutingKey() string { return TicketPurchasedQueue }
func (TicketRedeemedEvent) RoutingKey() string  { return TicketRedeemedQueue }
func (MerchSoldEvent) RoutingKey() string       { return MerchSoldQueue }
func (MerchDeliveredEvent) RoutingKey() string  { return MerchDeliveredQueue }

// Publisher sends events to the broker.  Publishing happens after the
// database commit, so callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.  Used when RABBITMQ_ENABLED is off.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
