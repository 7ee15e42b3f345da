// Package store declares the repository interfaces the services work
// against, one per entity, plus the transaction boundary that groups them.
// The MySQL implementation lives in internal/repository and an in-memory one
// in internal/store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/model"
)

// ErrNotFound is returned by every repository when a row does not exist.
// It is the same sentinel the services surface to handlers.
var ErrNotFound = apperr.ErrNotFound

// ErrDuplicate is returned when a unique key is violated.
var ErrDuplicate = errors.New("duplicate key")

// EventRepository persists events.  Update never touches tickets_sold;
// only SetTicketsSold does, and callers pass a fresh ledger resum.
type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	Get(ctx context.Context, id uint64) (model.Event, error)
	// GetForUpdate reads the event and locks its row until the end of the
	// surrounding transaction, serialising purchases per event.
	GetForUpdate(ctx context.Context, id uint64) (model.Event, error)
	List(ctx context.Context, includeArchived bool) ([]model.Event, error)
	Update(ctx context.Context, e model.Event) error
	Delete(ctx context.Context, id uint64) error
	SetTicketsSold(ctx context.Context, id uint64, sold int) error
}

// TicketRepository is the ticket ledger.
type TicketRepository interface {
	Create(ctx context.Context, t *model.Ticket) error
	Get(ctx context.Context, ticketID string) (model.Ticket, error)
	// GetForUpdate locks the ticket row, serialising redemptions per ticket.
	GetForUpdate(ctx context.Context, ticketID string) (model.Ticket, error)
	FindByEventAndEmail(ctx context.Context, eventID uint64, email string) (model.Ticket, error)
	SumQuantity(ctx context.Context, eventID uint64) (int, error)
	ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketWithUsage, error)
	Delete(ctx context.Context, ticketID string) error
}

// RedemptionRepository is the redemption counter.
type RedemptionRepository interface {
	// Get returns a zero-count record when the ticket was never scanned.
	Get(ctx context.Context, ticketID string) (model.Redemption, error)
	// Add increments the used count by n, creating the record if needed.
	Add(ctx context.Context, ticketID string, n int, at time.Time) error
}

// DragRepository persists drag performers.
type DragRepository interface {
	Create(ctx context.Context, d *model.Drag) error
	Get(ctx context.Context, id uint64) (model.Drag, error)
	List(ctx context.Context) ([]model.Drag, error)
	Update(ctx context.Context, d model.Drag) error
	Delete(ctx context.Context, id uint64) error
}

// MerchItemRepository persists the merch catalog.
type MerchItemRepository interface {
	Create(ctx context.Context, it *model.MerchItem) error
	Get(ctx context.Context, id uint64) (model.MerchItem, error)
	// ListBySeller lists items of a drag, or web items when dragID is nil.
	ListBySeller(ctx context.Context, dragID *uint64) ([]model.MerchItem, error)
	Update(ctx context.Context, it model.MerchItem) error
	Delete(ctx context.Context, id uint64) error
	DeleteByDrag(ctx context.Context, dragID uint64) (int64, error)
}

// MerchSaleRepository is the merch sale ledger.
type MerchSaleRepository interface {
	Create(ctx context.Context, s *model.MerchSale) error
	Get(ctx context.Context, saleID string) (model.MerchSale, error)
	GetForUpdate(ctx context.Context, saleID string) (model.MerchSale, error)
	List(ctx context.Context, f model.SaleFilter) ([]model.MerchSale, error)
	// MarkDelivered flips a PENDING sale to DELIVERED.  It reports false when
	// the sale was not pending.
	MarkDelivered(ctx context.Context, saleID string, at time.Time) (bool, error)
	DeleteByDrag(ctx context.Context, dragID uint64) (int64, error)
	// DetachDrag nulls the drag reference of a drag's sales, keeping the
	// name snapshot.
	DetachDrag(ctx context.Context, dragID uint64) (int64, error)
	// DetachItem nulls the item reference of an item's sales.
	DetachItem(ctx context.Context, itemID uint64) (int64, error)
}

// UserRepository persists admin and staff accounts.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenRepository persists hashed refresh tokens.
type TokenRepository interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the owner of a live token or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// Tx groups the repositories bound to one unit of work.
type Tx interface {
	Events() EventRepository
	Tickets() TicketRepository
	Redemptions() RedemptionRepository
	Drags() DragRepository
	MerchItems() MerchItemRepository
	MerchSales() MerchSaleRepository
	Users() UserRepository
	Tokens() TokenRepository
}

// Store is the entry point.  Its own repositories run each call on its
// own; WithinTx runs fn in a single transaction that is committed when fn
// returns nil and rolled back otherwise.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
