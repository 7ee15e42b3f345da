package ticketing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/buyer"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/queue"
	"github.com/rodetes-party/rodetes/internal/store"
)

// Availability is the answer of the capacity guard for one request.
type Availability struct {
	Allowed   bool `json:"allowed"`
	Unlimited bool `json:"unlimited"`
	Capacity  int  `json:"capacity"`
	Sold      int  `json:"sold"`
	Remaining int  `json:"remaining"` // zero when unlimited
}

// checkCapacity applies the capacity rule to a ledger sum.
func checkCapacity(ev model.Event, sold, quantity int) Availability {
	if ev.Unlimited() {
		return Availability{Allowed: true, Unlimited: true, Sold: sold}
	}
	remaining := ev.Capacity - sold
	if remaining < 0 {
		remaining = 0
	}
	return Availability{
		Allowed:   quantity <= ev.Capacity-sold,
		Capacity:  ev.Capacity,
		Sold:      sold,
		Remaining: remaining,
	}
}

// CanPurchase reports whether quantity more tickets fit in the event.  The
// sold figure is summed from the ledger, never taken from the cache.  The
// answer is advisory; PurchaseTicket repeats the check under a lock.
func (s *Service) CanPurchase(ctx context.Context, eventID uint64, quantity int) (Availability, error) {
	if quantity < 1 || quantity > buyer.MaxQuantity {
		return Availability{}, apperr.Invalid("quantity", fmt.Sprintf("must be between 1 and %d", buyer.MaxQuantity))
	}
	ev, err := s.Store.Events().Get(ctx, eventID)
	if err != nil {
		return Availability{}, apperr.Persistence("load event", err)
	}
	sold, err := s.Store.Tickets().SumQuantity(ctx, eventID)
	if err != nil {
		return Availability{}, apperr.Persistence("sum tickets", err)
	}
	return checkCapacity(ev, sold, quantity), nil
}

// FindExisting returns the ticket already bought by email for the event, or
// nil when there is none.
func (s *Service) FindExisting(ctx context.Context, eventID uint64, email string) (*model.Ticket, error) {
	t, err := s.Store.Tickets().FindByEventAndEmail(ctx, eventID, buyer.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence("find ticket", err)
	}
	return &t, nil
}

// PurchaseRequest is a public ticket order.
type PurchaseRequest struct {
	EventID  uint64
	Name     string
	Surname  string
	Email    string
	Quantity int
}

// PurchaseResult carries the issued ticket.  Duplicate is set when the email
// already held a ticket for the event; Ticket is then that existing ticket
// and the ledger was left untouched.
type PurchaseResult struct {
	Ticket    model.Ticket `json:"ticket"`
	Event     model.Event  `json:"event"`
	Duplicate bool         `json:"duplicate"`
}

// PurchaseTicket validates the buyer, then in one transaction locks the
// event, rejects archived or past events, short-circuits on a duplicate,
// checks capacity against the ledger and appends the ticket.  The cached
// sold count is overwritten with the new ledger sum before commit.
func (s *Service) PurchaseTicket(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	b, err := buyer.Validate(buyer.Buyer{Name: req.Name, Surname: req.Surname, Email: req.Email}, req.Quantity, s.AllowedDomains)
	if err != nil {
		return PurchaseResult{}, err
	}

	now := s.Now()
	var res PurchaseResult
	err = s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		ev, err := tx.Events().GetForUpdate(ctx, req.EventID)
		if err != nil {
			return err
		}
		if ev.Archived {
			return apperr.ErrEventArchived
		}
		if ev.HasPassed(now) {
			return apperr.ErrEventPast
		}

		existing, err := tx.Tickets().FindByEventAndEmail(ctx, ev.ID, b.Email)
		switch {
		case err == nil:
			res = PurchaseResult{Ticket: existing, Event: ev, Duplicate: true}
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		sold, err := tx.Tickets().SumQuantity(ctx, ev.ID)
		if err != nil {
			return err
		}
		if av := checkCapacity(ev, sold, req.Quantity); !av.Allowed {
			return &apperr.SoldOutError{Remaining: av.Remaining}
		}

		t := model.Ticket{
			TicketID:  s.NewID(),
			EventID:   ev.ID,
			Name:      b.Name,
			Surname:   b.Surname,
			Email:     b.Email,
			Quantity:  req.Quantity,
			CreatedAt: now.Truncate(time.Second),
		}
		if err := tx.Tickets().Create(ctx, &t); err != nil {
			return err
		}
		if ev.TicketsSold, err = resync(ctx, tx, ev.ID); err != nil {
			return err
		}
		res = PurchaseResult{Ticket: t, Event: ev}
		return nil
	})
	if err != nil {
		return PurchaseResult{}, apperr.Persistence("purchase ticket", err)
	}

	log := s.Log.WithField("event_id", res.Event.ID).WithField("ticket_id", res.Ticket.TicketID)
	if res.Duplicate {
		log.Info("duplicate purchase, returning existing ticket")
		return res, nil
	}
	log.WithField("quantity", res.Ticket.Quantity).Info("ticket purchased")
	s.publish(ctx, queue.TicketPurchasedEvent{
		TicketID:    res.Ticket.TicketID,
		EventID:     res.Event.ID,
		EventName:   res.Event.Name,
		Email:       res.Ticket.Email,
		Quantity:    res.Ticket.Quantity,
		TicketsSold: res.Event.TicketsSold,
		PurchasedAt: now.Format(time.RFC3339),
	})
	return res, nil
}

// GetTicket returns a ticket by its public id.
func (s *Service) GetTicket(ctx context.Context, ticketID string) (model.Ticket, error) {
	t, err := s.Store.Tickets().Get(ctx, ticketID)
	return t, apperr.Persistence("load ticket", err)
}
