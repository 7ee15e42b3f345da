package ticketing

import (
	"context"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
)

// resync overwrites the event's tickets_sold with the ledger sum and returns
// it.  Callers hold the event row lock.
func resync(ctx context.Context, tx store.Tx, eventID uint64) (int, error) {
	sold, err := tx.Tickets().SumQuantity(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return sold, tx.Events().SetTicketsSold(ctx, eventID, sold)
}

// DeleteTicket removes a ticket with its redemption record and resyncs the
// owning event.
func (s *Service) DeleteTicket(ctx context.Context, ticketID string) error {
	var eventID uint64
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := tx.Tickets().Get(ctx, ticketID)
		if err != nil {
			return err
		}
		eventID = t.EventID
		// lock order matches PurchaseTicket: event first, then ticket
		if _, err := tx.Events().GetForUpdate(ctx, t.EventID); err != nil {
			return err
		}
		if err := tx.Tickets().Delete(ctx, ticketID); err != nil {
			return err
		}
		_, err = resync(ctx, tx, t.EventID)
		return err
	})
	if err != nil {
		return apperr.Persistence("delete ticket", err)
	}
	s.Log.WithField("event_id", eventID).WithField("ticket_id", ticketID).Info("ticket deleted")
	return nil
}

// ResyncSoldCount rebuilds one event's cached sold count from the ledger.
func (s *Service) ResyncSoldCount(ctx context.Context, eventID uint64) (int, error) {
	var sold int
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Events().GetForUpdate(ctx, eventID); err != nil {
			return err
		}
		var err error
		sold, err = resync(ctx, tx, eventID)
		return err
	})
	return sold, apperr.Persistence("resync event", err)
}

// ResyncReport summarises a ResyncAll run.
type ResyncReport struct {
	Events    int `json:"events"`
	Corrected int `json:"corrected"`
}

// ResyncAll rebuilds every event's cache, archived ones included.  It runs
// on startup and from the admin API.  Each event is its own transaction so
// a failure part way leaves the earlier events fixed.
func (s *Service) ResyncAll(ctx context.Context) (ResyncReport, error) {
	events, err := s.Store.Events().List(ctx, true)
	if err != nil {
		return ResyncReport{}, apperr.Persistence("list events", err)
	}
	var rep ResyncReport
	for _, ev := range events {
		sold, err := s.ResyncSoldCount(ctx, ev.ID)
		if err != nil {
			return rep, err
		}
		rep.Events++
		if sold != ev.TicketsSold {
			rep.Corrected++
			s.Log.WithField("event_id", ev.ID).
				WithField("cached", ev.TicketsSold).
				WithField("ledger", sold).
				Warn("tickets_sold drifted from ledger, corrected")
		}
	}
	return rep, nil
}

// ListTickets returns an event's ledger with per-ticket used counts.
func (s *Service) ListTickets(ctx context.Context, eventID uint64) ([]model.TicketWithUsage, error) {
	if _, err := s.Store.Events().Get(ctx, eventID); err != nil {
		return nil, apperr.Persistence("load event", err)
	}
	out, err := s.Store.Tickets().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperr.Persistence("list tickets", err)
	}
	return out, nil
}
