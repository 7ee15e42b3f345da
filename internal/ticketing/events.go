package ticketing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
)

// EventInput holds the admin-editable fields of an event.  The archived
// flag and the sold count are deliberately absent.
type EventInput struct {
	Name        string
	Description string
	Date        time.Time
	PriceCents  int64
	Capacity    int
}

func (in EventInput) validate(prefix string, verr *apperr.ValidationError) {
	if strings.TrimSpace(in.Name) == "" {
		verr.Add(prefix+"name", "is required")
	}
	if in.Date.IsZero() {
		verr.Add(prefix+"date", "is required")
	}
	if in.PriceCents < 0 {
		verr.Add(prefix+"price_cents", "must not be negative")
	}
	if in.Capacity < 0 {
		verr.Add(prefix+"capacity", "must not be negative")
	}
}

func (in EventInput) apply(e *model.Event) {
	e.Name = strings.TrimSpace(in.Name)
	e.Description = in.Description
	e.Date = in.Date.UTC()
	e.PriceCents = in.PriceCents
	e.Capacity = in.Capacity
}

func (s *Service) CreateEvent(ctx context.Context, in EventInput) (model.Event, error) {
	verr := &apperr.ValidationError{}
	in.validate("", verr)
	if err := verr.OrNil(); err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	in.apply(&ev)
	if err := s.Store.Events().Create(ctx, &ev); err != nil {
		return model.Event{}, apperr.Persistence("create event", err)
	}
	s.Log.WithField("event_id", ev.ID).Info("event created")
	return ev, nil
}

// UpdateEvent edits an event.  A bounded capacity may not drop below what
// the ledger has already sold.
func (s *Service) UpdateEvent(ctx context.Context, id uint64, in EventInput) (model.Event, error) {
	verr := &apperr.ValidationError{}
	in.validate("", verr)
	if err := verr.OrNil(); err != nil {
		return model.Event{}, err
	}
	var ev model.Event
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if ev, err = tx.Events().GetForUpdate(ctx, id); err != nil {
			return err
		}
		sold, err := tx.Tickets().SumQuantity(ctx, id)
		if err != nil {
			return err
		}
		if in.Capacity > 0 && in.Capacity < sold {
			return apperr.Invalid("capacity", fmt.Sprintf("must be at least %d, the number of tickets sold", sold))
		}
		in.apply(&ev)
		if err := tx.Events().Update(ctx, ev); err != nil {
			return err
		}
		ev.TicketsSold = sold
		return tx.Events().SetTicketsSold(ctx, id, sold)
	})
	if err != nil {
		return model.Event{}, apperr.Persistence("update event", err)
	}
	return ev, nil
}

// ArchiveEvent closes an event for sale.  Archiving cannot be undone.
func (s *Service) ArchiveEvent(ctx context.Context, id uint64) (model.Event, error) {
	var ev model.Event
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if ev, err = tx.Events().GetForUpdate(ctx, id); err != nil {
			return err
		}
		if ev.Archived {
			return nil
		}
		ev.Archived = true
		return tx.Events().Update(ctx, ev)
	})
	if err != nil {
		return model.Event{}, apperr.Persistence("archive event", err)
	}
	s.Log.WithField("event_id", id).Info("event archived")
	return ev, nil
}

// DeleteEvent removes an event together with its tickets and redemptions.
func (s *Service) DeleteEvent(ctx context.Context, id uint64) error {
	if err := s.Store.Events().Delete(ctx, id); err != nil {
		return apperr.Persistence("delete event", err)
	}
	s.Log.WithField("event_id", id).Info("event deleted")
	return nil
}

func (s *Service) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
	ev, err := s.Store.Events().Get(ctx, id)
	return ev, apperr.Persistence("load event", err)
}

// ListEvents lists events by date.  Archived ones are included on request.
func (s *Service) ListEvents(ctx context.Context, includeArchived bool) ([]model.Event, error) {
	out, err := s.Store.Events().List(ctx, includeArchived)
	return out, apperr.Persistence("list events", err)
}

// SyncResult reports what a SyncEvents call changed.  Events is the full
// list after the sync with fresh sold counts.
type SyncResult struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Deleted int           `json:"deleted"`
	Events  []model.Event `json:"events"`
}

// SyncEvents replaces the event list with events in one transaction: known
// ids are updated, unknown or zero ids are created and events missing from
// the list are deleted with their tickets.  Client supplied TicketsSold
// values are ignored and every surviving event gets a ledger resum.  An
// archived event stays archived even if the incoming copy is not.
func (s *Service) SyncEvents(ctx context.Context, events []model.Event) (SyncResult, error) {
	verr := &apperr.ValidationError{}
	for i, e := range events {
		toInput(e).validate(fmt.Sprintf("events[%d].", i), verr)
	}
	if err := verr.OrNil(); err != nil {
		return SyncResult{}, err
	}

	var res SyncResult
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		current, err := tx.Events().List(ctx, true)
		if err != nil {
			return err
		}
		byID := make(map[uint64]model.Event, len(current))
		for _, e := range current {
			byID[e.ID] = e
		}

		keep := make(map[uint64]bool, len(events))
		for i, in := range events {
			cur, known := byID[in.ID]
			if !known || keep[in.ID] {
				ev := model.Event{Archived: in.Archived}
				toInput(in).apply(&ev)
				if err := tx.Events().Create(ctx, &ev); err != nil {
					return err
				}
				keep[ev.ID] = true
				res.Created++
				continue
			}
			if cur, err = tx.Events().GetForUpdate(ctx, in.ID); err != nil {
				return err
			}
			sold, err := tx.Tickets().SumQuantity(ctx, in.ID)
			if err != nil {
				return err
			}
			if in.Capacity > 0 && in.Capacity < sold {
				return apperr.Invalid(fmt.Sprintf("events[%d].capacity", i),
					fmt.Sprintf("must be at least %d, the number of tickets sold", sold))
			}
			toInput(in).apply(&cur)
			cur.Archived = cur.Archived || in.Archived
			if err := tx.Events().Update(ctx, cur); err != nil {
				return err
			}
			keep[cur.ID] = true
			res.Updated++
		}

		for _, e := range current {
			if keep[e.ID] {
				continue
			}
			if err := tx.Events().Delete(ctx, e.ID); err != nil {
				return err
			}
			res.Deleted++
		}

		for id := range keep {
			if _, err := resync(ctx, tx, id); err != nil {
				return err
			}
		}
		res.Events, err = tx.Events().List(ctx, true)
		return err
	})
	if err != nil {
		return SyncResult{}, apperr.Persistence("sync events", err)
	}
	s.Log.WithField("created", res.Created).
		WithField("updated", res.Updated).
		WithField("deleted", res.Deleted).
		Info("events synced")
	return res, nil
}

func toInput(e model.Event) EventInput {
	return EventInput{Name: e.Name, Description: e.Description, Date: e.Date, PriceCents: e.PriceCents, Capacity: e.Capacity}
}
