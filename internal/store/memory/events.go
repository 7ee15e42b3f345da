package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
)

type eventRepo struct{ v *view }

func (r eventRepo) Create(_ context.Context, e *model.Event) error {
	return r.v.write("events.create", func(st *state, now time.Time) error {
		e.ID = st.nextID()
		e.TicketsSold = 0
		e.CreatedAt, e.UpdatedAt = now, now
		st.events[e.ID] = *e
		return nil
	})
}

func (r eventRepo) Get(_ context.Context, id uint64) (model.Event, error) {
	var out model.Event
	err := r.v.read(func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return store.ErrNotFound
		}
		out = e
		return nil
	})
	return out, err
}

// GetForUpdate needs no row lock: transactions are already serialised.
func (r eventRepo) GetForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	return r.Get(ctx, id)
}

func (r eventRepo) List(_ context.Context, includeArchived bool) ([]model.Event, error) {
	var out []model.Event
	err := r.v.read(func(st *state) error {
		for _, e := range st.events {
			if e.Archived && !includeArchived {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r eventRepo) Update(_ context.Context, e model.Event) error {
	return r.v.write("events.update", func(st *state, now time.Time) error {
		cur, ok := st.events[e.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Name = e.Name
		cur.Description = e.Description
		cur.Date = e.Date
		cur.PriceCents = e.PriceCents
		cur.Capacity = e.Capacity
		cur.Archived = e.Archived
		cur.UpdatedAt = now
		st.events[e.ID] = cur
		return nil
	})
}

// Delete mirrors the ON DELETE CASCADE of tickets and their redemptions.
func (r eventRepo) Delete(_ context.Context, id uint64) error {
	return r.v.write("events.delete", func(st *state, _ time.Time) error {
		if _, ok := st.events[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.events, id)
		for tid, t := range st.tickets {
			if t.EventID == id {
				delete(st.tickets, tid)
				delete(st.redemptions, tid)
			}
		}
		return nil
	})
}

func (r eventRepo) SetTicketsSold(_ context.Context, id uint64, sold int) error {
	return r.v.write("events.set_tickets_sold", func(st *state, _ time.Time) error {
		e, ok := st.events[id]
		if !ok {
			return store.ErrNotFound
		}
		e.TicketsSold = sold
		st.events[id] = e
		return nil
	})
}

type ticketRepo struct{ v *view }

func (r ticketRepo) Create(_ context.Context, t *model.Ticket) error {
	return r.v.write("tickets.create", func(st *state, now time.Time) error {
		if _, ok := st.events[t.EventID]; !ok {
			return store.ErrNotFound
		}
		if _, ok := st.tickets[t.TicketID]; ok {
			return store.ErrDuplicate
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		st.tickets[t.TicketID] = *t
		return nil
	})
}

func (r ticketRepo) Get(_ context.Context, ticketID string) (model.Ticket, error) {
	var out model.Ticket
	err := r.v.read(func(st *state) error {
		t, ok := st.tickets[ticketID]
		if !ok {
			return store.ErrNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (r ticketRepo) GetForUpdate(ctx context.Context, ticketID string) (model.Ticket, error) {
	return r.Get(ctx, ticketID)
}

func (r ticketRepo) FindByEventAndEmail(_ context.Context, eventID uint64, email string) (model.Ticket, error) {
	var out model.Ticket
	err := r.v.read(func(st *state) error {
		for _, t := range st.tickets {
			if t.EventID == eventID && strings.EqualFold(t.Email, email) {
				out = t
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r ticketRepo) SumQuantity(_ context.Context, eventID uint64) (int, error) {
	sum := 0
	err := r.v.read(func(st *state) error {
		for _, t := range st.tickets {
			if t.EventID == eventID {
				sum += t.Quantity
			}
		}
		return nil
	})
	return sum, err
}

func (r ticketRepo) ListByEvent(_ context.Context, eventID uint64) ([]model.TicketWithUsage, error) {
	var out []model.TicketWithUsage
	err := r.v.read(func(st *state) error {
		for id, t := range st.tickets {
			if t.EventID == eventID {
				out = append(out, model.TicketWithUsage{Ticket: t, UsedCount: st.redemptions[id].UsedCount})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TicketID < out[j].TicketID
	})
	return out, err
}

func (r ticketRepo) Delete(_ context.Context, ticketID string) error {
	return r.v.write("tickets.delete", func(st *state, _ time.Time) error {
		if _, ok := st.tickets[ticketID]; !ok {
			return store.ErrNotFound
		}
		delete(st.tickets, ticketID)
		delete(st.redemptions, ticketID)
		return nil
	})
}

type redemptionRepo struct{ v *view }

func (r redemptionRepo) Get(_ context.Context, ticketID string) (model.Redemption, error) {
	out := model.Redemption{TicketID: ticketID}
	err := r.v.read(func(st *state) error {
		if rec, ok := st.redemptions[ticketID]; ok {
			out = rec
		}
		return nil
	})
	return out, err
}

func (r redemptionRepo) Add(_ context.Context, ticketID string, n int, at time.Time) error {
	return r.v.write("redemptions.add", func(st *state, _ time.Time) error {
		if _, ok := st.tickets[ticketID]; !ok {
			return store.ErrNotFound
		}
		rec := st.redemptions[ticketID]
		rec.TicketID = ticketID
		rec.UsedCount += n
		ts := at
		rec.LastUsedAt = &ts
		st.redemptions[ticketID] = rec
		return nil
	})
}
