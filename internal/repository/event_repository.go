package repository

import (
	"context"
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
)

// EventRepo persists events.  Times are stored as UTC DATETIME and scanned
// back into time.Time thanks to parseTime=true in the DSN.
type EventRepo struct{ q querier }

const eventColumns = `id, name, description, event_date, price_cents, capacity, archived, tickets_sold, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Date, &e.PriceCents, &e.Capacity,
		&e.Archived, &e.TicketsSold, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// Create inserts the event and reads back the DB-populated timestamps.
// tickets_sold always starts at zero regardless of the caller's value.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const q = `INSERT INTO events (name, description, event_date, price_cents, capacity, archived) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, e.Name, e.Description, e.Date.UTC(), e.PriceCents, e.Capacity, e.Archived)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.Get(ctx, uint64(id))
	if err != nil {
		return err
	}
	*e = fresh
	return nil
}

func (r *EventRepo) Get(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	return e, translate(err)
}

// GetForUpdate takes an exclusive lock on the event row; every purchase for
// the event queues behind it until the transaction ends.
func (r *EventRepo) GetForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id))
	return e, translate(err)
}

func (r *EventRepo) List(ctx context.Context, includeArchived bool) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	if !includeArchived {
		q += ` WHERE archived = 0`
	}
	q += ` ORDER BY event_date ASC, id ASC`
	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update writes the admin-editable columns.  tickets_sold is deliberately
// absent: only SetTicketsSold may write it.
func (r *EventRepo) Update(ctx context.Context, e model.Event) error {
	const q = `UPDATE events SET name = ?, description = ?, event_date = ?, price_cents = ?, capacity = ?, archived = ?, updated_at = ? WHERE id = ?`
	res, err := r.q.ExecContext(ctx, q, e.Name, e.Description, e.Date.UTC(), e.PriceCents, e.Capacity, e.Archived, time.Now().UTC(), e.ID)
	return mustAffect(res, err)
}

// Delete removes the event; tickets and redemptions go with it through
// ON DELETE CASCADE.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return mustAffect(res, err)
}

// SetTicketsSold overwrites the cached sold count.  The DSN sets
// clientFoundRows, so an unchanged value still counts as a matched row.
func (r *EventRepo) SetTicketsSold(ctx context.Context, id uint64, sold int) error {
	res, err := r.q.ExecContext(ctx, `UPDATE events SET tickets_sold = ? WHERE id = ?`, sold, id)
	return mustAffect(res, err)
}
