package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
)

// TicketRepo is the MySQL ticket ledger.
type TicketRepo struct{ q querier }

const ticketColumns = `ticket_id, event_id, name, surname, email, quantity, created_at`

func scanTicket(row interface{ Scan(...any) error }) (model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.TicketID, &t.EventID, &t.Name, &t.Surname, &t.Email, &t.Quantity, &t.CreatedAt)
	return t, err
}

func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	const q = `INSERT INTO tickets (` + ticketColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, q, t.TicketID, t.EventID, t.Name, t.Surname, t.Email, t.Quantity, t.CreatedAt)
	return translate(err)
}

func (r *TicketRepo) Get(ctx context.Context, ticketID string) (model.Ticket, error) {
	t, err := scanTicket(r.q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = ?`, ticketID))
	return t, translate(err)
}

// GetForUpdate locks the ticket row so two confirmations of the same ticket
// cannot both read the same used count.
func (r *TicketRepo) GetForUpdate(ctx context.Context, ticketID string) (model.Ticket, error) {
	t, err := scanTicket(r.q.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = ? FOR UPDATE`, ticketID))
	return t, translate(err)
}

// FindByEventAndEmail relies on the idx_tickets_event_email index.  The
// email is expected lowercased by the caller; the column collation is case
// insensitive anyway.
func (r *TicketRepo) FindByEventAndEmail(ctx context.Context, eventID uint64, email string) (model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = ? AND email = ? ORDER BY created_at ASC LIMIT 1`
	t, err := scanTicket(r.q.QueryRowContext(ctx, q, eventID, email))
	return t, translate(err)
}

// SumQuantity is the ground truth for an event's sold count.
func (r *TicketRepo) SumQuantity(ctx context.Context, eventID uint64) (int, error) {
	var sum int
	err := r.q.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM tickets WHERE event_id = ?`, eventID).Scan(&sum)
	return sum, err
}

func (r *TicketRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.TicketWithUsage, error) {
	const q = `SELECT t.ticket_id, t.event_id, t.name, t.surname, t.email, t.quantity, t.created_at, COALESCE(r.used_count, 0)
			   FROM tickets t
			   LEFT JOIN ticket_redemptions r ON r.ticket_id = t.ticket_id
			   WHERE t.event_id = ?
			   ORDER BY t.created_at ASC, t.ticket_id ASC`
	rows, err := r.q.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TicketWithUsage
	for rows.Next() {
		var t model.TicketWithUsage
		if err := rows.Scan(&t.TicketID, &t.EventID, &t.Name, &t.Surname, &t.Email, &t.Quantity, &t.CreatedAt, &t.UsedCount); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Delete removes the ticket; its redemption row cascades.
func (r *TicketRepo) Delete(ctx context.Context, ticketID string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM tickets WHERE ticket_id = ?`, ticketID)
	return mustAffect(res, err)
}

// RedemptionRepo is the MySQL redemption counter.
type RedemptionRepo struct{ q querier }

func (r *RedemptionRepo) Get(ctx context.Context, ticketID string) (model.Redemption, error) {
	rec := model.Redemption{TicketID: ticketID}
	var last sql.NullTime
	err := r.q.QueryRowContext(ctx,
		`SELECT used_count, last_used_at FROM ticket_redemptions WHERE ticket_id = ?`, ticketID,
	).Scan(&rec.UsedCount, &last)
	if err == sql.ErrNoRows {
		return rec, nil
	}
	if err != nil {
		return rec, err
	}
	if last.Valid {
		t := last.Time
		rec.LastUsedAt = &t
	}
	return rec, nil
}

// Add upserts the counter.  Callers hold the ticket row lock, which is what
// keeps the check-then-increment in the scan service atomic.
func (r *RedemptionRepo) Add(ctx context.Context, ticketID string, n int, at time.Time) error {
	const q = `INSERT INTO ticket_redemptions (ticket_id, used_count, last_used_at) VALUES (?, ?, ?)
			   ON DUPLICATE KEY UPDATE used_count = used_count + VALUES(used_count), last_used_at = VALUES(last_used_at)`
	_, err := r.q.ExecContext(ctx, q, ticketID, n, at.UTC())
	return translate(err)
}
