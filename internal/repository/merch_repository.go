package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
)

// nullID converts an optional foreign key for the driver.
func nullID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func ptrID(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}

// DragRepo persists drag performers.
type DragRepo struct{ q querier }

func (r *DragRepo) Create(ctx context.Context, d *model.Drag) error {
	res, err := r.q.ExecContext(ctx, `INSERT INTO drags (name, description, instagram) VALUES (?, ?, ?)`, d.Name, d.Description, d.Instagram)
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
	*d = fresh
	return nil
}

func (r *DragRepo) Get(ctx context.Context, id uint64) (model.Drag, error) {
	var d model.Drag
	err := r.q.QueryRowContext(ctx, `SELECT id, name, description, instagram, created_at FROM drags WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Description, &d.Instagram, &d.CreatedAt)
	return d, translate(err)
}

func (r *DragRepo) List(ctx context.Context) ([]model.Drag, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, description, instagram, created_at FROM drags ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Drag
	for rows.Next() {
		var d model.Drag
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.Instagram, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DragRepo) Update(ctx context.Context, d model.Drag) error {
	res, err := r.q.ExecContext(ctx, `UPDATE drags SET name = ?, description = ?, instagram = ? WHERE id = ?`, d.Name, d.Description, d.Instagram, d.ID)
	return mustAffect(res, err)
}

// Delete removes the drag.  merch_items cascade; merch_sales.drag_id is
// ON DELETE SET NULL so order history survives.
func (r *DragRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM drags WHERE id = ?`, id)
	return mustAffect(res, err)
}

// MerchItemRepo persists the merch catalog.
type MerchItemRepo struct{ q querier }

func scanItem(row interface{ Scan(...any) error }) (model.MerchItem, error) {
	var it model.MerchItem
	var drag sql.NullInt64
	err := row.Scan(&it.ID, &drag, &it.Name, &it.PriceCents, &it.CreatedAt)
	it.DragID = ptrID(drag)
	return it, err
}

func (r *MerchItemRepo) Create(ctx context.Context, it *model.MerchItem) error {
	res, err := r.q.ExecContext(ctx, `INSERT INTO merch_items (drag_id, name, price_cents) VALUES (?, ?, ?)`, nullID(it.DragID), it.Name, it.PriceCents)
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
	*it = fresh
	return nil
}

func (r *MerchItemRepo) Get(ctx context.Context, id uint64) (model.MerchItem, error) {
	it, err := scanItem(r.q.QueryRowContext(ctx, `SELECT id, drag_id, name, price_cents, created_at FROM merch_items WHERE id = ?`, id))
	return it, translate(err)
}

func (r *MerchItemRepo) ListBySeller(ctx context.Context, dragID *uint64) ([]model.MerchItem, error) {
	q := `SELECT id, drag_id, name, price_cents, created_at FROM merch_items WHERE drag_id IS NULL ORDER BY id ASC`
	args := []any{}
	if dragID != nil {
		q = `SELECT id, drag_id, name, price_cents, created_at FROM merch_items WHERE drag_id = ? ORDER BY id ASC`
		args = append(args, *dragID)
	}
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MerchItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *MerchItemRepo) Update(ctx context.Context, it model.MerchItem) error {
	res, err := r.q.ExecContext(ctx, `UPDATE merch_items SET name = ?, price_cents = ? WHERE id = ?`, it.Name, it.PriceCents, it.ID)
	return mustAffect(res, err)
}

func (r *MerchItemRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM merch_items WHERE id = ?`, id)
	return mustAffect(res, err)
}

func (r *MerchItemRepo) DeleteByDrag(ctx context.Context, dragID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM merch_items WHERE drag_id = ?`, dragID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MerchSaleRepo is the MySQL merch sale ledger.
type MerchSaleRepo struct{ q querier }

const saleColumns = `sale_id, item_id, item_name, item_price_cents, drag_id, drag_name, quantity,
					 buyer_name, buyer_surname, buyer_email, status, created_at, delivered_at`

func scanSale(row interface{ Scan(...any) error }) (model.MerchSale, error) {
	var (
		s         model.MerchSale
		item      sql.NullInt64
		drag      sql.NullInt64
		delivered sql.NullTime
		status    string
	)
	err := row.Scan(&s.SaleID, &item, &s.ItemName, &s.ItemPriceCents, &drag, &s.DragName, &s.Quantity,
		&s.BuyerName, &s.BuyerSurname, &s.BuyerEmail, &status, &s.CreatedAt, &delivered)
	s.ItemID = ptrID(item)
	s.DragID = ptrID(drag)
	s.Status = model.SaleStatus(status)
	if delivered.Valid {
		t := delivered.Time
		s.DeliveredAt = &t
	}
	return s, err
}

func (r *MerchSaleRepo) Create(ctx context.Context, s *model.MerchSale) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	const q = `INSERT INTO merch_sales (` + saleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var delivered any
	if s.DeliveredAt != nil {
		delivered = s.DeliveredAt.UTC()
	}
	_, err := r.q.ExecContext(ctx, q, s.SaleID, nullID(s.ItemID), s.ItemName, s.ItemPriceCents, nullID(s.DragID), s.DragName,
		s.Quantity, s.BuyerName, s.BuyerSurname, s.BuyerEmail, string(s.Status), s.CreatedAt, delivered)
	return translate(err)
}

func (r *MerchSaleRepo) Get(ctx context.Context, saleID string) (model.MerchSale, error) {
	s, err := scanSale(r.q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM merch_sales WHERE sale_id = ?`, saleID))
	return s, translate(err)
}

func (r *MerchSaleRepo) GetForUpdate(ctx context.Context, saleID string) (model.MerchSale, error) {
	s, err := scanSale(r.q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM merch_sales WHERE sale_id = ? FOR UPDATE`, saleID))
	return s, translate(err)
}

func (r *MerchSaleRepo) List(ctx context.Context, f model.SaleFilter) ([]model.MerchSale, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case f.WebOnly:
		where = append(where, "drag_id IS NULL")
	case f.DragID != nil:
		where = append(where, "drag_id = ?")
		args = append(args, *f.DragID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	q := `SELECT ` + saleColumns + ` FROM merch_sales`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, sale_id ASC`
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MerchSale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkDelivered is a compare-and-set on status, so it can never move a
// sale backwards or deliver it twice.
func (r *MerchSaleRepo) MarkDelivered(ctx context.Context, saleID string, at time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE merch_sales SET status = 'DELIVERED', delivered_at = ? WHERE sale_id = ? AND status = 'PENDING'`,
		at.UTC(), saleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := r.Get(ctx, saleID); err != nil {
			return false, err
		}
	}
	return n == 1, nil
}

func (r *MerchSaleRepo) DeleteByDrag(ctx context.Context, dragID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM merch_sales WHERE drag_id = ?`, dragID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *MerchSaleRepo) DetachDrag(ctx context.Context, dragID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE merch_sales SET drag_id = NULL WHERE drag_id = ?`, dragID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *MerchSaleRepo) DetachItem(ctx context.Context, itemID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `UPDATE merch_sales SET item_id = NULL WHERE item_id = ?`, itemID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
