package memory

import (
	"context"
	"sort"
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
)

type dragRepo struct{ v *view }

func (r dragRepo) Create(_ context.Context, d *model.Drag) error {
	return r.v.write("drags.create", func(st *state, now time.Time) error {
		d.ID = st.nextID()
		d.CreatedAt = now
		st.drags[d.ID] = *d
		return nil
	})
}

func (r dragRepo) Get(_ context.Context, id uint64) (model.Drag, error) {
	var out model.Drag
	err := r.v.read(func(st *state) error {
		d, ok := st.drags[id]
		if !ok {
			return store.ErrNotFound
		}
		out = d
		return nil
	})
	return out, err
}

func (r dragRepo) List(_ context.Context) ([]model.Drag, error) {
	var out []model.Drag
	err := r.v.read(func(st *state) error {
		for _, d := range st.drags {
			out = append(out, d)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r dragRepo) Update(_ context.Context, d model.Drag) error {
	return r.v.write("drags.update", func(st *state, _ time.Time) error {
		cur, ok := st.drags[d.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Name, cur.Description, cur.Instagram = d.Name, d.Description, d.Instagram
		st.drags[d.ID] = cur
		return nil
	})
}

// Delete mirrors the schema: items cascade, sales keep their snapshot with
// the drag reference nulled.
func (r dragRepo) Delete(_ context.Context, id uint64) error {
	return r.v.write("drags.delete", func(st *state, _ time.Time) error {
		if _, ok := st.drags[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.drags, id)
		for iid, it := range st.items {
			if it.DragID != nil && *it.DragID == id {
				delete(st.items, iid)
				detachItem(st, iid)
			}
		}
		for sid, s := range st.sales {
			if s.DragID != nil && *s.DragID == id {
				s.DragID = nil
				st.sales[sid] = s
			}
		}
		return nil
	})
}

type itemRepo struct{ v *view }

func sameSeller(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r itemRepo) Create(_ context.Context, it *model.MerchItem) error {
	return r.v.write("merch_items.create", func(st *state, now time.Time) error {
		if it.DragID != nil {
			if _, ok := st.drags[*it.DragID]; !ok {
				return store.ErrNotFound
			}
		}
		it.ID = st.nextID()
		it.CreatedAt = now
		st.items[it.ID] = *it
		return nil
	})
}

func (r itemRepo) Get(_ context.Context, id uint64) (model.MerchItem, error) {
	var out model.MerchItem
	err := r.v.read(func(st *state) error {
		it, ok := st.items[id]
		if !ok {
			return store.ErrNotFound
		}
		out = it
		return nil
	})
	return out, err
}

func (r itemRepo) ListBySeller(_ context.Context, dragID *uint64) ([]model.MerchItem, error) {
	var out []model.MerchItem
	err := r.v.read(func(st *state) error {
		for _, it := range st.items {
			if sameSeller(it.DragID, dragID) {
				out = append(out, it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r itemRepo) Update(_ context.Context, it model.MerchItem) error {
	return r.v.write("merch_items.update", func(st *state, _ time.Time) error {
		cur, ok := st.items[it.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Name, cur.PriceCents = it.Name, it.PriceCents
		st.items[it.ID] = cur
		return nil
	})
}

func (r itemRepo) Delete(_ context.Context, id uint64) error {
	return r.v.write("merch_items.delete", func(st *state, _ time.Time) error {
		if _, ok := st.items[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.items, id)
		detachItem(st, id)
		return nil
	})
}

func (r itemRepo) DeleteByDrag(_ context.Context, dragID uint64) (int64, error) {
	var n int64
	err := r.v.write("merch_items.delete_by_drag", func(st *state, _ time.Time) error {
		for id, it := range st.items {
			if it.DragID != nil && *it.DragID == dragID {
				delete(st.items, id)
				detachItem(st, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func detachItem(st *state, itemID uint64) int64 {
	var n int64
	for sid, s := range st.sales {
		if s.ItemID != nil && *s.ItemID == itemID {
			s.ItemID = nil
			st.sales[sid] = s
			n++
		}
	}
	return n
}

type saleRepo struct{ v *view }

func (r saleRepo) Create(_ context.Context, s *model.MerchSale) error {
	return r.v.write("merch_sales.create", func(st *state, now time.Time) error {
		if _, ok := st.sales[s.SaleID]; ok {
			return store.ErrDuplicate
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		st.sales[s.SaleID] = *s
		return nil
	})
}

func (r saleRepo) Get(_ context.Context, saleID string) (model.MerchSale, error) {
	var out model.MerchSale
	err := r.v.read(func(st *state) error {
		s, ok := st.sales[saleID]
		if !ok {
			return store.ErrNotFound
		}
		out = s
		return nil
	})
	return out, err
}

func (r saleRepo) GetForUpdate(ctx context.Context, saleID string) (model.MerchSale, error) {
	return r.Get(ctx, saleID)
}

func (r saleRepo) List(_ context.Context, f model.SaleFilter) ([]model.MerchSale, error) {
	var out []model.MerchSale
	err := r.v.read(func(st *state) error {
		for _, s := range st.sales {
			if f.WebOnly && s.DragID != nil {
				continue
			}
			if f.DragID != nil && (s.DragID == nil || *s.DragID != *f.DragID) {
				continue
			}
			if f.Status != "" && s.Status != f.Status {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].SaleID < out[j].SaleID
	})
	return out, err
}

func (r saleRepo) MarkDelivered(_ context.Context, saleID string, at time.Time) (bool, error) {
	changed := false
	err := r.v.write("merch_sales.mark_delivered", func(st *state, _ time.Time) error {
		s, ok := st.sales[saleID]
		if !ok {
			return store.ErrNotFound
		}
		if s.Status != model.SaleStatusPending {
			return nil
		}
		ts := at
		s.Status = model.SaleStatusDelivered
		s.DeliveredAt = &ts
		st.sales[saleID] = s
		changed = true
		return nil
	})
	return changed, err
}

func (r saleRepo) DeleteByDrag(_ context.Context, dragID uint64) (int64, error) {
	var n int64
	err := r.v.write("merch_sales.delete_by_drag", func(st *state, _ time.Time) error {
		for id, s := range st.sales {
			if s.DragID != nil && *s.DragID == dragID {
				delete(st.sales, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r saleRepo) DetachDrag(_ context.Context, dragID uint64) (int64, error) {
	var n int64
	err := r.v.write("merch_sales.detach_drag", func(st *state, _ time.Time) error {
		for id, s := range st.sales {
			if s.DragID != nil && *s.DragID == dragID {
				s.DragID = nil
				st.sales[id] = s
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r saleRepo) DetachItem(_ context.Context, itemID uint64) (int64, error) {
	var n int64
	err := r.v.write("merch_sales.detach_item", func(st *state, _ time.Time) error {
		n = detachItem(st, itemID)
		return nil
	})
	return n, err
}
