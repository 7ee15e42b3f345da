package merch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/store"
)

// DragInput holds the editable fields of a drag performer.
type DragInput struct {
	Name        string
	Description string
	Instagram   string
}

func (in DragInput) validate(prefix string, verr *apperr.ValidationError) {
	if strings.TrimSpace(in.Name) == "" {
		verr.Add(prefix+"name", "is required")
	}
}

func (in DragInput) apply(d *model.Drag) {
	d.Name = strings.TrimSpace(in.Name)
	d.Description = in.Description
	d.Instagram = strings.TrimPrefix(strings.TrimSpace(in.Instagram), "@")
}

func (s *Service) CreateDrag(ctx context.Context, in DragInput) (model.Drag, error) {
	verr := &apperr.ValidationError{}
	in.validate("", verr)
	if err := verr.OrNil(); err != nil {
		return model.Drag{}, err
	}
	var d model.Drag
	in.apply(&d)
	if err := s.Store.Drags().Create(ctx, &d); err != nil {
		return model.Drag{}, apperr.Persistence("create drag", err)
	}
	return d, nil
}

// UpdateDrag edits a drag.  Past sales keep the name they were sold under.
func (s *Service) UpdateDrag(ctx context.Context, id uint64, in DragInput) (model.Drag, error) {
	verr := &apperr.ValidationError{}
	in.validate("", verr)
	if err := verr.OrNil(); err != nil {
		return model.Drag{}, err
	}
	d, err := s.Store.Drags().Get(ctx, id)
	if err != nil {
		return model.Drag{}, apperr.Persistence("load drag", err)
	}
	in.apply(&d)
	if err := s.Store.Drags().Update(ctx, d); err != nil {
		return model.Drag{}, apperr.Persistence("update drag", err)
	}
	return d, nil
}

func (s *Service) GetDrag(ctx context.Context, id uint64) (model.Drag, error) {
	d, err := s.Store.Drags().Get(ctx, id)
	return d, apperr.Persistence("load drag", err)
}

func (s *Service) ListDrags(ctx context.Context) ([]model.Drag, error) {
	out, err := s.Store.Drags().List(ctx)
	return out, apperr.Persistence("list drags", err)
}

// DragDeletion reports what DeleteDrag removed or detached.
type DragDeletion struct {
	ItemsDeleted  int64 `json:"items_deleted"`
	SalesDeleted  int64 `json:"sales_deleted"`
	SalesDetached int64 `json:"sales_detached"`
}

// DeleteDrag removes a drag and its catalog items.  Its sales are kept
// with the drag reference cleared (the name snapshot survives) unless
// cascadeSales is set, in which case they are deleted too.
func (s *Service) DeleteDrag(ctx context.Context, id uint64, cascadeSales bool) (DragDeletion, error) {
	var out DragDeletion
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = deleteDrag(ctx, tx, id, cascadeSales)
		return err
	})
	if err != nil {
		return DragDeletion{}, apperr.Persistence("delete drag", err)
	}
	s.Log.WithField("drag_id", id).
		WithField("cascade_sales", cascadeSales).
		WithField("items_deleted", out.ItemsDeleted).
		WithField("sales_deleted", out.SalesDeleted).
		Info("drag deleted")
	return out, nil
}

func deleteDrag(ctx context.Context, tx store.Tx, id uint64, cascadeSales bool) (DragDeletion, error) {
	var (
		out DragDeletion
		err error
	)
	if _, err = tx.Drags().Get(ctx, id); err != nil {
		return out, err
	}
	if cascadeSales {
		out.SalesDeleted, err = tx.MerchSales().DeleteByDrag(ctx, id)
	} else {
		out.SalesDetached, err = tx.MerchSales().DetachDrag(ctx, id)
	}
	if err != nil {
		return out, err
	}
	if out.ItemsDeleted, err = tx.MerchItems().DeleteByDrag(ctx, id); err != nil {
		return out, err
	}
	return out, tx.Drags().Delete(ctx, id)
}

// DragSyncResult reports what SyncDrags changed.
type DragSyncResult struct {
	Created int          `json:"created"`
	Updated int          `json:"updated"`
	Deleted int          `json:"deleted"`
	Drags   []model.Drag `json:"drags"`
}

// SyncDrags replaces the drag list in one transaction: known ids are
// updated, others created and missing drags deleted.  Deletions keep sale
// history.
func (s *Service) SyncDrags(ctx context.Context, drags []model.Drag) (DragSyncResult, error) {
	verr := &apperr.ValidationError{}
	for i, d := range drags {
		toInput(d).validate(fmt.Sprintf("drags[%d].", i), verr)
	}
	if err := verr.OrNil(); err != nil {
		return DragSyncResult{}, err
	}

	var res DragSyncResult
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		current, err := tx.Drags().List(ctx)
		if err != nil {
			return err
		}
		known := make(map[uint64]bool, len(current))
		for _, d := range current {
			known[d.ID] = true
		}

		keep := make(map[uint64]bool, len(drags))
		for _, in := range drags {
			if known[in.ID] && !keep[in.ID] {
				d := model.Drag{ID: in.ID}
				toInput(in).apply(&d)
				if err := tx.Drags().Update(ctx, d); err != nil {
					return err
				}
				keep[in.ID] = true
				res.Updated++
				continue
			}
			var d model.Drag
			toInput(in).apply(&d)
			if err := tx.Drags().Create(ctx, &d); err != nil {
				return err
			}
			keep[d.ID] = true
			res.Created++
		}

		for _, d := range current {
			if keep[d.ID] {
				continue
			}
			if _, err := deleteDrag(ctx, tx, d.ID, false); err != nil {
				return err
			}
			res.Deleted++
		}
		res.Drags, err = tx.Drags().List(ctx)
		return err
	})
	if err != nil {
		return DragSyncResult{}, apperr.Persistence("sync drags", err)
	}
	s.Log.WithField("created", res.Created).
		WithField("updated", res.Updated).
		WithField("deleted", res.Deleted).
		Info("drags synced")
	return res, nil
}

func toInput(d model.Drag) DragInput {
	return DragInput{Name: d.Name, Description: d.Description, Instagram: d.Instagram}
}

// ItemInput holds the editable fields of a catalog item.  DragID is only
// read on create; an item never changes seller.
type ItemInput struct {
	DragID     *uint64
	Name       string
	PriceCents int64
}

func (in ItemInput) validate() error {
	verr := &apperr.ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "is required")
	}
	if in.PriceCents < 0 {
		verr.Add("price_cents", "must not be negative")
	}
	return verr.OrNil()
}

func (s *Service) CreateItem(ctx context.Context, in ItemInput) (model.MerchItem, error) {
	if err := in.validate(); err != nil {
		return model.MerchItem{}, err
	}
	if in.DragID != nil {
		if _, err := s.Store.Drags().Get(ctx, *in.DragID); err != nil {
			return model.MerchItem{}, apperr.Persistence("load drag", err)
		}
	}
	it := model.MerchItem{DragID: in.DragID, Name: strings.TrimSpace(in.Name), PriceCents: in.PriceCents}
	if err := s.Store.MerchItems().Create(ctx, &it); err != nil {
		return model.MerchItem{}, apperr.Persistence("create merch item", err)
	}
	return it, nil
}

func (s *Service) UpdateItem(ctx context.Context, id uint64, in ItemInput) (model.MerchItem, error) {
	if err := in.validate(); err != nil {
		return model.MerchItem{}, err
	}
	it, err := s.Store.MerchItems().Get(ctx, id)
	if err != nil {
		return model.MerchItem{}, apperr.Persistence("load merch item", err)
	}
	it.Name, it.PriceCents = strings.TrimSpace(in.Name), in.PriceCents
	if err := s.Store.MerchItems().Update(ctx, it); err != nil {
		return model.MerchItem{}, apperr.Persistence("update merch item", err)
	}
	return it, nil
}

// DeleteItem removes a catalog item.  Its sales keep their snapshot.
func (s *Service) DeleteItem(ctx context.Context, id uint64) error {
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.MerchSales().DetachItem(ctx, id); err != nil {
			return err
		}
		return tx.MerchItems().Delete(ctx, id)
	})
	return apperr.Persistence("delete merch item", err)
}

func (s *Service) GetItem(ctx context.Context, id uint64) (model.MerchItem, error) {
	it, err := s.Store.MerchItems().Get(ctx, id)
	return it, apperr.Persistence("load merch item", err)
}

// ListItems lists a drag's items, or house items when dragID is nil.  An
// unknown drag is reported as not found rather than as an empty catalog.
func (s *Service) ListItems(ctx context.Context, dragID *uint64) ([]model.MerchItem, error) {
	if dragID != nil {
		if _, err := s.Store.Drags().Get(ctx, *dragID); err != nil {
			return nil, apperr.Persistence("load drag", err)
		}
	}
	out, err := s.Store.MerchItems().ListBySeller(ctx, dragID)
	return out, apperr.Persistence("list merch items", err)
}
