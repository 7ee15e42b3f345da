// Package merch sells drag-performer and house ("web") merchandise and keeps
// the merch sale ledger.  Sales snapshot the item and seller at purchase
// time; catalog changes never rewrite history.
package merch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/buyer"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/queue"
	"github.com/rodetes-party/rodetes/internal/store"
)

type Service struct {
	Store          store.Store
	Publisher      queue.Publisher
	Log            logrus.FieldLogger
	AllowedDomains []string

	Now   func() time.Time
	NewID func() string
}

// NewService panics if the store is nil.
func NewService(st store.Store, pub queue.Publisher, log logrus.FieldLogger, allowedDomains []string) *Service {
	if st == nil {
		panic("nil store passed to merch.NewService")
	}
	if pub == nil {
		pub = queue.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		Store:          st,
		Publisher:      pub,
		Log:            log,
		AllowedDomains: allowedDomains,
		Now:            func() time.Time { return time.Now().UTC() },
		NewID:          uuid.NewString,
	}
}

// PurchaseRequest is a public merch order.  DragID nil means house merch.
type PurchaseRequest struct {
	ItemID   uint64
	DragID   *uint64
	Name     string
	Surname  string
	Email    string
	Quantity int
}

// PurchaseMerch records a PENDING sale.  There is no stock limit.
func (s *Service) PurchaseMerch(ctx context.Context, req PurchaseRequest) (model.MerchSale, error) {
	b, err := buyer.Validate(buyer.Buyer{Name: req.Name, Surname: req.Surname, Email: req.Email}, req.Quantity, s.AllowedDomains)
	if err != nil {
		return model.MerchSale{}, err
	}

	now := s.Now()
	var sale model.MerchSale
	err = s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		item, err := tx.MerchItems().Get(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if !sameSeller(item.DragID, req.DragID) {
			return apperr.Invalid("item_id", "does not belong to the selected seller")
		}
		sellerName := model.WebSellerName
		if item.DragID != nil {
			d, err := tx.Drags().Get(ctx, *item.DragID)
			if err != nil {
				return err
			}
			sellerName = d.Name
		}

		itemID := item.ID
		sale = model.MerchSale{
			SaleID:         s.NewID(),
			ItemID:         &itemID,
			ItemName:       item.Name,
			ItemPriceCents: item.PriceCents,
			DragID:         item.DragID,
			DragName:       sellerName,
			Quantity:       req.Quantity,
			BuyerName:      b.Name,
			BuyerSurname:   b.Surname,
			BuyerEmail:     b.Email,
			Status:         model.SaleStatusPending,
			CreatedAt:      now.Truncate(time.Second),
		}
		return tx.MerchSales().Create(ctx, &sale)
	})
	if err != nil {
		return model.MerchSale{}, apperr.Persistence("purchase merch", err)
	}

	s.Log.WithField("sale_id", sale.SaleID).WithField("seller", sale.DragName).Info("merch sold")
	s.publish(ctx, queue.MerchSoldEvent{
		SaleID:     sale.SaleID,
		ItemName:   sale.ItemName,
		DragName:   sale.DragName,
		Quantity:   sale.Quantity,
		TotalCents: sale.TotalCents(),
		Email:      sale.BuyerEmail,
		SoldAt:     now.Format(time.RFC3339),
	})
	return sale, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (model.MerchSale, error) {
	sale, err := s.Store.MerchSales().Get(ctx, saleID)
	return sale, apperr.Persistence("load merch sale", err)
}

// ListSales lists sales newest first.
func (s *Service) ListSales(ctx context.Context, f model.SaleFilter) ([]model.MerchSale, error) {
	if f.Status != "" && f.Status != model.SaleStatusPending && f.Status != model.SaleStatusDelivered {
		return nil, apperr.Invalid("status", "must be PENDING or DELIVERED")
	}
	if f.WebOnly && f.DragID != nil {
		return nil, apperr.Invalid("drag_id", "cannot be combined with web")
	}
	out, err := s.Store.MerchSales().List(ctx, f)
	return out, apperr.Persistence("list merch sales", err)
}

func sameSeller(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Service) publish(ctx context.Context, ev queue.Event) {
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).WithField("queue", ev.RoutingKey()).Warn("publish failed")
	}
}
