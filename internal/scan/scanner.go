// Package scan implements door redemption: a scanned QR payload becomes a
// session that is either rejected outright or waits for the operator to
// confirm or cancel.  Only a confirm touches the ledgers, and it re-checks
// everything inside a row-locked transaction.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/qr"
	"github.com/rodetes-party/rodetes/internal/queue"
	"github.com/rodetes-party/rodetes/internal/store"
)

// Scanner drives the redemption state machine.
type Scanner struct {
	Store     store.Store
	Sessions  SessionStore
	Publisher queue.Publisher
	Log       logrus.FieldLogger
	TTL       time.Duration

	Now   func() time.Time
	NewID func() string
}

// NewScanner panics if the store or session store is nil.
func NewScanner(st store.Store, sessions SessionStore, pub queue.Publisher, log logrus.FieldLogger, ttl time.Duration) *Scanner {
	if st == nil || sessions == nil {
		panic("nil dependency passed to scan.NewScanner")
	}
	if pub == nil {
		pub = queue.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Scanner{
		Store:     st,
		Sessions:  sessions,
		Publisher: pub,
		Log:       log,
		TTL:       ttl,
		Now:       func() time.Time { return time.Now().UTC() },
		NewID:     uuid.NewString,
	}
}

func (s *Scanner) reject(sess Session, reason Reason, msg string) Session {
	sess.State = StateRejected
	sess.Reason = reason
	sess.Message = msg
	s.Log.WithField("session_id", sess.ID).WithField("reason", reason).Info("scan rejected")
	return sess
}

// Scan classifies text and looks up the record it points at.  Rejections
// are returned as sessions, not errors; an error means the lookup itself
// failed.  Pending sessions are saved for Confirm or Cancel.
func (s *Scanner) Scan(ctx context.Context, text string) (Session, error) {
	sess := Session{ID: s.NewID(), State: StateScanned, CreatedAt: s.Now()}

	p, ok := qr.Parse(text)
	if !ok {
		return s.reject(sess, ReasonUnrecognized, "Code not recognised."), nil
	}
	sess.Payload = p
	if p.Stale() {
		return s.reject(sess, ReasonStaleFormat, "Old merch code: this format can no longer be redeemed."), nil
	}

	var err error
	switch p.Kind {
	case qr.KindTicket, qr.KindLegacyTicket:
		sess, err = s.scanTicket(ctx, sess, p.ID)
	case qr.KindMerchSale:
		sess, err = s.scanSale(ctx, sess, p.ID)
	default:
		return s.reject(sess, ReasonUnrecognized, "Code not recognised."), nil
	}
	if err != nil || !sess.pending() {
		return sess, err
	}
	if err := s.Sessions.Put(ctx, sess, s.TTL); err != nil {
		return Session{}, apperr.Persistence("save scan session", err)
	}
	return sess, nil
}

func (s *Scanner) scanTicket(ctx context.Context, sess Session, ticketID string) (Session, error) {
	sess.Target, sess.RefID = TargetTicket, ticketID

	t, err := s.Store.Tickets().Get(ctx, ticketID)
	if errors.Is(err, store.ErrNotFound) {
		return s.reject(sess, ReasonNotFound, "Ticket not found."), nil
	}
	if err != nil {
		return Session{}, apperr.Persistence("load ticket", err)
	}
	rec, err := s.Store.Redemptions().Get(ctx, ticketID)
	if err != nil {
		return Session{}, apperr.Persistence("load redemption", err)
	}
	ev, err := s.Store.Events().Get(ctx, t.EventID)
	if err != nil {
		return Session{}, apperr.Persistence("load event", err)
	}
	sess.Ticket, sess.Event, sess.UsedCount = &t, &ev, rec.UsedCount

	available := rec.Available(t)
	if available <= 0 {
		return s.reject(sess, ReasonAlreadyFullyUsed,
			fmt.Sprintf("Ticket already used: %d of %d admissions redeemed.", rec.UsedCount, t.Quantity)), nil
	}
	if ev.Archived {
		return s.reject(sess, ReasonEventArchived, fmt.Sprintf("Event %q is archived.", ev.Name)), nil
	}

	sess.State = StatePendingConfirmation
	sess.Quantity = 1
	sess.MaxQuantity = available
	sess.Adjustable = true
	sess.Message = fmt.Sprintf("%s · %s · %d of %d admissions left. How many are entering?",
		t.HolderName(), ev.Name, available, t.Quantity)
	return sess, nil
}

func (s *Scanner) scanSale(ctx context.Context, sess Session, saleID string) (Session, error) {
	sess.Target, sess.RefID = TargetMerchSale, saleID

	sale, err := s.Store.MerchSales().Get(ctx, saleID)
	if errors.Is(err, store.ErrNotFound) {
		return s.reject(sess, ReasonNotFound, "Merch order not found."), nil
	}
	if err != nil {
		return Session{}, apperr.Persistence("load merch sale", err)
	}
	sess.Sale = &sale
	if sale.Delivered() {
		return s.reject(sess, ReasonAlreadyDelivered, deliveredMessage(sale)), nil
	}

	sess.State = StatePendingConfirmation
	sess.Quantity = sale.Quantity
	sess.MaxQuantity = sale.Quantity
	sess.Message = fmt.Sprintf("%s · %d × %s (%s). Hand over the order?",
		sale.BuyerFullName(), sale.Quantity, sale.ItemName, sale.DragName)
	return sess, nil
}

func deliveredMessage(sale model.MerchSale) string {
	if sale.DeliveredAt == nil {
		return "Order already delivered."
	}
	return "Order already delivered on " + sale.DeliveredAt.Format("2006-01-02 15:04") + "."
}

// take fetches a pending session.  A session in any other state is put
// back untouched and ErrInvalidState returned.
func (s *Scanner) take(ctx context.Context, id string) (Session, error) {
	sess, err := s.Sessions.Take(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return Session{}, err
		}
		return Session{}, apperr.Persistence("load scan session", err)
	}
	if !sess.pending() {
		s.restore(ctx, sess)
		return Session{}, apperr.ErrInvalidState
	}
	return sess, nil
}

// restore puts a session back after a failed or refused step.
func (s *Scanner) restore(ctx context.Context, sess Session) {
	if err := s.Sessions.Put(ctx, sess, s.TTL); err != nil {
		s.Log.WithError(err).WithField("session_id", sess.ID).Warn("could not put scan session back")
	}
}

// finish stores a terminal session so a repeated confirm or cancel is
// answered with ErrInvalidState instead of not found.
func (s *Scanner) finish(ctx context.Context, sess Session) Session {
	if err := s.Sessions.Put(ctx, sess, s.TTL); err != nil {
		s.Log.WithError(err).WithField("session_id", sess.ID).Warn("could not store finished scan session")
	}
	return sess
}

// Confirm redeems a pending session.  For tickets quantity is the number
// of people entering (0 means the proposed quantity); merch orders are
// always delivered whole and ignore it.  When the ticket no longer has
// enough admissions left the session stays pending and
// apperr.ErrExceedsAvailable is returned.
func (s *Scanner) Confirm(ctx context.Context, sessionID string, quantity int) (Session, error) {
	sess, err := s.take(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	switch sess.Target {
	case TargetTicket:
		if quantity == 0 {
			quantity = sess.Quantity
		}
		res, err := s.RedeemTicket(ctx, sess.RefID, quantity)
		if err != nil {
			// nothing was redeemed; keep the session so the operator can retry
			s.restore(ctx, sess)
			return Session{}, err
		}
		sess.State = StateConfirmed
		sess.Quantity = quantity
		sess.UsedCount = res.UsedCount
		sess.MaxQuantity = res.Available
		sess.Ticket, sess.Event = &res.Ticket, &res.Event
		sess.Message = fmt.Sprintf("%d admitted. %d of %d admissions left.", quantity, res.Available, res.Ticket.Quantity)

	case TargetMerchSale:
		sale, delivered, err := s.DeliverSale(ctx, sess.RefID)
		if err != nil {
			s.restore(ctx, sess)
			return Session{}, err
		}
		sess.Sale = &sale
		if !delivered {
			return s.finish(ctx, s.reject(sess, ReasonAlreadyDelivered, deliveredMessage(sale))), nil
		}
		sess.State = StateConfirmed
		sess.Message = fmt.Sprintf("Delivered %d × %s to %s.", sale.Quantity, sale.ItemName, sale.BuyerFullName())

	default:
		return Session{}, apperr.ErrInvalidState
	}
	return s.finish(ctx, sess), nil
}

// Cancel abandons a pending session without touching any ledger.
func (s *Scanner) Cancel(ctx context.Context, sessionID string) (Session, error) {
	sess, err := s.take(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	sess.State = StateCancelled
	sess.Message = "Scan cancelled."
	return s.finish(ctx, sess), nil
}

// Redemption is the outcome of RedeemTicket.
type Redemption struct {
	Ticket    model.Ticket `json:"ticket"`
	Event     model.Event  `json:"event"`
	UsedCount int          `json:"used_count"`
	Available int          `json:"available"`
}

// RedeemTicket admits quantity people on a ticket.  The ticket row is
// locked and the used count re-read in the same transaction, so concurrent
// confirms can never admit more than the ticket's quantity.
func (s *Scanner) RedeemTicket(ctx context.Context, ticketID string, quantity int) (Redemption, error) {
	if quantity < 1 {
		return Redemption{}, apperr.Invalid("quantity", "must be at least 1")
	}
	now := s.Now()
	var out Redemption
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		t, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		ev, err := tx.Events().Get(ctx, t.EventID)
		if err != nil {
			return err
		}
		if ev.Archived {
			return apperr.ErrEventArchived
		}
		rec, err := tx.Redemptions().Get(ctx, ticketID)
		if err != nil {
			return err
		}
		available := rec.Available(t)
		if quantity > available {
			return fmt.Errorf("%w: %d left", apperr.ErrExceedsAvailable, available)
		}
		if err := tx.Redemptions().Add(ctx, ticketID, quantity, now); err != nil {
			return err
		}
		out = Redemption{Ticket: t, Event: ev, UsedCount: rec.UsedCount + quantity, Available: available - quantity}
		return nil
	})
	if err != nil {
		return Redemption{}, apperr.Persistence("redeem ticket", err)
	}

	s.Log.WithField("ticket_id", ticketID).
		WithField("quantity", quantity).
		WithField("used", out.UsedCount).
		Info("ticket redeemed")
	s.publish(ctx, queue.TicketRedeemedEvent{
		TicketID:   ticketID,
		EventID:    out.Event.ID,
		Quantity:   quantity,
		UsedCount:  out.UsedCount,
		Total:      out.Ticket.Quantity,
		RedeemedAt: now.Format(time.RFC3339),
	})
	return out, nil
}

// DeliverSale marks a merch order delivered.  It reports false, with the
// stored sale, when the order had already been delivered.
func (s *Scanner) DeliverSale(ctx context.Context, saleID string) (model.MerchSale, bool, error) {
	now := s.Now()
	var (
		sale      model.MerchSale
		delivered bool
	)
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if sale, err = tx.MerchSales().GetForUpdate(ctx, saleID); err != nil {
			return err
		}
		if sale.Delivered() {
			return nil
		}
		if delivered, err = tx.MerchSales().MarkDelivered(ctx, saleID, now); err != nil || !delivered {
			return err
		}
		sale.Status = model.SaleStatusDelivered
		sale.DeliveredAt = &now
		return nil
	})
	if err != nil {
		return model.MerchSale{}, false, apperr.Persistence("deliver merch sale", err)
	}
	if !delivered {
		return sale, false, nil
	}

	s.Log.WithField("sale_id", saleID).Info("merch order delivered")
	s.publish(ctx, queue.MerchDeliveredEvent{
		SaleID:      saleID,
		ItemName:    sale.ItemName,
		DragName:    sale.DragName,
		Quantity:    sale.Quantity,
		DeliveredAt: now.Format(time.RFC3339),
	})
	return sale, true, nil
}

func (s *Scanner) publish(ctx context.Context, ev queue.Event) {
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).WithField("queue", ev.RoutingKey()).Warn("publish failed")
	}
}
