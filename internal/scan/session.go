package scan

import (
	"time"

	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/qr"
)

// State is the position of a scanned code in the redemption flow.
type State string

const (
	StateScanned             State = "SCANNED"
	StatePendingConfirmation State = "PENDING_CONFIRMATION"
	StateRejected            State = "REJECTED"
	StateConfirmed           State = "CONFIRMED"
	StateCancelled           State = "CANCELLED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateConfirmed || s == StateCancelled
}

// Reason explains a rejection.
type Reason string

const (
	ReasonUnrecognized     Reason = "UNRECOGNIZED"
	ReasonStaleFormat      Reason = "STALE_FORMAT"
	ReasonNotFound         Reason = "NOT_FOUND"
	ReasonAlreadyFullyUsed Reason = "ALREADY_FULLY_USED"
	ReasonEventArchived    Reason = "EVENT_ARCHIVED"
	ReasonAlreadyDelivered Reason = "ALREADY_DELIVERED"
)

// Target is what a session redeems.
type Target string

const (
	TargetTicket    Target = "TICKET"
	TargetMerchSale Target = "MERCH_SALE"
)

// Session is one scanned code on its way through the state machine.  The
// record fields are the authoritative rows looked up by id, not what the
// code claimed.
type Session struct {
	ID     string `json:"id"`
	State  State  `json:"state"`
	Reason Reason `json:"reason,omitempty"`
	Target Target `json:"target,omitempty"`
	RefID  string `json:"ref_id,omitempty"`

	// Quantity is the proposed redemption: 1 for tickets, the whole order
	// for merch.  Adjustable tickets accept anything up to MaxQuantity.
	Quantity    int  `json:"quantity,omitempty"`
	MaxQuantity int  `json:"max_quantity,omitempty"`
	Adjustable  bool `json:"adjustable"`

	// Message is the confirmation text shown to the operator.
	Message string `json:"message"`

	Payload *qr.Payload      `json:"payload,omitempty"`
	Ticket  *model.Ticket    `json:"ticket,omitempty"`
	Event   *model.Event     `json:"event,omitempty"`
	Sale    *model.MerchSale `json:"sale,omitempty"`

	UsedCount int       `json:"used_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Session) pending() bool { return s.State == StatePendingConfirmation }
