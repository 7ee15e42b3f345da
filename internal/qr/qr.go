// Package qr reads and writes the text carried by ticket and merch order QR
// codes.  Payloads are "KEY:value" lines.  Only the id is trusted; the other
// fields exist so staff can eyeball the code and are never used to decide
// anything.
package qr

import (
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/rodetes-party/rodetes/internal/model"
)

// Payload keys, as printed on every code issued so far.
const (
	KeyMerchSaleID = "MERCH_SALE_ID"
	KeyTicketID    = "TICKET_ID"
	KeyEvent       = "EVENTO"
	KeyDate        = "FECHA"
	KeyName        = "NOMBRE"
	KeyEmail       = "EMAIL"
	KeyDrag        = "DRAG"
	KeyItem        = "ITEM"
	KeyQuantity    = "CANTIDAD"
	KeyMerchItemID = "MERCH_ITEM_ID"
)

// Kind tells which payload shape was recognised.
type Kind string

const (
	KindMerchSale    Kind = "MERCH_SALE"
	KindTicket       Kind = "TICKET"
	KindLegacyTicket Kind = "LEGACY_TICKET"
	// KindLegacyMerch predates sale ids and can no longer be redeemed.
	KindLegacyMerch Kind = "LEGACY_MERCH"
)

// Payload is a parsed code.  ID is the sale id or ticket id; for
// KindLegacyMerch it is the catalog item id.
type Payload struct {
	Kind     Kind   `json:"kind"`
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Event    string `json:"event,omitempty"`
	Date     string `json:"date,omitempty"`
	Drag     string `json:"drag,omitempty"`
	Item     string `json:"item,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
}

// Stale reports whether the shape is recognised but no longer redeemable.
func (p *Payload) Stale() bool { return p.Kind == KindLegacyMerch }

// fields splits text into KEY:value pairs.  Keys are upper-cased, values
// trimmed, the first occurrence of a key wins and lines without ':' are
// ignored.
func fields(text string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, seen := out[k]; !seen {
			out[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// Parse recognises a scanned payload.  Shapes are tried in order: merch
// sale, current ticket, legacy ticket, legacy merch.  The first shape whose
// marker key is present decides; if its required fields are unusable the
// result is not recognised, without falling through to later shapes.
func Parse(text string) (*Payload, bool) {
	f := fields(text)

	if id, ok := f[KeyMerchSaleID]; ok {
		if id == "" {
			return nil, false
		}
		qty, _ := strconv.Atoi(f[KeyQuantity])
		return &Payload{
			Kind:     KindMerchSale,
			ID:       id,
			Name:     f[KeyName],
			Email:    f[KeyEmail],
			Drag:     f[KeyDrag],
			Item:     f[KeyItem],
			Quantity: max(qty, 0),
		}, true
	}

	if id, ok := f[KeyTicketID]; ok {
		if id == "" {
			return nil, false
		}
		if _, legacy := f[KeyEvent]; !legacy {
			return &Payload{Kind: KindTicket, ID: id}, true
		}
		qty, err := strconv.Atoi(f[KeyQuantity])
		if err != nil || qty < 1 {
			return nil, false
		}
		return &Payload{
			Kind:     KindLegacyTicket,
			ID:       id,
			Event:    f[KeyEvent],
			Date:     f[KeyDate],
			Name:     f[KeyName],
			Email:    f[KeyEmail],
			Quantity: qty,
		}, true
	}

	_, hasItem := f[KeyMerchItemID]
	_, hasDrag := f[KeyDrag]
	if hasItem && hasDrag {
		return &Payload{
			Kind: KindLegacyMerch,
			ID:   f[KeyMerchItemID],
			Name: f[KeyName],
			Drag: f[KeyDrag],
			Item: f[KeyItem],
		}, true
	}
	return nil, false
}

// TicketPayload is the text printed on a ticket: the id and nothing else.
func TicketPayload(ticketID string) string {
	return KeyTicketID + ":" + ticketID
}

// MerchSalePayload is the text printed on a merch order.
func MerchSalePayload(s model.MerchSale) string {
	var b strings.Builder
	line := func(k, v string) {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(oneLine(v))
		b.WriteByte('\n')
	}
	line(KeyMerchSaleID, s.SaleID)
	line(KeyName, s.BuyerFullName())
	line(KeyEmail, s.BuyerEmail)
	line(KeyDrag, s.DragName)
	line(KeyItem, s.ItemName)
	line(KeyQuantity, strconv.Itoa(s.Quantity))
	return strings.TrimSuffix(b.String(), "\n")
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// PNG renders payload as a QR image of size×size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
