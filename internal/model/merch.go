package model

import "time"

// WebSellerName is the display name of house merchandise that does not
// belong to any drag performer.
const WebSellerName = "web"

// Drag is a drag performer that sells merchandise at the parties.  It is one
// of the two seller contexts; the other is the house ("web") context, which
// is represented by a nil drag id everywhere.
type Drag struct {
	ID          uint64    `json:"id"`          // drags.id
	Name        string    `json:"name"`        // drags.name
	Description string    `json:"description"` // drags.description
	Instagram   string    `json:"instagram"`   // drags.instagram
	CreatedAt   time.Time `json:"created_at"`  // drags.created_at
}

// MerchItem is a catalog entry.  DragID is nil for house merchandise.
type MerchItem struct {
	ID         uint64    `json:"id"`                // merch_items.id
	DragID     *uint64   `json:"drag_id,omitempty"` // merch_items.drag_id (nullable)
	Name       string    `json:"name"`              // merch_items.name
	PriceCents int64     `json:"price_cents"`       // merch_items.price_cents
	CreatedAt  time.Time `json:"created_at"`        // merch_items.created_at
}

// SaleStatus is the lifecycle state of a merch order.
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "PENDING"
	SaleStatusDelivered SaleStatus = "DELIVERED"
)

// MerchSale is one merch order.  Item and seller names/prices are
// snapshotted at sale time so later catalog edits or deletions leave the
// order history intact.  Status only ever moves from PENDING to DELIVERED.
//
// Fields:
//  SaleID         – opaque unique identifier (uuid).
//  ItemID         – catalog item at sale time (nullable once the item is gone).
//  ItemName       – item name snapshot.
//  ItemPriceCents – item unit price snapshot.
//  DragID         – seller drag (nil for web merch or a detached drag).
//  DragName       – seller name snapshot ("web" for house merch).
//  Quantity       – units ordered (≥ 1).
//  BuyerName      – buyer first name.
//  BuyerSurname   – buyer last name.
//  BuyerEmail     – buyer email, lowercased.
//  Status         – PENDING or DELIVERED.
//  CreatedAt      – order timestamp.
//  DeliveredAt    – set once, on delivery.
type MerchSale struct {
	SaleID         string     `json:"sale_id"`                // merch_sales.sale_id
	ItemID         *uint64    `json:"item_id,omitempty"`      // merch_sales.item_id (nullable)
	ItemName       string     `json:"item_name"`              // merch_sales.item_name
	ItemPriceCents int64      `json:"item_price_cents"`       // merch_sales.item_price_cents
	DragID         *uint64    `json:"drag_id,omitempty"`      // merch_sales.drag_id (nullable)
	DragName       string     `json:"drag_name"`              // merch_sales.drag_name
	Quantity       int        `json:"quantity"`               // merch_sales.quantity
	BuyerName      string     `json:"buyer_name"`             // merch_sales.buyer_name
	BuyerSurname   string     `json:"buyer_surname"`          // merch_sales.buyer_surname
	BuyerEmail     string     `json:"buyer_email"`            // merch_sales.buyer_email
	Status         SaleStatus `json:"status"`                 // merch_sales.status
	CreatedAt      time.Time  `json:"created_at"`             // merch_sales.created_at
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"` // merch_sales.delivered_at (nullable)
}

// Delivered reports whether the order has been handed over.
func (s MerchSale) Delivered() bool { return s.Status == SaleStatusDelivered }

// TotalCents is the order total from the price snapshot.
func (s MerchSale) TotalCents() int64 { return s.ItemPriceCents * int64(s.Quantity) }

// BuyerFullName joins buyer first and last name.
func (s MerchSale) BuyerFullName() string {
	if s.BuyerSurname == "" {
		return s.BuyerName
	}
	return s.BuyerName + " " + s.BuyerSurname
}

// SaleFilter narrows admin sale listings.  Zero values mean "any".
type SaleFilter struct {
	DragID  *uint64
	WebOnly bool
	Status  SaleStatus
}
