package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/merch"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/qr"
	"github.com/rodetes-party/rodetes/internal/ticketing"
)

const maxQRSize = 1024

// PublicHandler serves the anonymous shop: events, tickets, drags and merch.
type PublicHandler struct {
	Tickets *ticketing.Service
	Merch   *merch.Service
}

func NewPublicHandler(t *ticketing.Service, m *merch.Service) *PublicHandler {
	if t == nil || m == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Tickets: t, Merch: m}
}

type buyerReq struct {
	Name     string `json:"name" validate:"required"`
	Surname  string `json:"surname" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=1,lte=100"`
}

type ticketPurchaseResp struct {
	ticketing.PurchaseResult
	QRPayload string `json:"qr_payload"`
}

// ListEvents returns the events still on sale.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	events, err := h.Tickets.ListEvents(c.Request().Context(), false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(events)})
}

func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ev, err := h.Tickets.GetEvent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Availability answers whether ?quantity= tickets (default 1) can still be
// bought, computed from the ledger.
func (h *PublicHandler) Availability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	qty := 1
	if raw := c.QueryParam("quantity"); raw != "" {
		if qty, err = strconv.Atoi(raw); err != nil || qty < 1 {
			return respondError(c, apperr.Invalid("quantity", "must be at least 1"))
		}
	}
	av, err := h.Tickets.CanPurchase(c.Request().Context(), id, qty)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}

// PurchaseTicket issues a ticket.  A repeat purchase by the same email
// returns the existing ticket with 200 instead of 201.
func (h *PublicHandler) PurchaseTicket(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req buyerReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	res, err := h.Tickets.PurchaseTicket(c.Request().Context(), ticketing.PurchaseRequest{
		EventID:  id,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Quantity: req.Quantity,
	})
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	return c.JSON(status, ticketPurchaseResp{PurchaseResult: res, QRPayload: qr.TicketPayload(res.Ticket.TicketID)})
}

// TicketQR renders the ticket's QR code as PNG.
func (h *PublicHandler) TicketQR(c echo.Context) error {
	t, err := h.Tickets.GetTicket(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return writeQR(c, qr.TicketPayload(t.TicketID))
}

func (h *PublicHandler) ListDrags(c echo.Context) error {
	drags, err := h.Merch.ListDrags(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(drags)})
}

func (h *PublicHandler) GetDrag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.Merch.GetDrag(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ListMerch lists the catalog of one seller: ?drag_id=N for a drag, no
// drag_id (or drag_id=web) for house merch.
func (h *PublicHandler) ListMerch(c echo.Context) error {
	dragID, err := sellerParam(c.QueryParam("drag_id"))
	if err != nil {
		return respondError(c, err)
	}
	items, err := h.Merch.ListItems(c.Request().Context(), dragID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(items)})
}

type merchPurchaseReq struct {
	ItemID  uint64  `json:"item_id" validate:"required"`
	DragID  *uint64 `json:"drag_id"`
	buyerReq
}

type merchPurchaseResp struct {
	model.MerchSale
	TotalCents int64  `json:"total_cents"`
	QRPayload  string `json:"qr_payload"`
}

// PurchaseMerch records a pending merch order.
func (h *PublicHandler) PurchaseMerch(c echo.Context) error {
	var req merchPurchaseReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	sale, err := h.Merch.PurchaseMerch(c.Request().Context(), merch.PurchaseRequest{
		ItemID:   req.ItemID,
		DragID:   req.DragID,
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Quantity: req.Quantity,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, merchPurchaseResp{
		MerchSale:  sale,
		TotalCents: sale.TotalCents(),
		QRPayload:  qr.MerchSalePayload(sale),
	})
}

// SaleQR renders a merch order's QR code as PNG.
func (h *PublicHandler) SaleQR(c echo.Context) error {
	sale, err := h.Merch.GetSale(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return writeQR(c, qr.MerchSalePayload(sale))
}

func writeQR(c echo.Context, payload string) error {
	size := 256
	if raw := c.QueryParam("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > maxQRSize {
			return respondError(c, apperr.Invalid("size", "must be between 64 and 1024"))
		}
		size = n
	}
	png, err := qr.PNG(payload, size)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

// sellerParam maps a drag_id query value to a seller: nil for web.
func sellerParam(raw string) (*uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, model.WebSellerName) {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.Invalid("drag_id", "must be a drag id or \"web\"")
	}
	return &id, nil
}
