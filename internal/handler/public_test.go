package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodetes-party/rodetes/internal/buyer"
	"github.com/rodetes-party/rodetes/internal/model"
)

type purchaseResp struct {
	Ticket    model.Ticket `json:"ticket"`
	Event     model.Event  `json:"event"`
	Duplicate bool         `json:"duplicate"`
	QRPayload string       `json:"qr_payload"`
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTicketPurchaseFlow(t *testing.T) {
	a := newApp(t)
	ev := a.createEvent(t, "Rodetes Fest", 2)
	path := fmt.Sprintf("/v1/events/%d/tickets", ev.ID)

	rec := a.do(t, http.MethodPost, path, buyerBody("ana@example.com", 2), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first purchaseResp
	decode(t, rec, &first)
	assert.Equal(t, 2, first.Ticket.Quantity)
	assert.Equal(t, 2, first.Event.TicketsSold)
	assert.Equal(t, "TICKET_ID:"+first.Ticket.TicketID, first.QRPayload)

	// same buyer again: existing ticket, nothing new sold
	rec = a.do(t, http.MethodPost, path, buyerBody("ANA@example.com", 1), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dup purchaseResp
	decode(t, rec, &dup)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, first.Ticket.TicketID, dup.Ticket.TicketID)

	rec = a.do(t, http.MethodPost, path, buyerBody("bea@example.com", 1), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"event is sold out","remaining":0}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/events/%d/availability?quantity=1", ev.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":false,"unlimited":false,"capacity":2,"sold":2,"remaining":0}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/v1/tickets/"+first.Ticket.TicketID+"/qr.png", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])

	assert.Len(t, a.pub.Events(), 1)
}

func TestTicketPurchaseValidation(t *testing.T) {
	a := newApp(t)
	ev := a.createEvent(t, "Rodetes", 0)
	path := fmt.Sprintf("/v1/events/%d/tickets", ev.ID)

	rec := a.do(t, http.MethodPost, path, buyerBody("not-an-email", 1), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Fields, "email")

	rec = a.do(t, http.MethodPost, path, map[string]interface{}{"email": "x@example.com", "quantity": 0}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body.Fields = nil
	decode(t, rec, &body)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "surname")
	assert.Contains(t, body.Fields, "quantity")

	rec = a.do(t, http.MethodPost, path, buyerBody("x@example.com", buyer.MaxQuantity+1), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body.Fields = nil
	decode(t, rec, &body)
	assert.Contains(t, body.Fields, "quantity")

	rec = a.do(t, http.MethodPost, "/v1/events/999/tickets", buyerBody("x@example.com", 1), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/events/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchivedEventRejectsPurchase(t *testing.T) {
	a := newApp(t)
	ev := a.createEvent(t, "Old", 0)
	rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/admin/events/%d/archive", ev.ID), nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/tickets", ev.ID), buyerBody("x@example.com", 1), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodGet, "/v1/events", nil, "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestPersistenceFailureIs503(t *testing.T) {
	a := newApp(t)
	ev := a.createEvent(t, "Rodetes", 0)
	a.st.FailOn("tickets.create", errors.New("disk full"))

	rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/tickets", ev.ID), buyerBody("x@example.com", 1), "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "retrying")
}

func TestMerchPurchaseAndDelivery(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/v1/admin/drags", map[string]string{"name": "La Prohibida", "instagram": "@prohibida"}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var drag model.Drag
	decode(t, rec, &drag)
	assert.Equal(t, "prohibida", drag.Instagram)

	rec = a.do(t, http.MethodPost, "/v1/admin/merch-items", map[string]interface{}{"drag_id": drag.ID, "name": "Fan", "price_cents": 800}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var item model.MerchItem
	decode(t, rec, &item)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/merch?drag_id=%d", drag.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Fan"`)

	order := buyerBody("ana@example.com", 3)
	order["item_id"] = item.ID
	order["drag_id"] = drag.ID
	rec = a.do(t, http.MethodPost, "/v1/merch/purchases", order, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sale struct {
		model.MerchSale
		TotalCents int64  `json:"total_cents"`
		QRPayload  string `json:"qr_payload"`
	}
	decode(t, rec, &sale)
	assert.Equal(t, int64(2400), sale.TotalCents)
	assert.Equal(t, "La Prohibida", sale.DragName)
	assert.Equal(t, model.SaleStatusPending, sale.Status)

	rec = a.do(t, http.MethodGet, "/v1/merch-sales/"+sale.SaleID+"/qr.png?size=128", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodGet, "/v1/merch-sales/"+sale.SaleID+"/qr.png?size=5000", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// door staff scans the printed payload and hands the order over
	rec = a.do(t, http.MethodPost, "/v1/scan", map[string]string{"text": sale.QRPayload}, a.staff)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	decode(t, rec, &sess)
	assert.Equal(t, "PENDING_CONFIRMATION", sess.State)

	rec = a.do(t, http.MethodPost, "/v1/scan/"+sess.ID+"/confirm", nil, a.staff)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &sess)
	assert.Equal(t, "CONFIRMED", sess.State)

	rec = a.do(t, http.MethodGet, "/v1/admin/merch-sales?status=delivered", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	// deleting the drag keeps the sale with its snapshot
	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/drags/%d", drag.ID), nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items_deleted":1,"sales_deleted":0,"sales_detached":1}`, rec.Body.String())
	rec = a.do(t, http.MethodGet, "/v1/admin/merch-sales", nil, a.admin)
	assert.Contains(t, rec.Body.String(), `"drag_name":"La Prohibida"`)
}

func TestMerchListRejectsBadSeller(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/v1/merch?drag_id=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet, "/v1/merch?drag_id=web", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodGet, "/v1/merch?drag_id=77", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
