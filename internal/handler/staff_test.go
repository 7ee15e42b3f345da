package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodetes-party/rodetes/internal/model"
)

type authBody struct {
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	Refresh struct {
		Token string `json:"token"`
	} `json:"refresh"`
}

func TestLoginRefreshLogout(t *testing.T) {
	a := newApp(t)

	rec := a.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": "door@rodetes.party", "password": "wrong-pass"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/login", map[string]string{"email": "Door@Rodetes.party", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login authBody
	decode(t, rec, &login)

	rec = a.do(t, http.MethodGet, "/v1/me", nil, login.Access.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"STAFF"`)

	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": login.Refresh.Token}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed authBody
	decode(t, rec, &refreshed)
	assert.NotEqual(t, login.Refresh.Token, refreshed.Refresh.Token)

	// the old refresh token was rotated out
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": login.Refresh.Token}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/logout", nil, refreshed.Access.Token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/auth/refresh", map[string]string{"refresh_token": refreshed.Refresh.Token}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/auth/logout", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoleGuards(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/admin/events", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/v1/admin/events", nil, a.staff).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/v1/admin/events", nil, a.admin).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/v1/scan", map[string]string{"text": "x"}, "").Code)
}

func TestAdminCreatesStaff(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/v1/admin/users", map[string]string{"email": "new@rodetes.party", "password": "longenough"}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"role":"STAFF"`)

	rec = a.do(t, http.MethodPost, "/v1/admin/users", map[string]string{"email": "new@rodetes.party", "password": "longenough"}, a.admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/admin/users", map[string]string{"email": "x@rodetes.party", "password": "short"}, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/admin/users", map[string]string{"email": "y@rodetes.party", "password": "longenough", "role": "OWNER"}, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type sessionBody struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	Reason      string `json:"reason"`
	Quantity    int    `json:"quantity"`
	MaxQuantity int    `json:"max_quantity"`
	UsedCount   int    `json:"used_count"`
}

func TestDoorScanPartialRedemption(t *testing.T) {
	a := newApp(t)
	ev := a.createEvent(t, "Rodetes", 0)
	rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/tickets", ev.ID), buyerBody("group@example.com", 3), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var bought purchaseResp
	decode(t, rec, &bought)

	scanOnce := func() sessionBody {
		rec := a.do(t, http.MethodPost, "/v1/scan", map[string]string{"text": bought.QRPayload}, a.staff)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var s sessionBody
		decode(t, rec, &s)
		return s
	}

	s := scanOnce()
	assert.Equal(t, "PENDING_CONFIRMATION", s.State)
	assert.Equal(t, 3, s.MaxQuantity)

	rec = a.do(t, http.MethodPost, "/v1/scan/"+s.ID+"/confirm", map[string]int{"quantity": 2}, a.staff)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &s)
	assert.Equal(t, "CONFIRMED", s.State)
	assert.Equal(t, 2, s.UsedCount)

	// a confirmed session cannot be confirmed twice
	rec = a.do(t, http.MethodPost, "/v1/scan/"+s.ID+"/confirm", nil, a.staff)
	assert.Equal(t, http.StatusConflict, rec.Code)

	s = scanOnce()
	rec = a.do(t, http.MethodPost, "/v1/scan/"+s.ID+"/confirm", map[string]int{"quantity": 2}, a.staff)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = a.do(t, http.MethodPost, "/v1/scan/"+s.ID+"/confirm", map[string]int{"quantity": 1}, a.staff)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	s = scanOnce()
	assert.Equal(t, "REJECTED", s.State)
	assert.Equal(t, "ALREADY_FULLY_USED", s.Reason)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/admin/events/%d/tickets", ev.ID), nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"used_count":3`)
}

func TestScanUnknownAndCancel(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodPost, "/v1/scan", map[string]string{"text": "hello"}, a.staff)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"UNRECOGNIZED"`)

	rec = a.do(t, http.MethodPost, "/v1/scan", map[string]string{}, a.staff)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/v1/scan/nope/cancel", nil, a.staff)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEventLifecycle(t *testing.T) {
	a := newApp(t)
	ev := a.createEvent(t, "Rodetes", 5)
	rec := a.do(t, http.MethodPost, fmt.Sprintf("/v1/events/%d/tickets", ev.ID), buyerBody("a@example.com", 3), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var bought purchaseResp
	decode(t, rec, &bought)

	upd := map[string]interface{}{"name": "Rodetes", "date": ev.Date, "price_cents": 1500, "capacity": 2}
	rec = a.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/events/%d", ev.ID), upd, a.admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, "/v1/admin/tickets/"+bought.Ticket.TicketID, nil, a.admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/v1/admin/events/%d", ev.ID), upd, a.admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Event
	decode(t, rec, &updated)
	assert.Equal(t, 2, updated.Capacity)
	assert.Equal(t, 0, updated.TicketsSold)

	rec = a.do(t, http.MethodPost, "/v1/admin/resync", nil, a.admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":1,"corrected":0}`, rec.Body.String())

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/v1/admin/events/%d", ev.ID), nil, a.admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/v1/events/%d", ev.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminSyncEvents(t *testing.T) {
	a := newApp(t)
	keep := a.createEvent(t, "Keep", 10)
	drop := a.createEvent(t, "Drop", 10)

	body := []map[string]interface{}{
		{"id": keep.ID, "name": "Keep renamed", "date": keep.Date, "capacity": 10, "tickets_sold": 99},
		{"name": "Brand new", "date": keep.Date},
	}
	rec := a.do(t, http.MethodPut, "/v1/admin/events", body, a.admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Created int           `json:"created"`
		Updated int           `json:"updated"`
		Deleted int           `json:"deleted"`
		Events  []model.Event `json:"events"`
	}
	decode(t, rec, &res)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Deleted)
	for _, ev := range res.Events {
		assert.NotEqual(t, drop.ID, ev.ID)
		assert.Zero(t, ev.TicketsSold)
	}
}
