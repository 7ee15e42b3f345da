package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rodetes-party/rodetes/internal/merch"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/ticketing"
)

// Purger drops cached public responses after catalog writes.
type Purger interface {
	Purge(ctx context.Context) (int, error)
}

// AdminHandler is the back office: events, tickets, drags, merch items
// and sales.  Every write purges the public response cache.
type AdminHandler struct {
	Tickets *ticketing.Service
	Merch   *merch.Service
	Cache   Purger
}

func NewAdminHandler(t *ticketing.Service, m *merch.Service, cache Purger) *AdminHandler {
	if t == nil || m == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{Tickets: t, Merch: m, Cache: cache}
}

// purge is best effort; entries expire on their own anyway.
func (h *AdminHandler) purge(c echo.Context) {
	if h.Cache == nil {
		return
	}
	if _, err := h.Cache.Purge(c.Request().Context()); err != nil {
		entry(c).WithError(err).Warn("cache purge failed")
	}
}

type eventReq struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	PriceCents  int64     `json:"price_cents" validate:"gte=0"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
}

func (r eventReq) input() ticketing.EventInput {
	return ticketing.EventInput{
		Name:        r.Name,
		Description: r.Description,
		Date:        r.Date,
		PriceCents:  r.PriceCents,
		Capacity:    r.Capacity,
	}
}

// ListEvents includes archived events unless ?archived=false.
func (h *AdminHandler) ListEvents(c echo.Context) error {
	includeArchived := c.QueryParam("archived") != "false"
	events, err := h.Tickets.ListEvents(c.Request().Context(), includeArchived)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(events)})
}

func (h *AdminHandler) CreateEvent(c echo.Context) error {
	var req eventReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ev, err := h.Tickets.CreateEvent(c.Request().Context(), req.input())
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, ev)
}

func (h *AdminHandler) UpdateEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req eventReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ev, err := h.Tickets.UpdateEvent(c.Request().Context(), id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, ev)
}

func (h *AdminHandler) ArchiveEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ev, err := h.Tickets.ArchiveEvent(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, ev)
}

// DeleteEvent removes the event together with its tickets.
func (h *AdminHandler) DeleteEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Tickets.DeleteEvent(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// SyncEvents replaces the whole event list.  tickets_sold in the body is
// ignored; counts always come from the ledger.
func (h *AdminHandler) SyncEvents(c echo.Context) error {
	var req []model.Event
	if err := c.Bind(&req); err != nil {
		return respondError(c, invalidBody())
	}
	res, err := h.Tickets.SyncEvents(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) ListTickets(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	tickets, err := h.Tickets.ListTickets(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(tickets), "count": len(tickets)})
}

// DeleteTicket removes a ticket and frees its places.
func (h *AdminHandler) DeleteTicket(c echo.Context) error {
	if err := h.Tickets.DeleteTicket(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// Resync recomputes every event's cached sold count from the ledger, or a
// single event's with ?event_id=.
func (h *AdminHandler) Resync(c echo.Context) error {
	ctx := c.Request().Context()
	if raw := c.QueryParam("event_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return respondError(c, invalidField("event_id", "must be a positive integer"))
		}
		sold, err := h.Tickets.ResyncSoldCount(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		h.purge(c)
		return c.JSON(http.StatusOK, echo.Map{"event_id": id, "tickets_sold": sold})
	}
	rep, err := h.Tickets.ResyncAll(ctx)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, rep)
}
