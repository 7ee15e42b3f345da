package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rodetes-party/rodetes/internal/merch"
	"github.com/rodetes-party/rodetes/internal/model"
)

type dragReq struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Instagram   string `json:"instagram"`
}

func (r dragReq) input() merch.DragInput {
	return merch.DragInput{Name: r.Name, Description: r.Description, Instagram: r.Instagram}
}

func (h *AdminHandler) CreateDrag(c echo.Context) error {
	var req dragReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	d, err := h.Merch.CreateDrag(c.Request().Context(), req.input())
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, d)
}

func (h *AdminHandler) UpdateDrag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dragReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	d, err := h.Merch.UpdateDrag(c.Request().Context(), id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, d)
}

// DeleteDrag removes a drag and its catalog.  Its sales keep their
// snapshot unless ?cascade_sales=true.
func (h *AdminHandler) DeleteDrag(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	cascade, _ := strconv.ParseBool(c.QueryParam("cascade_sales"))
	res, err := h.Merch.DeleteDrag(c.Request().Context(), id, cascade)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, res)
}

// SyncDrags replaces the whole drag list.  Dropped drags keep their sales.
func (h *AdminHandler) SyncDrags(c echo.Context) error {
	var req []model.Drag
	if err := c.Bind(&req); err != nil {
		return respondError(c, invalidBody())
	}
	res, err := h.Merch.SyncDrags(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, res)
}

type itemReq struct {
	DragID     *uint64 `json:"drag_id"`
	Name       string  `json:"name" validate:"required"`
	PriceCents int64   `json:"price_cents" validate:"gte=0"`
}

func (r itemReq) input() merch.ItemInput {
	return merch.ItemInput{DragID: r.DragID, Name: r.Name, PriceCents: r.PriceCents}
}

// ListItems lists one seller's catalog (?drag_id=N or web).
func (h *AdminHandler) ListItems(c echo.Context) error {
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

func (h *AdminHandler) CreateItem(c echo.Context) error {
	var req itemReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	it, err := h.Merch.CreateItem(c.Request().Context(), req.input())
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, it)
}

// UpdateItem edits name and price; drag_id in the body is ignored.
func (h *AdminHandler) UpdateItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req itemReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	it, err := h.Merch.UpdateItem(c.Request().Context(), id, req.input())
	if err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, it)
}

func (h *AdminHandler) DeleteItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.Merch.DeleteItem(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// ListSales filters by ?drag_id=N, ?drag_id=web and ?status=.
func (h *AdminHandler) ListSales(c echo.Context) error {
	var f model.SaleFilter
	if raw := strings.TrimSpace(c.QueryParam("drag_id")); raw != "" {
		dragID, err := sellerParam(raw)
		if err != nil {
			return respondError(c, err)
		}
		f.DragID = dragID
		f.WebOnly = dragID == nil
	}
	f.Status = model.SaleStatus(strings.ToUpper(c.QueryParam("status")))
	sales, err := h.Merch.ListSales(c.Request().Context(), f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": nonNil(sales), "count": len(sales)})
}
