package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/rodetes-party/rodetes/internal/scan"
)

// ScanHandler drives the door scanner: scan, then confirm or cancel.
type ScanHandler struct {
	Scanner *scan.Scanner
}

func NewScanHandler(s *scan.Scanner) *ScanHandler {
	if s == nil {
		panic("nil scanner passed to NewScanHandler")
	}
	return &ScanHandler{Scanner: s}
}

type scanReq struct {
	Text string `json:"text" validate:"required"`
}

type confirmReq struct {
	// Quantity of people entering; 0 keeps the proposed quantity.
	Quantity int `json:"quantity" validate:"gte=0"`
}

// Scan evaluates a decoded QR text.  Rejections are normal outcomes and
// come back as 200 with state REJECTED.
func (h *ScanHandler) Scan(c echo.Context) error {
	var req scanReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	sess, err := h.Scanner.Scan(c.Request().Context(), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	entry(c).WithFields(logrus.Fields{
		"session": sess.ID, "state": sess.State, "reason": sess.Reason,
	}).Info("scan")
	return c.JSON(http.StatusOK, sess)
}

func (h *ScanHandler) Confirm(c echo.Context) error {
	var req confirmReq // an empty body is a plain confirm
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	sess, err := h.Scanner.Confirm(c.Request().Context(), c.Param("session"), req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *ScanHandler) Cancel(c echo.Context) error {
	sess, err := h.Scanner.Cancel(c.Request().Context(), c.Param("session"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}
