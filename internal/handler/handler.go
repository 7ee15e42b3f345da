// Package handler exposes the HTTP API: the public shop, the door scanner,
// staff auth and the admin back office.  Handlers only bind, validate and
// translate; all rules live in the ticketing, merch and scan services.
package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/logging"
)

// Validator plugs go-playground/validator into echo's c.Validate.  Field
// names in errors are the json names clients send.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate returns a *apperr.ValidationError listing every bad field.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &apperr.ValidationError{}
	for _, fe := range verrs {
		out.Add(fe.Field(), describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid (" + fe.Tag() + ")"
}

// bind decodes the body into req and validates it.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return invalidBody()
	}
	return c.Validate(req)
}

func invalidBody() error { return invalidField("body", "malformed request body") }

func invalidField(field, msg string) error { return apperr.Invalid(field, msg) }

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, invalidField(name, "must be a positive integer")
	}
	return id, nil
}

// respondError writes the JSON error body for err.  Unknown errors are
// logged and hidden behind a 500.
func respondError(c echo.Context, err error) error {
	var verr *apperr.ValidationError
	var soldOut *apperr.SoldOutError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid input", "fields": verr.Fields})
	case errors.As(err, &soldOut):
		return c.JSON(http.StatusConflict, echo.Map{"error": soldOut.Error(), "remaining": soldOut.Remaining})
	case errors.Is(err, apperr.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, apperr.ErrEventArchived),
		errors.Is(err, apperr.ErrEventPast),
		errors.Is(err, apperr.ErrExceedsAvailable),
		errors.Is(err, apperr.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, apperr.ErrPersistence):
		entry(c).WithError(err).Error("persistence failure")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"error": "could not save changes; check whether the operation went through before retrying",
		})
	}
	entry(c).WithError(err).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// nonNil makes empty listings encode as [] rather than null.
func nonNil[T any](xs []T) []T {
	if xs == nil {
		return []T{}
	}
	return xs
}

// entry returns the request-scoped logger.
func entry(c echo.Context) logrus.FieldLogger {
	return logging.FromContext(c.Request().Context())
}
