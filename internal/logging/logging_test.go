package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "debug", "JSON")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("event_id", 7).Info("hello")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.EqualValues(t, 7, line["event_id"])

	assert.Equal(t, logrus.InfoLevel, newLogger(&buf, "loud", "text").GetLevel())
}

func TestFromContextFallsBack(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := Discard()
	ctx := ToContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestRequestLoggerRecordsStatusAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := newLogger(&buf, "info", "json")

	e := echo.New()
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(base))
	var sawLogger bool
	e.GET("/v1/events/:id", func(c echo.Context) error {
		_, sawLogger = FromContext(c.Request().Context()).(*logrus.Entry)
		return echo.NewHTTPError(http.StatusNotFound, "event not found")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events/9", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, sawLogger)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/v1/events/:id", line["path"])
	assert.EqualValues(t, http.StatusNotFound, line["status"])
	assert.NotEmpty(t, line["request_id"])
}
