package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rodetes-party/rodetes/internal/config"
	"github.com/rodetes-party/rodetes/internal/handler"
	"github.com/rodetes-party/rodetes/internal/logging"
	"github.com/rodetes-party/rodetes/internal/merch"
	"github.com/rodetes-party/rodetes/internal/middleware"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/queue"
	"github.com/rodetes-party/rodetes/internal/router"
	"github.com/rodetes-party/rodetes/internal/scan"
	"github.com/rodetes-party/rodetes/internal/store/memory"
	"github.com/rodetes-party/rodetes/internal/ticketing"
	"github.com/rodetes-party/rodetes/internal/utils"
)

const jwtSecret = "handler-test-secret"

type app struct {
	e     *echo.Echo
	st    *memory.Store
	pub   *queue.Recorder
	admin string
	staff string
}

func newApp(t *testing.T) *app {
	t.Helper()
	st := memory.New()
	pub := &queue.Recorder{}
	log := logging.Discard()
	cfg := config.Config{JWTSecret: jwtSecret, AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: bcrypt.MinCost}

	tickets := ticketing.NewService(st, pub, log, nil)
	shop := merch.NewService(st, pub, log, nil)
	scanner := scan.NewScanner(st, scan.NewMemorySessions(), pub, log, time.Minute)

	e := echo.New()
	e.Validator = handler.NewValidator()
	auth := handler.NewAuthHandler(cfg, st)
	router.RegisterRoutes(e, st)
	router.RegisterAuth(e, auth, jwtSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(tickets, shop), middleware.NewRedisCache(config.CacheConfig{}, nil, log))
	router.RegisterScanner(e, handler.NewScanHandler(scanner), jwtSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(tickets, shop, nil), auth, jwtSecret)

	return &app{
		e:     e,
		st:    st,
		pub:   pub,
		admin: token(t, st, "admin@rodetes.party", model.RoleAdmin),
		staff: token(t, st, "door@rodetes.party", model.RoleStaff),
	}
}

// token creates a user with password "password123" and signs an access
// token for it.
func token(t *testing.T, st *memory.Store, email, role string) string {
	t.Helper()
	hash, err := utils.HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)
	id, err := st.Users().Create(context.Background(), email, hash, role)
	require.NoError(t, err)
	tok, err := utils.NewAccessToken(jwtSecret, id, role, 5)
	require.NoError(t, err)
	return tok.Token
}

func (a *app) do(t *testing.T, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

// createEvent adds an event two days ahead through the admin API.
func (a *app) createEvent(t *testing.T, name string, capacity int) model.Event {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/v1/admin/events", echo.Map{
		"name":        name,
		"date":        time.Now().UTC().Add(48 * time.Hour),
		"price_cents": 1500,
		"capacity":    capacity,
	}, a.admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ev model.Event
	decode(t, rec, &ev)
	return ev
}

func buyerBody(email string, qty int) echo.Map {
	return echo.Map{"name": "Ana", "surname": "Pérez", "email": email, "quantity": qty}
}
