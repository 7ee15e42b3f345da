package ticketing

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rodetes-party/rodetes/internal/logging"
	"github.com/rodetes-party/rodetes/internal/model"
	"github.com/rodetes-party/rodetes/internal/queue"
	"github.com/rodetes-party/rodetes/internal/store/memory"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	store *memory.Store
	pub   *queue.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := memory.New()
	pub := &queue.Recorder{}
	svc := NewService(st, pub, logging.Discard(), nil)
	svc.Now = func() time.Time { return testNow }
	var n atomic.Int64
	svc.NewID = func() string { return fmt.Sprintf("T%d", n.Add(1)) }
	return fixture{svc: svc, store: st, pub: pub}
}

func (f fixture) event(t *testing.T, capacity int) model.Event {
	t.Helper()
	ev, err := f.svc.CreateEvent(context.Background(), EventInput{
		Name:     "Rodetes Summer",
		Date:     testNow.Add(14 * 24 * time.Hour),
		Capacity: capacity,
	})
	require.NoError(t, err)
	return ev
}

func buy(eventID uint64, email string, qty int) PurchaseRequest {
	return PurchaseRequest{EventID: eventID, Name: "Ana", Surname: "Drag", Email: email, Quantity: qty}
}
