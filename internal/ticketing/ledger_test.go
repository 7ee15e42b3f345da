package ticketing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodetes-party/rodetes/internal/apperr"
)

func TestDeleteTicketResyncsAndFreesCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 2)

	res, err := f.svc.PurchaseTicket(ctx, buy(ev.ID, "a@x.com", 2))
	require.NoError(t, err)
	require.NoError(t, f.store.Redemptions().Add(ctx, res.Ticket.TicketID, 1, testNow))

	require.NoError(t, f.svc.DeleteTicket(ctx, res.Ticket.TicketID))

	stored, err := f.svc.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TicketsSold)

	rec, err := f.store.Redemptions().Get(ctx, res.Ticket.TicketID)
	require.NoError(t, err)
	assert.Zero(t, rec.UsedCount, "redemption goes with the ticket")

	_, err = f.svc.PurchaseTicket(ctx, buy(ev.ID, "a@x.com", 2))
	assert.NoError(t, err, "email may buy again once its ticket is gone")

	assert.ErrorIs(t, f.svc.DeleteTicket(ctx, "nope"), apperr.ErrNotFound)
}

func TestResyncAllCorrectsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.event(t, 0)
	b := f.event(t, 0)

	_, err := f.svc.PurchaseTicket(ctx, buy(a.ID, "a@x.com", 3))
	require.NoError(t, err)
	require.NoError(t, f.store.Events().SetTicketsSold(ctx, a.ID, 7))
	require.NoError(t, f.store.Events().SetTicketsSold(ctx, b.ID, 1))

	rep, err := f.svc.ResyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, ResyncReport{Events: 2, Corrected: 2}, rep)

	got, err := f.svc.GetEvent(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TicketsSold)

	rep, err = f.svc.ResyncAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Corrected)
}

func TestListTicketsIncludesUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 0)

	res, err := f.svc.PurchaseTicket(ctx, buy(ev.ID, "a@x.com", 3))
	require.NoError(t, err)
	require.NoError(t, f.store.Redemptions().Add(ctx, res.Ticket.TicketID, 2, testNow))

	tickets, err := f.svc.ListTickets(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, 2, tickets[0].UsedCount)

	_, err = f.svc.ListTickets(ctx, 424242)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
