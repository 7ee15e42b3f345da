package ticketing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodetes-party/rodetes/internal/apperr"
	"github.com/rodetes-party/rodetes/internal/model"
)

func TestCreateEventValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateEvent(context.Background(), EventInput{Name: " ", PriceCents: -1, Capacity: -2})

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 4)
}

func TestUpdateEventKeepsCapacityAboveSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 10)
	_, err := f.svc.PurchaseTicket(ctx, buy(ev.ID, "a@x.com", 4))
	require.NoError(t, err)

	in := EventInput{Name: "Renamed", Date: ev.Date, Capacity: 3}
	_, err = f.svc.UpdateEvent(ctx, ev.ID, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	in.Capacity = 4
	got, err := f.svc.UpdateEvent(ctx, ev.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 4, got.TicketsSold)

	_, err = f.svc.UpdateEvent(ctx, 777, in)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestArchiveIsOneWay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 0)

	got, err := f.svc.ArchiveEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)

	got, err = f.svc.UpdateEvent(ctx, ev.ID, EventInput{Name: "Still archived", Date: ev.Date})
	require.NoError(t, err)
	assert.True(t, got.Archived)

	public, err := f.svc.ListEvents(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, public)
	all, err := f.svc.ListEvents(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteEventCascadesTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 0)
	res, err := f.svc.PurchaseTicket(ctx, buy(ev.ID, "a@x.com", 1))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteEvent(ctx, ev.ID))
	_, err = f.svc.GetTicket(ctx, res.Ticket.TicketID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteEvent(ctx, ev.ID), apperr.ErrNotFound)
}

func TestSyncEventsIgnoresClientSoldCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kept := f.event(t, 10)
	dropped := f.event(t, 10)
	archived := f.event(t, 0)
	_, err := f.svc.ArchiveEvent(ctx, archived.ID)
	require.NoError(t, err)

	_, err = f.svc.PurchaseTicket(ctx, buy(kept.ID, "a@x.com", 2))
	require.NoError(t, err)
	doomed, err := f.svc.PurchaseTicket(ctx, buy(dropped.ID, "a@x.com", 1))
	require.NoError(t, err)

	kept.Name = "Kept"
	kept.TicketsSold = 500
	archived.Archived = false
	fresh := model.Event{Name: "New night", Date: testNow.Add(30 * 24 * time.Hour), Capacity: 50, TicketsSold: 12}

	res, err := f.svc.SyncEvents(ctx, []model.Event{kept, archived, fresh})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Deleted)
	require.Len(t, res.Events, 3)

	byName := map[string]model.Event{}
	for _, e := range res.Events {
		byName[e.Name] = e
	}
	assert.Equal(t, 2, byName["Kept"].TicketsSold)
	assert.Equal(t, 0, byName["New night"].TicketsSold)
	assert.True(t, byName[archived.Name].Archived, "sync cannot unarchive")

	_, err = f.svc.GetTicket(ctx, doomed.Ticket.TicketID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSyncEventsKeepsCapacityAboveSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 5)
	_, err := f.svc.PurchaseTicket(ctx, buy(ev.ID, "a@x.com", 4))
	require.NoError(t, err)

	shrunk := ev
	shrunk.Capacity = 1
	_, err = f.svc.SyncEvents(ctx, []model.Event{shrunk})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "events[0].capacity")

	got, err := f.svc.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Capacity)
	assert.Equal(t, 4, got.TicketsSold)

	shrunk.Capacity = 4
	_, err = f.svc.SyncEvents(ctx, []model.Event{shrunk})
	require.NoError(t, err)
}

func TestSyncEventsValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.event(t, 0)

	_, err := f.svc.SyncEvents(ctx, []model.Event{{Name: "", Date: testNow}})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "events[0].name")

	_, err = f.svc.GetEvent(ctx, ev.ID)
	assert.NoError(t, err, "nothing deleted on a rejected sync")
}
