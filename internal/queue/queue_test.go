package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatActivity(t *testing.T) {
	body, err := json.Marshal(TicketRedeemedEvent{
		TicketID: "t-1", EventID: 3, Quantity: 2, UsedCount: 3, Total: 4, RedeemedAt: "2026-06-01T23:00:00Z",
	})
	require.NoError(t, err)

	line, err := FormatActivity(TicketRedeemedQueue, body)
	require.NoError(t, err)
	assert.Equal(t, "[2026-06-01T23:00:00Z] Ticket redeemed | ticket_id=t-1 | event_id=3 | admitted=2 | used=3/4\n", line)

	_, err = FormatActivity("nope", body)
	assert.Error(t, err)
	_, err = FormatActivity(MerchSoldQueue, []byte("{"))
	assert.Error(t, err)
}

func TestEveryEventHasAQueue(t *testing.T) {
	for _, ev := range []Event{TicketPurchasedEvent{}, TicketRedeemedEvent{}, MerchSoldEvent{}, MerchDeliveredEvent{}} {
		assert.Contains(t, Queues, ev.RoutingKey())
	}
}

func TestConsumerHandleAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")
	c := &ActivityConsumer{LogPath: path}

	body, _ := json.Marshal(MerchDeliveredEvent{SaleID: "s-1", ItemName: "Fan", DragName: "web", Quantity: 1, DeliveredAt: "x"})
	require.NoError(t, c.handle(MerchDeliveredQueue, body))
	require.NoError(t, c.handle(MerchDeliveredQueue, body))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), MerchSoldEvent{SaleID: "a"}))
	require.NoError(t, Nop{}.Publish(context.Background(), MerchSoldEvent{}))
	assert.Equal(t, []Event{MerchSoldEvent{SaleID: "a"}}, r.Events())
}
