package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ActivityConsumer appends every domain event to a single-line activity log
// (logs/activity.log by default) so door staff and organisers can follow
// sales and check-ins without querying the database.
type ActivityConsumer struct {
	URL     string
	LogPath string
	Log     logrus.FieldLogger
}

// Run connects, consumes all event queues and reconnects with backoff until
// ctx is cancelled.
func (c *ActivityConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.WithError(err).Warnf("activity-consumer: dial failed, retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.WithError(err).Warn("activity-consumer: consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type delivery struct {
	queue string
	amqp.Delivery
}

func (c *ActivityConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.WithError(err).Warn("activity-consumer: set QoS failed")
	}

	merged := make(chan delivery)
	done := make(chan struct{})
	defer close(done)
	for _, q := range Queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go func(q string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{queue: q, Delivery: d}:
				case <-done:
					return
				}
			}
		}(q, msgs)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d := <-merged:
			if err := c.handle(d.queue, d.Body); err != nil {
				c.Log.WithError(err).WithField("queue", d.queue).Error("activity-consumer: handle message failed")
				_ = d.Nack(false, false) // do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *ActivityConsumer) handle(queue string, body []byte) error {
	line, err := FormatActivity(queue, body)
	if err != nil {
		return err
	}
	path := c.LogPath
	if path == "" {
		path = filepath.Join("logs", "activity.log")
	}
	return appendLine(path, line)
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatActivity renders one message as a newline terminated log line.
func FormatActivity(queue string, body []byte) (string, error) {
	switch queue {
	case TicketPurchasedQueue:
		var ev TicketPurchasedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Ticket purchased | ticket_id=%s | event_id=%d | event=%q | email=%s | quantity=%d | sold=%d\n",
			ev.PurchasedAt, ev.TicketID, ev.EventID, ev.EventName, ev.Email, ev.Quantity, ev.TicketsSold), nil
	case TicketRedeemedQueue:
		var ev TicketRedeemedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Ticket redeemed | ticket_id=%s | event_id=%d | admitted=%d | used=%d/%d\n",
			ev.RedeemedAt, ev.TicketID, ev.EventID, ev.Quantity, ev.UsedCount, ev.Total), nil
	case MerchSoldQueue:
		var ev MerchSoldEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Merch sold | sale_id=%s | seller=%q | item=%q | quantity=%d | total=%d cents | email=%s\n",
			ev.SoldAt, ev.SaleID, ev.DragName, ev.ItemName, ev.Quantity, ev.TotalCents, ev.Email), nil
	case MerchDeliveredQueue:
		var ev MerchDeliveredEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Merch delivered | sale_id=%s | seller=%q | item=%q | quantity=%d\n",
			ev.DeliveredAt, ev.SaleID, ev.DragName, ev.ItemName, ev.Quantity), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
