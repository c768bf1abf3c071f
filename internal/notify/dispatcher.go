package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"uconnect/api/internal/metrics"
	"uconnect/api/internal/model"
)

const EventNewMessage = "new_message"

type envelope struct {
	Type string             `json:"type"`
	Data model.MessageEvent `json:"data"`
}

// Dispatcher fans new-message events out to recipients. With a Redis client
// every instance publishes to one channel and relays what it receives to its
// own hub; without one it delivers to the local hub directly.
type Dispatcher struct {
	hub     *Hub
	redis   *redis.Client
	channel string
	timeout time.Duration
	logger  *slog.Logger

	inflight sync.WaitGroup
}

func NewDispatcher(hub *Hub, client *redis.Client, channel string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{hub: hub, redis: client, channel: channel, timeout: timeout, logger: logger}
}

// NotifyNewMessage returns immediately; delivery outlives the request context.
func (d *Dispatcher) NotifyNewMessage(ctx context.Context, event model.MessageEvent) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.dispatch(ctx, event); err != nil {
			metrics.NotificationsDelivered.WithLabelValues("failed").Inc()
			d.logger.WarnContext(ctx, "notification failed", "conversation_id", event.ConversationID, "err", err)
		}
	}()
}

// Wait blocks until every in-flight notification has been handed off.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, event model.MessageEvent) error {
	payload, err := json.Marshal(envelope{Type: EventNewMessage, Data: event})
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if d.redis == nil {
		d.deliver(event.Recipients, payload)
		return nil
	}
	if err := d.redis.Publish(ctx, d.channel, payload).Err(); err != nil {
		d.deliver(event.Recipients, payload)
		return errors.Wrap(err, "publish event")
	}
	return nil
}

func (d *Dispatcher) deliver(recipients []string, payload []byte) {
	if n := d.hub.Deliver(recipients, payload); n > 0 {
		metrics.NotificationsDelivered.WithLabelValues("delivered").Add(float64(n))
		return
	}
	metrics.NotificationsDelivered.WithLabelValues("offline").Inc()
}

// Run relays events published by any instance to the local hub until ctx ends.
// It returns at once when no Redis client is configured.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d.redis == nil {
		return nil
	}
	sub := d.redis.Subscribe(ctx, d.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribe "+d.channel)
	}
	d.logger.Info("notification relay subscribed", "channel", d.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				d.logger.Warn("notification relay dropped payload", "err", err)
				continue
			}
			d.deliver(env.Data.Recipients, []byte(msg.Payload))
		}
	}
}
