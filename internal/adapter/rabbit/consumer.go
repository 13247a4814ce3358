package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/metrics"
	"github.com/Temutjin2k/ispeed/pkg/rabbit"
	amqp "github.com/rabbitmq/amqp091-go"
)

const retryDelay = 2 * time.Second

type TripFinishedHandler func(ctx context.Context, msg models.TripFinishedMessage) error

// TripConsumer reads trip events from a queue bound to the trip exchange.
type TripConsumer struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewTripConsumer(client *rabbit.RabbitMQ, l logger.Logger) *TripConsumer {
	return &TripConsumer{client: client, l: l}
}

func (c *TripConsumer) declareAndBindQueue(ctx context.Context, ch *amqp.Channel, queueName, bindingKey string) (amqp.Queue, error) {
	const op = "TripConsumer.declareAndBindQueue"

	if err := ch.ExchangeDeclare(types.TripExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, wrap.Error(ctx, fmt.Errorf("%s: declare exchange failed: %w", op, err))
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: declare queue failed: %w", op, err))
	}

	if err := ch.QueueBind(q.Name, bindingKey, types.TripExchange, false, nil); err != nil {
		return q, wrap.Error(ctx, fmt.Errorf("%s: bind queue failed: %w", op, err))
	}

	return q, nil
}

// ConsumeTripFinished delivers trip.finished.* messages to fn until ctx is done.
// Messages are processed one at a time and acked after fn succeeds.
func (c *TripConsumer) ConsumeTripFinished(ctx context.Context, fn TripFinishedHandler) error {
	const op = "TripConsumer.ConsumeTripFinished"
	ctx = wrap.WithAction(ctx, "consume_trip_finished")

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := c.client.EnsureConnection(ctx); err != nil {
			c.l.Error(ctx, "ensure connection failed", err, "op", op)
			if !sleepCtx(ctx, retryDelay) {
				return nil
			}
			continue
		}

		ch, err := c.client.Channel()
		if err != nil {
			if !sleepCtx(ctx, retryDelay) {
				return nil
			}
			continue
		}

		q, err := c.declareAndBindQueue(ctx, ch, types.DriverStatsQueue, types.EventTripFinished.RoutingKey("*"))
		if err != nil {
			c.l.Error(ctx, "declare queue failed", err, "op", op)
			if !sleepCtx(ctx, retryDelay) {
				return nil
			}
			continue
		}

		if err := ch.Qos(1, 0, false); err != nil {
			c.l.Warn(ctx, "set qos failed", "error", err.Error())
		}

		msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
		if err != nil {
			c.l.Error(ctx, "consume failed", err, "op", op)
			if !sleepCtx(ctx, retryDelay) {
				return nil
			}
			continue
		}

		c.l.Info(ctx, "start consuming finished trips", "queue", q.Name)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				c.l.Info(ctx, "trip consumer shutting down")
				return nil

			case msg, ok := <-msgs:
				if !ok {
					c.l.Warn(ctx, "message channel closed, reconnecting", "op", op)
					break consumeLoop
				}
				c.handleMessage(ctx, fn, msg)
			}
		}
	}
}

func (c *TripConsumer) handleMessage(ctx context.Context, fn TripFinishedHandler, msg amqp.Delivery) {
	const op = "TripConsumer.handleMessage"

	var req models.TripFinishedMessage
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		c.l.Error(ctx, "decode failed", err, "op", op)
		metrics.RecordConsume(types.StatsService.String(), types.DriverStatsQueue, err)
		_ = msg.Nack(false, false)
		return
	}

	ctx = wrap.WithLogCtx(ctx, wrap.LogCtx{TripID: req.TripID.String(), RequestID: msg.CorrelationId})

	err := fn(ctx, req)
	metrics.RecordConsume(types.StatsService.String(), types.DriverStatsQueue, err)
	if err != nil {
		if errors.Is(err, ErrPermanent) || errors.Is(err, types.ErrInvalidInput) {
			c.l.Warn(ctx, "dropping message", "reason", err.Error())
			_ = msg.Reject(false)
			return
		}
		c.l.Error(ctx, "handler failed, requeueing", err, "op", op)
		_ = msg.Nack(false, true)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.l.Warn(ctx, "ack failed", "error", err.Error(), "op", op)
	}
}
