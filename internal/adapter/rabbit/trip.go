package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/Temutjin2k/ispeed/pkg/metrics"
	"github.com/Temutjin2k/ispeed/pkg/rabbit"
)

const publishAttempts = 3

// TripBroker publishes trip lifecycle events to the trip topic exchange.
type TripBroker struct {
	client   *rabbit.RabbitMQ
	exchange string

	l logger.Logger
}

func NewTripBroker(client *rabbit.RabbitMQ, log logger.Logger) (*TripBroker, error) {
	if err := client.DeclareTopicExchange(types.TripExchange); err != nil {
		return nil, err
	}

	return &TripBroker{
		client:   client,
		exchange: types.TripExchange,
		l:        log,
	}, nil
}

// PublishTripStarted sends trip.started.<driver_id>.
func (b *TripBroker) PublishTripStarted(ctx context.Context, msg models.TripStartedMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_trip_started")
	return b.publish(ctx, types.EventTripStarted.RoutingKey(msg.DriverID.String()), msg.CorrelationID, msg)
}

// PublishTripFinished sends trip.finished.<driver_id>.
func (b *TripBroker) PublishTripFinished(ctx context.Context, msg models.TripFinishedMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_trip_finished")
	return b.publish(ctx, types.EventTripFinished.RoutingKey(msg.DriverID.String()), msg.CorrelationID, msg)
}

func (b *TripBroker) publish(ctx context.Context, key, correlationID string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	if correlationID == "" {
		correlationID = wrap.GetRequestID(ctx)
	}

	err = retry(ctx, publishAttempts, 500*time.Millisecond, func() error {
		if err := b.client.EnsureConnection(ctx); err != nil {
			return err
		}
		ch, err := b.client.Channel()
		if err != nil {
			return err
		}
		return ch.PublishWithContext(ctx,
			b.exchange, // exchange
			key,        // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent,
				CorrelationId: correlationID,
				Body:          body,
				Timestamp:     time.Now(),
			},
		)
	})
	metrics.RecordPublish(types.APIService.String(), key, err)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("publish %s: %w", key, err))
	}

	b.l.Debug(ctx, "event published", "routing_key", key)
	return nil
}
