package rabbit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	heartbeat         = 10 * time.Second
	reconnectAttempts = 5
)

var ErrClosed = errors.New("rabbitmq client is closed")

// RabbitMQ is a connection plus one channel that reconnects on demand.
type RabbitMQ struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	isClosed bool
	shutdown bool
	dsn      string

	log logger.Logger
}

// New creates rabbitMQ client
func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	r := &RabbitMQ{dsn: dsn, log: log}

	r.mu.Lock()
	err := r.dial()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ")
	return r, nil
}

// dial opens a connection and a channel and starts watching both. Caller holds mu.
func (r *RabbitMQ) dial() error {
	conn, err := amqp.DialConfig(r.dsn, amqp.Config{Heartbeat: heartbeat})
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	connClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClose := channel.NotifyClose(make(chan *amqp.Error, 1))

	r.conn = conn
	r.channel = channel
	r.isClosed = false

	go r.monitorConnection(conn, connClose, chClose)
	return nil
}

// monitorConnection marks the client closed when either the connection or the channel goes away.
func (r *RabbitMQ) monitorConnection(conn *amqp.Connection, connClose, chClose <-chan *amqp.Error) {
	var (
		closeErr *amqp.Error
		what     string
	)
	select {
	case closeErr = <-connClose:
		what = "connection"
	case closeErr = <-chClose:
		what = "channel"
	}

	r.mu.Lock()
	if r.conn == conn {
		r.isClosed = true
	}
	r.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)
	if closeErr != nil {
		r.log.Error(ctx, "RabbitMQ "+what+" closed with error", closeErr)
	} else {
		r.log.Debug(ctx, "RabbitMQ "+what+" closed gracefully")
	}
}

// Channel returns the current channel or ErrClosed.
func (r *RabbitMQ) Channel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isClosed || r.channel == nil {
		return nil, ErrClosed
	}
	return r.channel, nil
}

// IsConnectionClosed checks if the connection is closed
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closedLocked()
}

// Ping reports ErrClosed while the connection is down.
func (r *RabbitMQ) Ping(context.Context) error {
	if r.IsConnectionClosed() {
		return ErrClosed
	}
	return nil
}

func (r *RabbitMQ) closedLocked() bool {
	return r.isClosed || r.conn == nil || r.conn.IsClosed() || r.channel == nil || r.channel.IsClosed()
}

// DeclareTopicExchange declares a durable topic exchange.
func (r *RabbitMQ) DeclareTopicExchange(name string) error {
	ch, err := r.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

// Close closes the channel and the connection. Reconnect is refused afterwards.
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil
	}
	r.shutdown = true
	r.isClosed = true
	ch, conn := r.channel, r.conn
	r.channel, r.conn = nil, nil
	r.mu.Unlock()

	if ch != nil {
		r.log.Debug(ctx, "closing channel")
		if err := closeWithCtxFunc(ctx, ch.Close); err != nil && ctx.Err() == nil {
			r.log.Error(ctx, "error closing channel", err)
		}
	}

	if conn != nil {
		r.log.Debug(ctx, "closing RabbitMQ connection")
		if err := closeWithCtxFunc(ctx, conn.Close); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")
	return nil
}

// closeWithCtxFunc runs fn but gives up when ctx is done.
func closeWithCtxFunc(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reconnect dials again with linear backoff. It is a no-op while the connection is healthy.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return ErrClosed
	}
	if r.dsn == "" {
		return errors.New("dsn is empty: can't reconnect")
	}
	if !r.closedLocked() {
		return nil
	}

	var err error
	for i := range reconnectAttempts {
		if err = r.dial(); err == nil {
			break
		}

		wait := time.Duration(i+1) * 2 * time.Second
		r.log.Debug(ctx, "reconnect attempt failed", "attempt", i+1, "retry_in", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "RabbitMQ reconnected successfully")
	return nil
}

// EnsureConnection reconnects if the connection was lost.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	if r.IsConnectionClosed() {
		r.log.Warn(ctx, "rabbit connection closed, reconnecting")
		if err := r.Reconnect(ctx); err != nil {
			return err
		}
	}
	return nil
}
