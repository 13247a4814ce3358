package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second

	// sendQueue is how many messages may wait for a slow peer before Send gives up on it.
	sendQueue = 32
)

var (
	ErrConnClosed   = errors.New("connection is closed")
	ErrSlowConsumer = errors.New("connection send queue is full")
)

// Conn is a websocket connection subscribed to one topic.
// Send only queues the message; a single writer goroutine does the socket writes.
// Reads must come from a single goroutine.
type Conn struct {
	id      uuid.UUID
	topic   uuid.UUID
	conn    *websocket.Conn
	doneCtx context.Context
	cancel  context.CancelFunc

	send chan any

	mu     sync.Mutex
	closed bool
}

func NewConn(ctx context.Context, topic uuid.UUID, conn *websocket.Conn) *Conn {
	ctx, cancel := context.WithCancel(ctx)

	c := &Conn{
		id:      uuid.New(),
		topic:   topic,
		conn:    conn,
		doneCtx: ctx,
		cancel:  cancel,
		send:    make(chan any, sendQueue),
	}
	if conn != nil {
		go c.writeLoop()
	}
	return c
}

func (c *Conn) ID() uuid.UUID    { return c.id }
func (c *Conn) Topic() uuid.UUID { return c.topic }

// Done is closed once the connection is closed or a write fails.
func (c *Conn) Done() <-chan struct{} { return c.doneCtx.Done() }

// Send queues msg to be written as a JSON text frame. It never waits for the peer.
func (c *Conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.conn == nil {
		return ErrConnClosed
	}
	if err := c.doneCtx.Err(); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// writeLoop writes queued messages until Close, then says goodbye and closes the socket.
// After a failed write the rest of the queue is discarded.
func (c *Conn) writeLoop() {
	failed := false
	for msg := range c.send {
		if failed {
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			failed = true
			c.cancel()
			_ = c.conn.Close()
		}
	}
	if failed {
		return
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	_ = c.conn.Close()
}

// ReadJSON reads the next message into v, waiting at most timeout when it is positive.
func (c *Conn) ReadJSON(v any, timeout time.Duration) error {
	if timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
		defer c.conn.SetReadDeadline(time.Time{})
	}
	if err := c.conn.ReadJSON(v); err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	return nil
}

// Listen reads messages until the peer goes away or handler fails.
func (c *Conn) Listen(handler func(msg map[string]any) error) error {
	for {
		select {
		case <-c.doneCtx.Done():
			return errors.New("listen stopped: context done")
		default:
		}

		var msg map[string]any
		if err := c.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		if err := handler(msg); err != nil {
			return fmt.Errorf("handler failed: %w", err)
		}
	}
}

// Close is safe to call more than once. Messages already queued are still flushed.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	close(c.send)
	return nil
}
