package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/ispeed/pkg/logger"
	wrap "github.com/Temutjin2k/ispeed/pkg/logger/wrapper"
	"github.com/google/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
	ErrHubClosed      = errors.New("hub is closed")
)

// ConnectionHub keeps the active websocket connections grouped by topic.
// Any number of connections may watch the same topic.
type ConnectionHub struct {
	topics map[uuid.UUID]map[uuid.UUID]*Conn
	closed bool
	l      logger.Logger
	mu     sync.Mutex

	// OnChange, when set, receives the total number of connections after every change.
	OnChange func(total int)
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		topics: make(map[uuid.UUID]map[uuid.UUID]*Conn),
		l:      l,
	}
}

// Add registers the connection under its topic.
func (h *ConnectionHub) Add(c *Conn) error {
	if c == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	conns, ok := h.topics[c.topic]
	if !ok {
		conns = make(map[uuid.UUID]*Conn)
		h.topics[c.topic] = conns
	}
	conns[c.id] = c
	total := h.lenLocked()
	h.mu.Unlock()

	h.changed(total)
	return nil
}

// Remove unregisters and closes the connection.
func (h *ConnectionHub) Remove(c *Conn) error {
	if c == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	conns, ok := h.topics[c.topic]
	if ok {
		_, ok = conns[c.id]
	}
	if ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(h.topics, c.topic)
		}
	}
	total := h.lenLocked()
	h.mu.Unlock()

	if err := c.Close(); err != nil {
		h.l.Debug(wrap.WithAction(context.Background(), "ws_connection_remove"), "failed to close conn", "conn_id", c.id, "err", err.Error())
	}
	if !ok {
		return ErrConnIsNotFound
	}

	h.changed(total)
	return nil
}

// Broadcast sends msg to every connection of the topic and drops the ones that fail.
// It returns the number of successful deliveries.
func (h *ConnectionHub) Broadcast(topic uuid.UUID, msg any) int {
	conns := h.Subscribers(topic)

	sent := 0
	for _, c := range conns {
		if err := c.Send(msg); err != nil {
			h.l.Debug(wrap.WithAction(context.Background(), "ws_broadcast"), "dropping connection", "conn_id", c.id, "err", err.Error())
			_ = h.Remove(c)
			continue
		}
		sent++
	}
	return sent
}

// CloseTopic sends msg, when not nil, and closes every connection of the topic.
func (h *ConnectionHub) CloseTopic(topic uuid.UUID, msg any) {
	for _, c := range h.Subscribers(topic) {
		if msg != nil {
			_ = c.Send(msg)
		}
		_ = h.Remove(c)
	}
}

// Subscribers returns a copy of the connections watching topic.
func (h *ConnectionHub) Subscribers(topic uuid.UUID) []*Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make([]*Conn, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		conns = append(conns, c)
	}
	return conns
}

// Len returns the total number of connections.
func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lenLocked()
}

func (h *ConnectionHub) lenLocked() int {
	n := 0
	for _, conns := range h.topics {
		n += len(conns)
	}
	return n
}

// Close closes every websocket connection. Add fails afterwards.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	h.closed = true
	var all []*Conn
	for _, conns := range h.topics {
		for _, c := range conns {
			all = append(all, c)
		}
	}
	h.topics = make(map[uuid.UUID]map[uuid.UUID]*Conn)
	h.mu.Unlock()

	for _, c := range all {
		_ = c.Close()
	}
	h.changed(0)

	h.l.Info(ctx, "all websocket connections closed gracefully", "closed", len(all))
}

func (h *ConnectionHub) changed(total int) {
	if h.OnChange != nil {
		h.OnChange(total)
	}
}
