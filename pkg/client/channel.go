// Package client is the Go client for the relay: a pub/sub wrapper over the
// realtime socket plus the local match/lobby session state.
package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/harshdev2909/Gorbagana-Trash-Royale/internal/protocol"
)

// Handler receives the data payload of one matching event.
type Handler func(data json.RawMessage)

// Channel is a thin pub/sub layer over one websocket connection. Delivery is
// at-most-once with no ordering across clients; a dropped connection stops
// updates until the caller dials again.
type Channel struct {
	conn *websocket.Conn
	log  *zap.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]map[int]Handler
	nextID   int
	closed   bool
	done     chan struct{}
}

// Dial connects to the relay and starts dispatching inbound events.
func Dial(url string, log *zap.Logger) (*Channel, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c := &Channel{
		conn:     conn,
		log:      log,
		handlers: make(map[string]map[int]Handler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Channel) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug("channel read ended", zap.Error(err))
			return
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			// Malformed frames are dropped, not fatal.
			c.log.Debug("dropping malformed frame", zap.Error(err))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Channel) dispatch(env protocol.Envelope) {
	c.mu.Lock()
	hs := make([]Handler, 0, len(c.handlers[env.Event]))
	for _, h := range c.handlers[env.Event] {
		hs = append(hs, h)
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(env.Data)
	}
}

// Send fires one event at the relay. There is no acknowledgement.
func (c *Channel) Send(event, matchID string, payload any) error {
	frame, err := protocol.Encode(event, matchID, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// On subscribes a handler and returns its subscription id for Off.
func (c *Channel) On(event string, h Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]Handler)
	}
	c.nextID++
	c.handlers[event][c.nextID] = h
	return c.nextID
}

// Off removes one subscription; id 0 removes every handler for the event.
func (c *Channel) Off(event string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id == 0 {
		delete(c.handlers, event)
		return
	}
	delete(c.handlers[event], id)
}

// Close sends a close frame and tears the connection down.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	select {
	case <-c.done:
	case <-time.After(time.Second):
	}
	return c.conn.Close()
}
