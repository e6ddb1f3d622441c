package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"paroles/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxCommandSize = 4096
)

// Command is one control message from a host console.
type Command struct {
	Action  string  `json:"action"` // advance, reveal, reset, stop
	Seconds float64 `json:"seconds,omitempty"`
}

// CommandHandler consumes commands read from a connection.
type CommandHandler func(ctx context.Context, cmd Command)

// Bind returns a handler that drives the session with incoming commands.
func Bind(s *Session) CommandHandler {
	return func(ctx context.Context, cmd Command) {
		switch cmd.Action {
		case "advance":
			s.Advance(cmd.Seconds)
		case "reveal":
			s.Reveal()
		case "reset":
			s.Reset(cmd.Seconds)
		case "stop":
			s.Stop()
		default:
			logger.Warn("unknown session command",
				logger.String("room", s.ID),
				logger.String("action", cmd.Action),
			)
		}
	}
}

// WSClient adapts one websocket connection as a hub subscriber. The
// caller upgrades the connection; routing stays outside this package.
type WSClient struct {
	hub  *Hub
	sub  *Subscriber
	conn *websocket.Conn
}

// NewWSClient subscribes the connection to a room's snapshot stream.
// Start ReadPump and WritePump on their own goroutines afterwards.
func NewWSClient(hub *Hub, roomID string, conn *websocket.Conn) *WSClient {
	return &WSClient{
		hub:  hub,
		sub:  hub.Subscribe(roomID, 64),
		conn: conn,
	}
}

// ReadPump consumes commands until the connection drops. It owns the
// unsubscribe and the connection close.
func (c *WSClient) ReadPump(ctx context.Context, handler CommandHandler) {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxCommandSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.String("room", c.sub.RoomID),
					logger.ErrorField(err),
				)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			logger.Warn("invalid command payload",
				logger.String("room", c.sub.RoomID),
				logger.ErrorField(err),
			)
			continue
		}
		if handler != nil {
			handler(ctx, cmd)
		}
	}
}

// WritePump streams snapshots to the connection and keeps it alive with
// pings. It exits when the hub closes the subscription or a write fails.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.sub.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Flush whatever queued behind this snapshot in one frame.
			n := len(c.sub.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.sub.Send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
