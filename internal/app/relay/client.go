/*
Package relay contains the presence relay core.

This file defines Client, one live WebSocket connection. Its read pump forwards
frames to the hub in arrival order; its write pump drains the send queue. The
hub alone decides what a client is bound to and when it is closed.
*/
package relay

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"presence/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed between frames (including protocol pongs) from the client.
	pongWait = 60 * time.Second

	// frequency at which the write pump sends protocol-level Ping frames.
	pingPeriod = (pongWait * 9) / 10

	// capacity of each client's outbound queue.
	sendQueueSize = 256
)

var connectionSeq atomic.Uint64

// Client represents an active WebSocket connection.
type Client struct {
	hub *Hub

	// underlying WebSocket connection; nil for connections created in tests.
	conn *websocket.Conn

	// connID numbers connections for logs.
	connID uint64

	// a buffered channel of serialized messages waiting to be written.
	send chan []byte

	// userID is the identity bound by the last reconnect. Owned by the hub loop.
	userID string

	// closed is set by the hub loop once send has been closed.
	closed bool

	// backlogged is set while send is full, so the stall is logged once.
	backlogged bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for conn. The client is inert until registered with the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	connID := connectionSeq.Add(1)

	return &Client{
		hub:    hub,
		conn:   conn,
		connID: connID,
		send:   make(chan []byte, sendQueueSize),
		logger: logx.Logger().With().
			Str("component", "Client").
			Uint64("conn_id", connID).
			Logger(),
	}
}

// Serve registers the client with the hub and runs both pumps until the connection ends.
func (c *Client) Serve() {
	if !c.hub.Register(c) {
		c.logger.Warn().Msg("Hub is stopped. Closing new connection.")
		c.conn.Close()
		return
	}

	go c.WritePump()
	c.ReadPump()
}

// ReadPump reads frames from the socket and forwards them to the hub.
// It unregisters the client and closes the socket when reading fails.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageBytes)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error().Err(err).Msg("Failed to extend read deadline")
			break
		}

		if !c.hub.Inbound(c, messageBytes) {
			break
		}
	}
}

// cleanupOnDisconnect unregisters the client and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.hub.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued messages to the socket and keeps it alive with Ping frames.
// It exits when the hub closes the send queue or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingFrame() {
				return
			}
		}
	}
}

// writeQueuedMessage writes one message pulled from the send queue.
// Returns false when the pump should stop.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingFrame sends a protocol-level Ping frame.
func (c *Client) writePingFrame() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// sendBytes queues an already serialized message. Must be called from the hub loop.
// Closed clients and full queues are skipped; a full queue is logged once per stall
// and counted on every skip.
func (c *Client) sendBytes(message []byte) bool {
	if c.closed {
		c.hub.metrics.recordSkip("closed")
		return false
	}

	select {
	case c.send <- message:
		if c.backlogged {
			c.backlogged = false
			c.logger.Info().Str("user_id", c.userID).Msg("Client send queue drained, delivery resumed")
		}
		return true
	default:
		if !c.backlogged {
			c.backlogged = true
			c.logger.Warn().Int("queue_len", len(c.send)).Str("user_id", c.userID).Msg("Client send queue full, dropping messages until it drains")
		}
		c.hub.metrics.recordSkip("queue_full")
		return false
	}
}

// sendJSON marshals v and queues it. Must be called from the hub loop.
func (c *Client) sendJSON(v any) bool {
	messageBytes, err := json.Marshal(v)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling message for client")
		return false
	}
	return c.sendBytes(messageBytes)
}

// close closes the send queue, which makes the write pump close the socket.
// Must be called from the hub loop.
func (c *Client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
