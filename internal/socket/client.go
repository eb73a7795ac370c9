package socket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/slotter-org/aristo-backend/internal/logger"
)

// InboundMessage is what a browser may send on the events socket.
type InboundMessage struct {
	Action  string `json:"action,omitempty"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel,omitempty"`
}

const (
	OutboundChanBuffer = 256

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 1 << 20
)

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Admin    bool
	Conn     *websocket.Conn
	Hub      *Hub
	Log      *logger.Logger
	Outbound chan Message

	cancelFn  context.CancelFunc
	closeOnce sync.Once
}

// NewClient wires a connection for userID. cancel stops the sibling pump when either side ends.
func NewClient(conn *websocket.Conn, hub *Hub, userID uuid.UUID, cancel context.CancelFunc, log *logger.Logger) *Client {
	id := uuid.New()
	return &Client{
		ID:       id,
		UserID:   userID,
		Conn:     conn,
		Hub:      hub,
		Log:      log.With("client", id, "userID", userID),
		Outbound: make(chan Message, OutboundChanBuffer),
		cancelFn: cancel,
	}
}

func (c *Client) ReadLoop(ctx context.Context)  { c.readLoop(ctx) }
func (c *Client) WriteLoop(ctx context.Context) { c.writeLoop(ctx) }

func (c *Client) readLoop(ctx context.Context) {
	defer c.close()

	c.Conn.SetReadLimit(readLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			c.Log.Debug("websocket read error, closing client", "error", err)
			return
		}
		var inbound InboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			c.Log.Debug("failed to unmarshal inbound message", "error", err, "raw", string(data))
			continue
		}
		c.handleInbound(inbound)
	}
}

func (c *Client) handleInbound(inbound InboundMessage) {
	switch inbound.Action {
	case "subscribe":
		if err := c.Hub.SubscribeChecked(c, inbound.Channel); err != nil {
			c.Log.Debug("subscribe refused", "channel", inbound.Channel, "error", err)
			c.send(Message{Channel: inbound.Channel, Event: EventError, Data: err.Error()})
		}
	case "unsubscribe":
		if inbound.Channel != "" {
			c.Hub.UnsubscribeFromChannel(c, inbound.Channel)
		}
	default:
		c.Log.Debug("inbound WS message unhandled", "message", inbound)
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-ctx.Done():
			c.Log.Debug("writeLoop ctx done, shutting down")
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.Outbound:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.writeJSON(msg); err != nil {
				c.Log.Warn("failed writing JSON", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Log.Debug("ping error, shutting down", "error", err)
				return
			}
		}
	}
}

// send queues msg without blocking; a full buffer drops it.
func (c *Client) send(msg Message) bool {
	select {
	case c.Outbound <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) writeJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	if _, err = w.Write(payload); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// close runs once for both pumps. Outbound stays open: the hub may still hold a reference
// until Unsubscribe returns, and sends never block.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.Log.Debug("closing client connection")
		if c.cancelFn != nil {
			c.cancelFn()
		}
		if c.Hub != nil {
			c.Hub.Unsubscribe(c)
		}
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	})
}

var ErrChannelForbidden = errors.New("channel not allowed for this client")
