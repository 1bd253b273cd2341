package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"vibesphere/infrastructure"
	"vibesphere/internal/transport"
)

// Wire envelope. The production server speaks named events over one
// socket: "join" and "sendMessage" outbound, "newMessage" inbound.
const (
	eventJoin        = "join"
	eventSendMessage = "sendMessage"
	eventNewMessage  = "newMessage"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type sendPayload struct {
	ReceiverID string            `json:"receiverId"`
	Message    transport.Message `json:"message"`
}

var _ Channel = (*WSChannel)(nil)

// WSChannel is the default Channel adapter: a single websocket that joins
// the per-user room after every (re)connect and redials with exponential
// backoff and jitter after a transient drop.
type WSChannel struct {
	url string
	log *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	handler Handler
	userID  string
	cancel  context.CancelFunc
}

func NewWSChannel(url string, log *zap.Logger) *WSChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSChannel{url: url, log: log}
}

func (c *WSChannel) Connect(ctx context.Context, userID string) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.userID = userID
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", infrastructure.ErrNetwork, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx)
	c.log.Info("push channel connected", zap.String("userId", userID))
	return nil
}

func (c *WSChannel) OnMessage(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *WSChannel) EmitSend(receiverID string, msg transport.Message) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		c.log.Debug("emit skipped, not connected", zap.String("receiverId", receiverID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := wsjson.Write(ctx, conn, outFrame{
		Event: eventSendMessage,
		Data:  sendPayload{ReceiverID: receiverID, Message: msg},
	})
	if err != nil {
		// Best effort only: the message is already stored server-side.
		c.log.Debug("emit failed", zap.Error(err))
	}
}

func (c *WSChannel) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	return nil
}

// dial opens the socket and joins the user's room. Joining is part of
// dialing so a reconnect can never observe a joined-less connection.
func (c *WSChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()

	if err := wsjson.Write(ctx, conn, outFrame{Event: eventJoin, Data: userID}); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "join failed")
		return nil, err
	}
	return conn, nil
}

func (c *WSChannel) run(ctx context.Context) {
	for {
		err := c.readLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("push connection lost, reconnecting", zap.Error(err))

		conn, err := c.redial(ctx)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.log.Info("push channel reconnected")
	}
}

func (c *WSChannel) readLoop(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return infrastructure.ErrNotConnected
	}

	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return err
		}
		if f.Event != eventNewMessage {
			continue
		}

		var msg transport.Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			c.log.Warn("dropping malformed push frame", zap.Error(err))
			continue
		}

		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(Event{ConversationID: msg.ChatID, Message: msg})
		}
	}
}

func (c *WSChannel) redial(ctx context.Context) (*websocket.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0 // retry until Disconnect cancels the context

	var conn *websocket.Conn
	op := func() error {
		var err error
		conn, err = c.dial(ctx)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return conn, nil
}
