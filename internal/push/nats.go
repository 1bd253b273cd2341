package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"vibesphere/infrastructure"
	"vibesphere/internal/transport"
)

const userSubjectPrefix = "vibesphere.user."

func userSubject(userID string) string {
	return userSubjectPrefix + userID
}

var _ Channel = (*NATSChannel)(nil)

// NATSChannel delivers push events over core NATS pub/sub, one subject per
// user. Core (non-JetStream) delivery is deliberate: the channel contract
// is at-most-once with nothing queued while disconnected, which is exactly
// what core NATS provides. Reconnection and resubscription are handled by
// the NATS client itself.
type NATSChannel struct {
	url string
	log *zap.Logger

	mu      sync.Mutex
	nc      *nats.Conn
	sub     *nats.Subscription
	handler Handler
}

func NewNATSChannel(url string, log *zap.Logger) *NATSChannel {
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSChannel{url: url, log: log}
}

func (c *NATSChannel) Connect(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nc != nil {
		return nil
	}

	nc, err := nats.Connect(c.url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectJitter(500*time.Millisecond, time.Second),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", infrastructure.ErrNetwork, err)
	}

	sub, err := nc.Subscribe(userSubject(userID), func(m *nats.Msg) {
		var msg transport.Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			c.log.Warn("dropping malformed push message", zap.Error(err))
			return
		}
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler(Event{ConversationID: msg.ChatID, Message: msg})
		}
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to join room for %s: %w", userID, err)
	}

	c.nc = nc
	c.sub = sub
	c.log.Info("push channel connected", zap.String("userId", userID), zap.String("subject", userSubject(userID)))
	return nil
}

func (c *NATSChannel) OnMessage(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *NATSChannel) EmitSend(receiverID string, msg transport.Message) {
	c.mu.Lock()
	nc := c.nc
	c.mu.Unlock()
	if nc == nil {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Debug("emit failed", zap.Error(err))
		return
	}
	if err := nc.Publish(userSubject(receiverID), data); err != nil {
		c.log.Debug("emit failed", zap.Error(err))
	}
}

func (c *NATSChannel) Disconnect() error {
	c.mu.Lock()
	nc := c.nc
	sub := c.sub
	c.nc = nil
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if nc != nil {
		nc.Close()
	}
	return nil
}
