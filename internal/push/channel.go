// Package push maintains the persistent event channel used for
// server-to-client message delivery outside the request/response cycle.
package push

import (
	"context"

	"vibesphere/internal/transport"
)

// Event is one inbound message delivery, normalized from the wire shape
// at the adapter edge.
type Event struct {
	ConversationID string
	Message        transport.Message
}

// Handler is invoked once per inbound event. Exactly one handler is
// active at a time; registering a new one replaces the previous.
type Handler func(Event)

// Channel is a persistent connection scoped to one user's room, so
// messages addressed to that user arrive regardless of which conversation
// is active. Delivery is at-most-once: nothing is queued while
// disconnected. Reconnection after a transient drop is the adapter's
// responsibility and must re-join the same room.
type Channel interface {
	Connect(ctx context.Context, userID string) error
	OnMessage(h Handler)
	// EmitSend notifies the other participant that a message was sent.
	// It is fire-and-forget: the message is already durably stored via
	// the transport client before this is called.
	EmitSend(receiverID string, msg transport.Message)
	Disconnect() error
}
