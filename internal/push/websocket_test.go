package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"vibesphere/internal/transport"
)

// pushServer is a minimal stand-in for the messaging server: it records
// the join frame, delivers one scripted message, and echoes back any
// sendMessage frames it receives.
type pushServer struct {
	srv    *httptest.Server
	joined chan string
	sent   chan sendPayload
	// deliver is the message pushed to the client after it joins.
	deliver transport.Message
}

func newPushServer(t *testing.T, deliver transport.Message) *pushServer {
	t.Helper()
	ps := &pushServer{
		joined:  make(chan string, 1),
		sent:    make(chan sendPayload, 4),
		deliver: deliver,
	}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var join frame
		if err := wsjson.Read(ctx, conn, &join); err != nil || join.Event != eventJoin {
			return
		}
		var userID string
		_ = json.Unmarshal(join.Data, &userID)
		ps.joined <- userID

		if ps.deliver.ID != "" {
			_ = wsjson.Write(ctx, conn, outFrame{Event: eventNewMessage, Data: ps.deliver})
		}

		for {
			var f frame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				return
			}
			if f.Event == eventSendMessage {
				var p sendPayload
				if json.Unmarshal(f.Data, &p) == nil {
					ps.sent <- p
				}
			}
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) wsURL() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func TestWSChannelJoinsRoomAndDelivers(t *testing.T) {
	inbound := transport.Message{ID: "m1", ChatID: "c1", Text: "hi there"}
	server := newPushServer(t, inbound)

	ch := NewWSChannel(server.wsURL(), nil)
	events := make(chan Event, 1)
	ch.OnMessage(func(ev Event) { events <- ev })

	require.NoError(t, ch.Connect(context.Background(), "u1"))
	defer ch.Disconnect()

	select {
	case userID := <-server.joined:
		assert.Equal(t, "u1", userID)
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the join frame")
	}

	select {
	case ev := <-events:
		assert.Equal(t, "c1", ev.ConversationID)
		assert.Equal(t, "m1", ev.Message.ID)
		assert.Equal(t, "hi there", ev.Message.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("handler never received the pushed message")
	}
}

func TestWSChannelEmitSend(t *testing.T) {
	server := newPushServer(t, transport.Message{})

	ch := NewWSChannel(server.wsURL(), nil)
	require.NoError(t, ch.Connect(context.Background(), "u1"))
	defer ch.Disconnect()

	<-server.joined

	msg := transport.Message{ID: "m9", ChatID: "c1", Text: "sent"}
	ch.EmitSend("u2", msg)

	select {
	case p := <-server.sent:
		assert.Equal(t, "u2", p.ReceiverID)
		assert.Equal(t, "m9", p.Message.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the sendMessage frame")
	}
}

func TestWSChannelEmitWhileDisconnectedIsSilent(t *testing.T) {
	ch := NewWSChannel("ws://127.0.0.1:1", nil)
	// Must not panic or block: fire-and-forget.
	ch.EmitSend("u2", transport.Message{ID: "m1"})
}

func TestWSChannelHandlerReplacement(t *testing.T) {
	inbound := transport.Message{ID: "m1", ChatID: "c1", Text: "hi"}
	server := newPushServer(t, inbound)

	ch := NewWSChannel(server.wsURL(), nil)
	stale := make(chan Event, 1)
	fresh := make(chan Event, 1)
	ch.OnMessage(func(ev Event) { stale <- ev })
	// Replacing the handler before connect: only the fresh one may fire.
	ch.OnMessage(func(ev Event) { fresh <- ev })

	require.NoError(t, ch.Connect(context.Background(), "u1"))
	defer ch.Disconnect()

	select {
	case <-fresh:
	case <-time.After(5 * time.Second):
		t.Fatal("replacement handler never fired")
	}
	select {
	case <-stale:
		t.Fatal("replaced handler must not receive events")
	default:
	}
}

func TestWSChannelDisconnectIdempotent(t *testing.T) {
	server := newPushServer(t, transport.Message{})

	ch := NewWSChannel(server.wsURL(), nil)
	require.NoError(t, ch.Connect(context.Background(), "u1"))

	assert.NoError(t, ch.Disconnect())
	assert.NoError(t, ch.Disconnect())
	// Safe even when never connected.
	assert.NoError(t, NewWSChannel(server.wsURL(), nil).Disconnect())
}

func TestWSChannelConnectFailureIsTyped(t *testing.T) {
	ch := NewWSChannel("ws://127.0.0.1:1", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := ch.Connect(ctx, "u1")
	require.Error(t, err)
}
