package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"vibesphere/internal/transport"
)

const writeTimeout = 5 * time.Second

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wsOutFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type roomConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (rc *roomConn) write(v any) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, rc.conn, v)
}

// handleSocket owns one client connection: the first join frame places it
// in the sender's room, sendMessage frames relay to the receiver's room
// as newMessage events. Messages relayed here were already persisted via
// the REST route; the socket is only the delivery path.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", zap.Error(err))
		return
	}

	rc := &roomConn{conn: conn}
	var joinedUser string
	defer func() {
		if joinedUser != "" {
			s.leaveRoom(joinedUser, rc)
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := r.Context()
	for {
		var f wsFrame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return
		}

		switch f.Event {
		case "join":
			var userID string
			if err := json.Unmarshal(f.Data, &userID); err != nil || userID == "" {
				continue
			}
			if joinedUser != "" {
				s.leaveRoom(joinedUser, rc)
			}
			joinedUser = userID
			s.joinRoom(userID, rc)
			s.log.Debug("room joined", zap.String("userId", userID))

		case "sendMessage":
			var payload struct {
				ReceiverID string            `json:"receiverId"`
				Message    transport.Message `json:"message"`
			}
			if err := json.Unmarshal(f.Data, &payload); err != nil {
				continue
			}
			s.deliver(payload.ReceiverID, payload.Message)
		}
	}
}

func (s *Server) joinRoom(userID string, rc *roomConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[userID] == nil {
		s.rooms[userID] = make(map[*roomConn]struct{})
	}
	s.rooms[userID][rc] = struct{}{}
}

func (s *Server) leaveRoom(userID string, rc *roomConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms[userID], rc)
	if len(s.rooms[userID]) == 0 {
		delete(s.rooms, userID)
	}
}

func (s *Server) deliver(userID string, msg transport.Message) {
	s.mu.Lock()
	conns := make([]*roomConn, 0, len(s.rooms[userID]))
	for rc := range s.rooms[userID] {
		conns = append(conns, rc)
	}
	s.mu.Unlock()

	out := wsOutFrame{Event: "newMessage", Data: msg}
	for _, rc := range conns {
		if err := rc.write(out); err != nil {
			s.log.Debug("push delivery failed", zap.String("userId", userID), zap.Error(err))
		}
	}
}
