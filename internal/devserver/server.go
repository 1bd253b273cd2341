// Package devserver is an in-memory stand-in for the production backend:
// the four chat REST routes plus the push socket, enough to exercise the
// client end to end. State lives for the process lifetime; the session
// cookie carries the user id directly instead of a signed token.
package devserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"vibesphere/internal/transport"
)

type Server struct {
	log    *zap.Logger
	router *mux.Router

	mu       sync.Mutex
	users    map[string]transport.User
	chats    map[string]*transport.Conversation
	messages map[string][]transport.Message
	rooms    map[string]map[*roomConn]struct{}
}

func New(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		log:      log,
		users:    make(map[string]transport.User),
		chats:    make(map[string]*transport.Conversation),
		messages: make(map[string][]transport.Message),
		rooms:    make(map[string]map[*roomConn]struct{}),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.listChats).Methods(http.MethodGet)
	api.HandleFunc("/chat/open", s.openChat).Methods(http.MethodPost)
	api.HandleFunc("/chat/message/{chatId}", s.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/chat/message", s.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/user/all", s.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/socket", s.handleSocket)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser registers a user and returns it with an assigned id. The
// returned id doubles as that user's session cookie value.
func (s *Server) AddUser(username string) transport.User {
	user := transport.User{ID: uuid.NewString(), Username: username}
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
	return user
}

func (s *Server) currentUser(r *http.Request) (transport.User, bool) {
	cookie, err := r.Cookie("token")
	if err != nil {
		return transport.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[cookie.Value]
	return user, ok
}

func (s *Server) listChats(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s.mu.Lock()
	var chats []transport.Conversation
	for _, chat := range s.chats {
		if s.isMember(chat, user.ID) {
			chats = append(chats, *chat)
		}
	}
	s.mu.Unlock()

	// Most recent activity first, matching the production ordering.
	sort.Slice(chats, func(i, j int) bool {
		return lastActivity(chats[i]) > lastActivity(chats[j])
	})
	writeJSON(w, map[string]any{"chats": chats})
}

func (s *Server) openChat(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	other, ok := s.users[body.UserID]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	// Idempotent: reopening returns the existing conversation.
	for _, chat := range s.chats {
		if s.isMember(chat, user.ID) && s.isMember(chat, other.ID) {
			writeJSON(w, map[string]any{"chat": chat})
			return
		}
	}

	chat := &transport.Conversation{
		ID:      uuid.NewString(),
		Members: []transport.User{user, other},
	}
	s.chats[chat.ID] = chat
	writeJSON(w, map[string]any{"chat": chat})
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	chatID := mux.Vars(r)["chatId"]
	s.mu.Lock()
	chat, ok := s.chats[chatID]
	if !ok || !s.isMember(chat, user.ID) {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	messages := append([]transport.Message(nil), s.messages[chatID]...)
	s.mu.Unlock()

	writeJSON(w, map[string]any{"messages": messages})
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var body struct {
		ChatID string `json:"chatId"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if isBlank(body.Text) {
		writeError(w, http.StatusBadRequest, "message text is empty")
		return
	}

	s.mu.Lock()
	chat, ok := s.chats[body.ChatID]
	if !ok || !s.isMember(chat, user.ID) {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	msg := transport.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Sender:    user,
		Text:      body.Text,
		CreatedAt: time.Now().UTC(),
	}
	s.messages[chat.ID] = append(s.messages[chat.ID], msg)
	stored := msg
	chat.LastMessage = &stored
	s.mu.Unlock()

	writeJSON(w, map[string]any{"message": msg})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(r); !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	s.mu.Lock()
	users := make([]transport.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	writeJSON(w, map[string]any{"users": users})
}

func (s *Server) isMember(chat *transport.Conversation, userID string) bool {
	for _, m := range chat.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

func lastActivity(chat transport.Conversation) int64 {
	if chat.LastMessage == nil {
		return 0
	}
	return chat.LastMessage.CreatedAt.UnixNano()
}

func isBlank(text string) bool {
	for _, r := range text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
