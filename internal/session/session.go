// Package session holds the client-side conversation store: one user's
// conversation list and the active conversation's timeline, kept
// consistent across request/response calls and the asynchronous push
// channel while the user is composing and sending messages.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vibesphere/infrastructure"
	"vibesphere/internal/push"
	"vibesphere/internal/transport"
)

const refreshTimeout = 10 * time.Second

// Transport is the subset of the REST client the store depends on.
type Transport interface {
	ListConversations(ctx context.Context) ([]transport.Conversation, error)
	OpenConversation(ctx context.Context, otherUserID string) (*transport.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]transport.Message, error)
	SendMessage(ctx context.Context, conversationID, text string) (*transport.Message, error)
}

var _ Transport = (*transport.Client)(nil)

// Snapshot is a copy-on-read view handed to presentation. It shares no
// mutable state with the session.
type Snapshot struct {
	State         State
	User          transport.User
	Conversations []transport.Conversation
	Active        *transport.Conversation
	Messages      []transport.Message
}

// Session is the conversation store. All state updates are serialized
// through one mutex, so every event (intent completion or push arrival)
// is applied atomically: presentation never observes a partial update.
// Network calls happen outside the lock; each select flow captures a
// generation before its first await and re-checks it before applying, so
// a response that arrives after the user moved on is discarded.
type Session struct {
	api     Transport
	channel push.Channel
	log     *zap.Logger
	notify  func()

	mu            sync.Mutex
	state         State
	user          transport.User
	conversations []transport.Conversation
	active        *transport.Conversation
	messages      []transport.Message
	seen          map[string]struct{}
	// selectGen invalidates in-flight select flows; epoch invalidates
	// in-flight conversation-list refreshes. Both bump on logout.
	selectGen uint64
	epoch     uint64
}

type Option func(*Session)

func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithNotify registers a callback invoked after every applied state
// change. Presentation uses it to re-read Snapshot.
func WithNotify(fn func()) Option {
	return func(s *Session) { s.notify = fn }
}

func New(api Transport, channel push.Channel, opts ...Option) *Session {
	s := &Session{
		api:     api,
		channel: channel,
		log:     zap.NewNop(),
		state:   StateNoUser,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login brings the session to NoConversation for the given user: the push
// channel joins the user's room and the conversation list is loaded. A
// channel that cannot connect fails the login; a list that cannot load
// does not (the list refreshes on the next push anyway).
func (s *Session) Login(ctx context.Context, user transport.User) error {
	s.mu.Lock()
	if s.state != StateNoUser {
		s.mu.Unlock()
		return fmt.Errorf("already logged in as %s", s.user.Username)
	}
	s.user = user
	s.state = StateNoConversation
	s.seen = make(map[string]struct{})
	epoch := s.epoch
	s.mu.Unlock()

	s.channel.OnMessage(s.handlePush)
	if err := s.channel.Connect(ctx, user.ID); err != nil {
		s.mu.Lock()
		s.state = StateNoUser
		s.user = transport.User{}
		s.mu.Unlock()
		return fmt.Errorf("failed to connect push channel: %w", err)
	}
	s.changed()

	s.refreshConversations(ctx, epoch)
	return nil
}

// SelectConversation opens (or creates) the conversation with the given
// user and loads its history. If another select or a logout happens while
// this one is in flight, the late responses are discarded.
func (s *Session) SelectConversation(ctx context.Context, otherUserID string) error {
	s.mu.Lock()
	if s.state == StateNoUser {
		s.mu.Unlock()
		return infrastructure.ErrNotAuthenticated
	}
	s.selectGen++
	gen := s.selectGen
	epoch := s.epoch
	s.state = StateConversationLoading
	s.active = nil
	s.messages = nil
	s.seen = make(map[string]struct{})
	s.mu.Unlock()
	s.changed()

	chat, err := s.api.OpenConversation(ctx, otherUserID)
	if err != nil {
		s.abortSelect(gen)
		return err
	}

	history, err := s.api.ListMessages(ctx, chat.ID)
	if err != nil {
		s.abortSelect(gen)
		return err
	}

	s.mu.Lock()
	if s.selectGen != gen {
		// A newer select or a logout won the race; this result is stale.
		s.mu.Unlock()
		return nil
	}
	s.active = chat
	s.messages = append([]transport.Message(nil), history...)
	s.seen = make(map[string]struct{}, len(history))
	for _, m := range history {
		s.seen[m.ID] = struct{}{}
	}
	s.state = StateConversationReady
	s.mu.Unlock()
	s.changed()

	s.refreshConversations(ctx, epoch)
	return nil
}

// SendMessage validates locally, persists through the transport client,
// appends the confirmed message, then best-effort notifies the other
// participant over the push channel. There is no optimistic echo: a
// failed send leaves the timeline untouched.
func (s *Session) SendMessage(ctx context.Context, text string) (*transport.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, infrastructure.ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state != StateConversationReady || s.active == nil {
		s.mu.Unlock()
		return nil, infrastructure.ErrNoActiveChat
	}
	chatID := s.active.ID
	receiver, hasReceiver := s.active.OtherMember(s.user.ID)
	gen := s.selectGen
	s.mu.Unlock()

	msg, err := s.api.SendMessage(ctx, chatID, text)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.selectGen == gen {
		s.appendLocked(*msg)
	}
	s.mu.Unlock()
	s.changed()

	if hasReceiver {
		s.channel.EmitSend(receiver.ID, *msg)
	}
	return msg, nil
}

// Logout clears every piece of in-memory state and disconnects the push
// channel. Any in-flight responses and any push events for the previous
// user are ignored from here on.
func (s *Session) Logout() {
	s.mu.Lock()
	s.state = StateNoUser
	s.user = transport.User{}
	s.conversations = nil
	s.active = nil
	s.messages = nil
	s.seen = nil
	s.selectGen++
	s.epoch++
	s.mu.Unlock()

	_ = s.channel.Disconnect()
	s.changed()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         s.state,
		User:          s.user,
		Conversations: append([]transport.Conversation(nil), s.conversations...),
		Messages:      append([]transport.Message(nil), s.messages...),
	}
	if s.active != nil {
		active := *s.active
		snap.Active = &active
	}
	return snap
}

// handlePush is the single push-channel handler. A message for the active
// conversation is appended (idempotently: the pushed echo of a local send
// carries an id the timeline already has); any message refreshes the
// conversation list so last-message previews stay current.
func (s *Session) handlePush(ev push.Event) {
	s.mu.Lock()
	if s.state == StateNoUser {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	if s.state == StateConversationReady && s.active != nil && s.active.ID == ev.ConversationID {
		s.appendLocked(ev.Message)
	}
	s.mu.Unlock()
	s.changed()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	s.refreshConversations(ctx, epoch)
}

// appendLocked appends a message to the active timeline, deduplicated by
// id. Messages stay in the order their events were observed; history is
// already server-ordered and nothing re-sorts after load.
func (s *Session) appendLocked(msg transport.Message) {
	if _, dup := s.seen[msg.ID]; dup {
		return
	}
	s.seen[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
}

// abortSelect reverts a failed select to NoConversation unless a newer
// select already owns the state.
func (s *Session) abortSelect(gen uint64) {
	s.mu.Lock()
	if s.selectGen == gen && s.state == StateConversationLoading {
		s.state = StateNoConversation
	}
	s.mu.Unlock()
	s.changed()
}

func (s *Session) refreshConversations(ctx context.Context, epoch uint64) {
	chats, err := s.api.ListConversations(ctx)
	if err != nil {
		s.log.Warn("failed to refresh conversations", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.epoch != epoch || s.state == StateNoUser {
		s.mu.Unlock()
		return
	}
	s.conversations = chats
	s.mu.Unlock()
	s.changed()
}

func (s *Session) changed() {
	if s.notify != nil {
		s.notify()
	}
}
