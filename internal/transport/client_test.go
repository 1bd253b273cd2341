package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibesphere/infrastructure"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, 5*time.Second)
	c.SetToken("test-token")
	return c
}

func TestListConversationsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		w.Write([]byte(`{"chats":[{"_id":"c1","members":[{"_id":"u1","username":"me"},{"_id":"u2","username":"alice"}]}]}`))
	})

	chats, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "c1", chats[0].ID)
}

func TestListConversationsBareArray(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"_id":"c1","members":[]},{"_id":"c2","members":[]}]`))
	})

	chats, err := c.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "c2", chats[1].ID)
}

func TestOpenConversationShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrapped", `{"chat":{"_id":"c1","members":[{"_id":"u2","username":"alice"}]}}`},
		{"bare", `{"_id":"c1","members":[{"_id":"u2","username":"alice"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/chat/open", r.URL.Path)
				w.Write([]byte(tt.body))
			})

			chat, err := c.OpenConversation(context.Background(), "u2")
			require.NoError(t, err)
			assert.Equal(t, "c1", chat.ID)
		})
	}
}

func TestOpenConversationIdempotent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chat":{"_id":"c1","members":[]}}`))
	})

	first, err := c.OpenConversation(context.Background(), "u2")
	require.NoError(t, err)
	second, err := c.OpenConversation(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSendMessage(t *testing.T) {
	var gotCookie string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("token"); err == nil {
			gotCookie = cookie.Value
		}
		w.Write([]byte(`{"message":{"_id":"m1","chatId":"c1","text":"hello","sender":{"_id":"u1","username":"me"}}}`))
	})

	msg, err := c.SendMessage(context.Background(), "c1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, "test-token", gotCookie, "session cookie must ride on every request")
}

func TestSendMessageRejectsBlankLocally(t *testing.T) {
	requests := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.SendMessage(context.Background(), "c1", text)
		assert.ErrorIs(t, err, infrastructure.ErrEmptyMessage)
	}
	assert.Zero(t, requests, "blank sends must never reach the network")
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, infrastructure.ErrNotAuthenticated},
		{http.StatusForbidden, infrastructure.ErrNotAuthenticated},
		{http.StatusNotFound, infrastructure.ErrNotFound},
		{http.StatusInternalServerError, infrastructure.ErrNetwork},
	}
	for _, tt := range tests {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		_, err := c.ListConversations(context.Background())
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestUnreachableServerIsNetworkFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	_, err := c.ListMessages(context.Background(), "c1")
	assert.ErrorIs(t, err, infrastructure.ErrNetwork)
}

func TestListMessagesOrderPreserved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/message/c1", r.URL.Path)
		w.Write([]byte(`{"messages":[{"_id":"m1","text":"first"},{"_id":"m2","text":"second"}]}`))
	})

	msgs, err := c.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
}

func TestListUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/all", r.URL.Path)
		w.Write([]byte(`{"users":[{"_id":"u2","username":"alice"}]}`))
	})

	users, err := c.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestOtherMember(t *testing.T) {
	conv := Conversation{
		ID:      "c1",
		Members: []User{{ID: "u1", Username: "me"}, {ID: "u2", Username: "alice"}},
	}
	other, ok := conv.OtherMember("u1")
	require.True(t, ok)
	assert.Equal(t, "u2", other.ID)

	_, ok = (&Conversation{ID: "c2"}).OtherMember("u1")
	assert.False(t, ok)
}
