// Package transport wraps the remote REST API behind typed calls. Every
// failure is classified into the infrastructure error taxonomy at this
// boundary; callers only ever see sentinels they can errors.Is against.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vibesphere/infrastructure"
)

const sessionCookie = "token"

type Client struct {
	base  string
	http  *http.Client
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// SetToken sets the session cookie value sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// ListConversations returns the current user's conversations in the
// server's most-recent-activity order. The order is not re-sorted locally.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	body, err := c.do(ctx, http.MethodGet, "/chat", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	var chats []Conversation
	if err := json.Unmarshal(unwrap(body, "chats"), &chats); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return chats, nil
}

// OpenConversation returns the conversation with the given user, creating
// it server-side on first open. Repeated calls return the same id.
func (c *Client) OpenConversation(ctx context.Context, otherUserID string) (*Conversation, error) {
	payload := map[string]string{"userId": otherUserID}
	body, err := c.do(ctx, http.MethodPost, "/chat/open", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}
	var chat Conversation
	if err := json.Unmarshal(unwrap(body, "chat"), &chat); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return &chat, nil
}

// ListMessages returns the full history for a conversation, oldest first.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	body, err := c.do(ctx, http.MethodGet, "/chat/message/"+conversationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	var messages []Message
	if err := json.Unmarshal(unwrap(body, "messages"), &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

// SendMessage persists a message and returns it with the server-assigned
// id and timestamp. Blank text is rejected before any network call.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (*Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, infrastructure.ErrEmptyMessage
	}
	payload := map[string]string{"chatId": conversationID, "text": text}
	body, err := c.do(ctx, http.MethodPost, "/chat/message", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(unwrap(body, "message"), &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return &msg, nil
}

// ListUsers returns every user reachable for starting a conversation.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	body, err := c.do(ctx, http.MethodGet, "/user/all", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var users []User
	if err := json.Unmarshal(unwrap(body, "users"), &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.token})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", infrastructure.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, infrastructure.ErrNotAuthenticated
	case resp.StatusCode == http.StatusNotFound:
		return nil, infrastructure.ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: unexpected status %d", infrastructure.ErrNetwork, resp.StatusCode)
	}
	return body, nil
}

// unwrap normalizes the server's duck-typed envelopes. Some deployments
// wrap the value ({"chats": [...]}), some return it bare; nothing above
// this boundary is allowed to branch on the shape.
func unwrap(body []byte, key string) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if raw, ok := envelope[key]; ok {
		return raw
	}
	return trimmed
}
