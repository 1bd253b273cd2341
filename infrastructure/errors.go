package infrastructure

import "errors"

var (
	ErrNetwork          = errors.New("network failure")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotFound         = errors.New("not found")
	ErrEmptyMessage     = errors.New("message text is empty")

	ErrNoIdentity   = errors.New("no stored identity")
	ErrTokenExpired = errors.New("access token has expired")
	ErrNoActiveChat = errors.New("no active conversation")
	ErrNotConnected = errors.New("push channel not connected")
)
