package transport

import "time"

// Wire shapes follow the production API, which is MongoDB-flavored:
// documents are keyed by "_id" and references are embedded users.

type User struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// Conversation is a 1:1 thread. Members always has exactly two entries;
// the server enforces this and the client never constructs one itself.
type Conversation struct {
	ID          string   `json:"_id"`
	Members     []User   `json:"members"`
	LastMessage *Message `json:"lastMessage,omitempty"`
}

// OtherMember returns the participant that is not the given user.
func (c *Conversation) OtherMember(userID string) (User, bool) {
	for _, m := range c.Members {
		if m.ID != userID {
			return m, true
		}
	}
	return User{}, false
}

type Message struct {
	ID        string    `json:"_id"`
	ChatID    string    `json:"chatId"`
	Sender    User      `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
