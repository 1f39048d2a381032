package models

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation groups the messages of one chat thread for one user.
// UpdatedAt bumps on every new message.
type Conversation struct {
	ID        string    `json:"id" badgerhold:"key"`
	UserID    string    `json:"user_id" badgerholdIndex:"UserID"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a conversation. Immutable once written.
// Sources is populated for assistant messages only. Seq breaks ordering
// ties between messages sharing a creation timestamp.
type Message struct {
	ID             string        `json:"id" badgerhold:"key"`
	ConversationID string        `json:"conversation_id" badgerholdIndex:"ConversationID"`
	Role           string        `json:"role"`
	Content        string        `json:"content"`
	Sources        []SourceChunk `json:"sources,omitempty"`
	Seq            uint64        `json:"seq"`
	CreatedAt      time.Time     `json:"created_at"`
}
