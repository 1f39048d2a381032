package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewChunkID generates a unique chunk ID with the "chunk_" prefix
func NewChunkID() string {
	return "chunk_" + uuid.New().String()
}

// NewConversationID generates a unique conversation ID with the "conv_" prefix
func NewConversationID() string {
	return "conv_" + uuid.New().String()
}

// NewMessageID generates a unique message ID with the "msg_" prefix
func NewMessageID() string {
	return "msg_" + uuid.New().String()
}
