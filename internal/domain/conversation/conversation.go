// Package conversation defines the message types that make up an agent's
// working memory with the language model.
package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Message roles as sent to the model providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in an agent's conversation memory.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// System returns a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant-role message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Hash returns a stable digest of the message sequence, used as a cache key
// for replayed conversations.
func Hash(msgs []Message) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, m := range msgs {
		_ = enc.Encode(m)
	}
	return hex.EncodeToString(h.Sum(nil))
}
