// Package conversation holds the chat history shared by the router and the handlers
package conversation

import (
	"fmt"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func (m Message) String() string {
	switch m.Role {
	case RoleUser:
		return fmt.Sprint("You: ", m.Content)
	case RoleSystem:
		return fmt.Sprint("System: ", m.Content)
	default:
		return fmt.Sprint("NAI: ", m.Content)
	}
}

// Conversation is an append-only message log. It has a single owner; the
// router appends to it between pipeline stages and nobody else writes.
type Conversation struct {
	ID       string
	messages []Message
}

func New() *Conversation {
	return &Conversation{ID: uuid.NewString()}
}

// Resume rebuilds a conversation from a persisted session. An empty id gets a
// fresh one.
func Resume(id string, messages []Message) *Conversation {
	if id == "" {
		id = uuid.NewString()
	}
	return &Conversation{ID: id, messages: append([]Message(nil), messages...)}
}

func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// Messages returns a copy so callers can extend it as a working context.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// LastUser returns the most recent user message of msgs.
func LastUser(msgs []Message) (Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i], true
		}
	}
	return Message{}, false
}
