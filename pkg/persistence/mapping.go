package persistence

import (
	"fmt"

	"github.com/Oxbian/NAI/pkg/conversation"
)

func NewSessionFromConversation(conv *conversation.Conversation) *Session {
	session := Session{ID: conv.ID}
	for _, m := range conv.Messages() {
		session.Messages = append(session.Messages, Message{Role: string(m.Role), Content: m.Content})
	}
	return &session
}

func NewConversationFromSession(session *Session) (*conversation.Conversation, error) {
	messages := make([]conversation.Message, 0, len(session.Messages))
	for i, sessionMessage := range session.Messages {
		var m conversation.Message

		switch conversation.Role(sessionMessage.Role) {
		case conversation.RoleSystem:
			m = conversation.SystemMessage(sessionMessage.Content)
		case conversation.RoleUser:
			m = conversation.UserMessage(sessionMessage.Content)
		case conversation.RoleAssistant:
			m = conversation.AssistantMessage(sessionMessage.Content)
		default:
			return nil, fmt.Errorf("message %d: unknown role %q", i, sessionMessage.Role)
		}

		messages = append(messages, m)
	}

	return conversation.Resume(session.ID, messages), nil
}
