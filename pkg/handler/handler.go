// Package handler produces the assistant reply for a routed conversation
package handler

import (
	"context"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/persona"
	"github.com/Oxbian/NAI/pkg/wire"
)

type Handler interface {
	Handle(ctx context.Context, history []conversation.Message) (string, error)
}

// Ask frames the conversation with its persona's prompt, sent as the last
// user message, and streams the reply.
type Ask struct {
	completer wire.Completer
	persona   persona.Persona
}

var _ Handler = (*Ask)(nil)

func NewChat(c wire.Completer, p persona.Persona) *Ask {
	return &Ask{completer: c, persona: p}
}

// NewResume asks for a summary of the conversation instead of a reply to its
// latest turn; only the persona differs from chat.
func NewResume(c wire.Completer, p persona.Persona) *Ask {
	return &Ask{completer: c, persona: p}
}

func (a *Ask) Handle(ctx context.Context, history []conversation.Message) (string, error) {
	working := make([]conversation.Message, 0, len(history)+1)
	working = append(working, history...)
	working = append(working, conversation.UserMessage(a.persona.SystemPrompt))

	return a.completer.CompleteStreaming(ctx, working, a.persona)
}
