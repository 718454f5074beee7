// Package router classifies each user turn and hands the conversation to the
// matching handler
package router

import (
	"context"
	"strings"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/persona"
	"github.com/Oxbian/NAI/pkg/tooling"
	"github.com/Oxbian/NAI/pkg/wire"
)

type Category string

const (
	CategoryChat      Category = "chat"
	CategoryResume    Category = "resume"
	CategoryWikipedia Category = "wikipedia"
)

type Categorizer struct {
	completer wire.Completer
	persona   persona.Persona
}

func NewCategorizer(c wire.Completer, p persona.Persona) *Categorizer {
	return &Categorizer{completer: c, persona: tooling.WithDefaultTools(p, tooling.CategorizeTool)}
}

// Categorize returns whatever category the model picked. Unknown values are
// not rejected here; the dispatch table decides what they mean.
func (c *Categorizer) Categorize(ctx context.Context, history []conversation.Message) (Category, error) {
	messages := make([]conversation.Message, 0, len(history)+1)
	messages = append(messages, conversation.SystemMessage(c.persona.SystemPrompt))
	messages = append(messages, history...)

	result, err := c.completer.CompleteTool(ctx, messages, c.persona)
	if err != nil {
		return "", err
	}

	args, err := tooling.ParseCategorize(result)
	if err != nil {
		return "", err
	}
	return normalize(args.Category), nil
}

func normalize(category string) Category {
	return Category(strings.Trim(category, "\"' \t\r\n"))
}
