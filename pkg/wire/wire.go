// Package wire talks to the LLM completion endpoints in the two request shapes
// the pipeline needs: streamed free text and a single structured tool call.
package wire

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/persona"
	"go.uber.org/zap"
)

type Completer interface {
	// CompleteStreaming returns the full concatenated text of a streamed
	// completion. Nothing is returned on error.
	CompleteStreaming(ctx context.Context, history []conversation.Message, p persona.Persona) (string, error)
	// CompleteTool asks for a tool call using the persona's tool schema.
	CompleteTool(ctx context.Context, history []conversation.Message, p persona.Persona) (ToolCallResult, error)
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *zap.Logger
	apiKey     string
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAPIKey sets the bearer token used when a persona carries none.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

func newOptions(opts []Option) options {
	o := options{httpClient: http.DefaultClient, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Mux dispatches each request to the client matching the persona's API.
type Mux struct {
	Ollama Completer
	OpenAI Completer
}

var _ Completer = (*Mux)(nil)

func NewMux(opts ...Option) *Mux {
	return &Mux{Ollama: NewOllamaClient(opts...), OpenAI: NewOpenAIClient(opts...)}
}

func (m *Mux) pick(p persona.Persona) (Completer, error) {
	switch p.API {
	case persona.APIOllama, "":
		return m.Ollama, nil
	case persona.APIOpenAI:
		return m.OpenAI, nil
	}
	return nil, fmt.Errorf("persona %s: unsupported api %q", p.Name, p.API)
}

func (m *Mux) CompleteStreaming(ctx context.Context, history []conversation.Message, p persona.Persona) (string, error) {
	c, err := m.pick(p)
	if err != nil {
		return "", err
	}
	return c.CompleteStreaming(ctx, history, p)
}

func (m *Mux) CompleteTool(ctx context.Context, history []conversation.Message, p persona.Persona) (ToolCallResult, error) {
	c, err := m.pick(p)
	if err != nil {
		return nil, err
	}
	return c.CompleteTool(ctx, history, p)
}
