package wire

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/persona"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// OpenAIClient serves personas whose endpoint is OpenAI compatible. The
// persona URL is the API base, e.g. http://127.0.0.1:11434/v1.
type OpenAIClient struct {
	opts options
}

var _ Completer = (*OpenAIClient)(nil)

func NewOpenAIClient(opts ...Option) *OpenAIClient {
	return &OpenAIClient{opts: newOptions(opts)}
}

func (c *OpenAIClient) client(p persona.Persona) openai.Client {
	requestOptions := []option.RequestOption{
		option.WithBaseURL(p.URL),
		option.WithHTTPClient(c.opts.httpClient),
		option.WithMaxRetries(0),
	}
	if key := firstNonEmpty(p.APIKey, c.opts.apiKey); key != "" {
		requestOptions = append(requestOptions, option.WithAPIKey(key))
	}
	return openai.NewClient(requestOptions...)
}

func (c *OpenAIClient) CompleteStreaming(ctx context.Context, history []conversation.Message, p persona.Persona) (string, error) {
	start := time.Now()
	client := c.client(p)

	stream := client.Chat.Completions.NewStreaming(ctx, NewParams(history, p, false))
	defer stream.Close()

	var sb strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) > 0 {
			sb.WriteString(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return "", mapOpenAIError(p.URL, err)
	}

	c.opts.logger.Debug("Streaming completion finished",
		zap.String("persona", p.Name),
		zap.String("model", p.Model),
		zap.Int("messages", len(history)),
		zap.Int("length", sb.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return sb.String(), nil
}

func (c *OpenAIClient) CompleteTool(ctx context.Context, history []conversation.Message, p persona.Persona) (ToolCallResult, error) {
	start := time.Now()
	client := c.client(p)

	completion, err := client.Chat.Completions.New(ctx, NewParams(history, p, true))
	if err != nil {
		return nil, mapOpenAIError(p.URL, err)
	}
	if len(completion.Choices) == 0 || len(completion.Choices[0].Message.ToolCalls) == 0 {
		return nil, &MissingToolCallError{Model: p.Model}
	}

	var result ToolCallResult
	for _, toolCall := range completion.Choices[0].Message.ToolCalls {
		// arguments arrive as JSON text here, not as a JSON value
		args, err := decodeArguments([]byte(toolCall.Function.Arguments))
		if err != nil {
			return nil, err
		}
		result = append(result, ToolCall{Name: toolCall.Function.Name, Arguments: args})
	}

	c.opts.logger.Debug("Tool completion finished",
		zap.String("persona", p.Name),
		zap.String("model", p.Model),
		zap.Int("messages", len(history)),
		zap.String("function", result[0].Name),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// NewParams maps the conversation and persona onto a chat completion request.
func NewParams(history []conversation.Message, p persona.Persona, withTools bool) openai.ChatCompletionNewParams {
	var params openai.ChatCompletionNewParams
	params.Model = p.Model

	for _, m := range history {
		switch m.Role {
		case conversation.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case conversation.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	if withTools {
		params.Tools = NewOpenAITools(p.Tools)
	}
	return params
}

func NewOpenAITools(defs []persona.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	var tools []openai.ChatCompletionToolUnionParam
	for _, def := range defs {
		function := openai.FunctionDefinitionParam{
			Name:       def.Function.Name,
			Parameters: openai.FunctionParameters(def.Function.Parameters),
		}
		if def.Function.Description != "" {
			function.Description = openai.String(def.Function.Description)
		}
		tools = append(tools, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{Function: function},
		})
	}
	return tools
}

func mapOpenAIError(url string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{URL: url, Status: apiErr.StatusCode, Body: apiErr.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{URL: url, Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &ProtocolError{Reason: "invalid response event", Err: err}
	}
	return &NetworkError{URL: url, Err: err}
}
