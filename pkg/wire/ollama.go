package wire

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/persona"
	"go.uber.org/zap"
)

// OllamaClient speaks the native chat API: newline-delimited JSON records when
// streaming, a single JSON object otherwise.
type OllamaClient struct {
	httpClient *http.Client
	logger     *zap.Logger
	apiKey     string
}

var _ Completer = (*OllamaClient)(nil)

func NewOllamaClient(opts ...Option) *OllamaClient {
	o := newOptions(opts)
	return &OllamaClient{httpClient: o.httpClient, logger: o.logger, apiKey: o.apiKey}
}

type ollamaRequest struct {
	Model    string                   `json:"model"`
	Messages []conversation.Message   `json:"messages"`
	Stream   bool                     `json:"stream"`
	Tools    []persona.ToolDefinition `json:"tools,omitempty"`
}

type ollamaChunk struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

type ollamaToolResponse struct {
	Message *struct {
		ToolCalls []struct {
			Function struct {
				Name      string          `json:"name"`
				Arguments json.RawMessage `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
	Error string `json:"error"`
}

// maxRecordSize bounds a single streamed record.
const maxRecordSize = 4 << 20

func (c *OllamaClient) CompleteStreaming(ctx context.Context, history []conversation.Message, p persona.Persona) (string, error) {
	start := time.Now()
	resp, err := c.post(ctx, p, ollamaRequest{Model: p.Model, Messages: history, Stream: true})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var sb strings.Builder
	records := 0

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", &ProtocolError{Reason: fmt.Sprintf("invalid stream record %d", records+1), Err: err}
		}
		records++

		if chunk.Error != "" {
			return "", &UpstreamError{URL: p.URL, Status: resp.StatusCode, Body: chunk.Error}
		}
		if chunk.Message != nil {
			sb.WriteString(chunk.Message.Content)
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return "", &ProtocolError{Reason: "stream record too large", Err: err}
		}
		return "", &NetworkError{URL: p.URL, Err: err}
	}

	c.logger.Debug("Streaming completion finished",
		zap.String("persona", p.Name),
		zap.String("model", p.Model),
		zap.Int("messages", len(history)),
		zap.Int("records", records),
		zap.Int("length", sb.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return sb.String(), nil
}

func (c *OllamaClient) CompleteTool(ctx context.Context, history []conversation.Message, p persona.Persona) (ToolCallResult, error) {
	start := time.Now()
	resp, err := c.post(ctx, p, ollamaRequest{Model: p.Model, Messages: history, Stream: false, Tools: p.Tools})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: p.URL, Err: err}
	}

	var decoded ollamaToolResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, &ProtocolError{Reason: "invalid tool response", Err: err}
	}
	if decoded.Error != "" {
		return nil, &UpstreamError{URL: p.URL, Status: resp.StatusCode, Body: decoded.Error}
	}
	if decoded.Message == nil || len(decoded.Message.ToolCalls) == 0 {
		return nil, &MissingToolCallError{Model: p.Model}
	}

	result := make(ToolCallResult, 0, len(decoded.Message.ToolCalls))
	for _, call := range decoded.Message.ToolCalls {
		args, err := decodeArguments(call.Function.Arguments)
		if err != nil {
			return nil, err
		}
		result = append(result, ToolCall{Name: call.Function.Name, Arguments: args})
	}

	c.logger.Debug("Tool completion finished",
		zap.String("persona", p.Name),
		zap.String("model", p.Model),
		zap.Int("messages", len(history)),
		zap.String("function", result[0].Name),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

func (c *OllamaClient) post(ctx context.Context, p persona.Persona, payload ollamaRequest) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(data))
	if err != nil {
		return nil, &NetworkError{URL: p.URL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if key := firstNonEmpty(p.APIKey, c.apiKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: p.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt+1))
		c.logger.Warn("Completion endpoint refused request",
			zap.String("persona", p.Name),
			zap.Int("status", resp.StatusCode))
		return nil, &UpstreamError{URL: p.URL, Status: resp.StatusCode, Body: excerpt(bytes.TrimSpace(body))}
	}
	return resp, nil
}

// decodeArguments accepts tool arguments as a JSON object or as a JSON string
// holding an object.
func decodeArguments(raw json.RawMessage) (map[string]json.RawMessage, error) {
	args := map[string]json.RawMessage{}
	if len(raw) == 0 || string(raw) == "null" {
		return args, nil
	}

	if err := json.Unmarshal(raw, &args); err == nil {
		return args, nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, &ProtocolError{Reason: "tool arguments are not an object", Err: err}
	}
	if strings.TrimSpace(encoded) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(encoded), &args); err != nil {
		return nil, &ProtocolError{Reason: "tool arguments are not an object", Err: err}
	}
	return args, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
