package router

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/persona"
	"github.com/Oxbian/NAI/pkg/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type toolCompleter struct {
	args     string
	err      error
	messages []conversation.Message
	persona  persona.Persona
}

func (c *toolCompleter) CompleteStreaming(context.Context, []conversation.Message, persona.Persona) (string, error) {
	return "", errors.New("not used")
}

func (c *toolCompleter) CompleteTool(_ context.Context, history []conversation.Message, p persona.Persona) (wire.ToolCallResult, error) {
	c.messages = history
	c.persona = p
	if c.err != nil {
		return nil, c.err
	}
	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(c.args), &args); err != nil {
		return nil, err
	}
	return wire.ToolCallResult{{Name: "categorize", Arguments: args}}, nil
}

func TestCategorizeStripsQuotes(t *testing.T) {
	tests := map[string]Category{
		`{"category":"\"wikipedia\""}`: CategoryWikipedia,
		`{"category":" resume\n"}`:     CategoryResume,
		`{"category":"'chat'"}`:        CategoryChat,
		`{"category":"poetry"}`:        "poetry",
	}

	for args, want := range tests {
		t.Run(args, func(t *testing.T) {
			completer := &toolCompleter{args: args}
			got, err := NewCategorizer(completer, persona.Persona{Name: "categorize"}).Categorize(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestCategorizeContext(t *testing.T) {
	completer := &toolCompleter{args: `{"category":"chat"}`}
	history := []conversation.Message{conversation.UserMessage("a"), conversation.AssistantMessage("b"), conversation.UserMessage("c")}

	_, err := NewCategorizer(completer, persona.Persona{SystemPrompt: "classify"}).Categorize(context.Background(), history)
	require.NoError(t, err)

	require.Len(t, completer.messages, 4)
	assert.Equal(t, conversation.SystemMessage("classify"), completer.messages[0])
	assert.Equal(t, history, completer.messages[1:])
	require.Len(t, completer.persona.Tools, 1, "default tool schema applies")
}

func TestCategorizePropagatesErrors(t *testing.T) {
	upstream := &wire.UpstreamError{URL: "http://llm", Status: 500}
	_, err := NewCategorizer(&toolCompleter{err: upstream}, persona.Persona{}).Categorize(context.Background(), nil)
	assert.Same(t, upstream, err)

	_, err = NewCategorizer(&toolCompleter{args: `{"label":"chat"}`}, persona.Persona{}).Categorize(context.Background(), nil)
	var missing *wire.MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

type fixedClassifier struct {
	category Category
	err      error
}

func (c fixedClassifier) Categorize(context.Context, []conversation.Message) (Category, error) {
	return c.category, c.err
}

type recordingHandler struct {
	name  string
	reply string
	err   error
	seen  []conversation.Message
	calls int
}

func (h *recordingHandler) Handle(_ context.Context, history []conversation.Message) (string, error) {
	h.calls++
	h.seen = history
	return h.reply, h.err
}

type memoryTranscript struct {
	mu       sync.Mutex
	messages []conversation.Message
	ids      []string
	err      error
}

func (m *memoryTranscript) Append(_ context.Context, id string, msg conversation.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
	m.messages = append(m.messages, msg)
	return m.err
}

type handlers struct {
	chat, resume, wiki *recordingHandler
}

func newHandlers() handlers {
	return handlers{
		chat:   &recordingHandler{name: "chat", reply: "chat reply"},
		resume: &recordingHandler{name: "resume", reply: "summary"},
		wiki:   &recordingHandler{name: "wiki", reply: "wiki answer"},
	}
}

func (h handlers) config(c Classifier) Config {
	return Config{Categorizer: c, Chat: h.chat, Resume: h.resume, Wikipedia: h.wiki}
}

func TestSubmitDispatch(t *testing.T) {
	tests := []struct {
		category Category
		want     string
	}{
		{CategoryChat, "chat reply"},
		{CategoryResume, "summary"},
		{CategoryWikipedia, "wiki answer"},
		{"unknown", "chat reply"},
		{"Wikipedia", "chat reply"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			h := newHandlers()
			conv := conversation.New()
			o := New(conv, h.config(fixedClassifier{category: tt.category}))

			require.NoError(t, o.Submit(context.Background(), "hello"))

			assert.Equal(t, []conversation.Message{
				conversation.UserMessage("hello"),
				conversation.AssistantMessage(tt.want),
			}, conv.Messages())
			assert.Equal(t, StateIdle, o.State())
		})
	}
}

func TestSubmitStateSequence(t *testing.T) {
	var states []State
	cfg := newHandlers().config(fixedClassifier{category: CategoryChat})
	cfg.OnStateChange = func(s State) { states = append(states, s) }

	require.NoError(t, New(conversation.New(), cfg).Submit(context.Background(), "hi"))
	assert.Equal(t, []State{StateCategorizing, StateDispatching, StateHandling, StateIdle}, states)
}

func TestSubmitCategorizerFailure(t *testing.T) {
	h := newHandlers()
	var states []State
	cfg := h.config(fixedClassifier{err: &wire.MissingToolCallError{Model: "tiny"}})
	cfg.OnStateChange = func(s State) { states = append(states, s) }
	conv := conversation.New()

	require.NoError(t, New(conv, cfg).Submit(context.Background(), "hi"))

	require.Equal(t, 2, conv.Len())
	last, _ := conv.Last()
	assert.Equal(t, conversation.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "does the model support tools?")
	assert.Zero(t, h.chat.calls+h.resume.calls+h.wiki.calls)
	assert.Equal(t, []State{StateCategorizing, StateIdle}, states)
}

func TestSubmitHandlerFailure(t *testing.T) {
	h := newHandlers()
	h.wiki.err = errors.New("article search failed: boom")
	conv := conversation.New()

	require.NoError(t, New(conv, h.config(fixedClassifier{category: CategoryWikipedia})).Submit(context.Background(), "volcanoes"))

	last, _ := conv.Last()
	assert.Equal(t, conversation.AssistantMessage("article search failed: boom"), last)
	assert.Equal(t, 2, conv.Len())
}

func TestHandlerSeesFullConversation(t *testing.T) {
	h := newHandlers()
	conv := conversation.Resume("id", []conversation.Message{conversation.UserMessage("old"), conversation.AssistantMessage("older reply")})

	require.NoError(t, New(conv, h.config(fixedClassifier{category: CategoryChat})).Submit(context.Background(), "new"))
	assert.Equal(t, []conversation.Message{
		conversation.UserMessage("old"),
		conversation.AssistantMessage("older reply"),
		conversation.UserMessage("new"),
	}, h.chat.seen)
}

func TestSubmitRejectsEmptyInput(t *testing.T) {
	conv := conversation.New()
	err := New(conv, newHandlers().config(fixedClassifier{})).Submit(context.Background(), "  \n")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Zero(t, conv.Len())
}

type blockingHandler struct {
	release chan struct{}
}

func (h *blockingHandler) Handle(ctx context.Context, _ []conversation.Message) (string, error) {
	<-h.release
	return "done", nil
}

func TestSingleTurnInFlight(t *testing.T) {
	blocker := &blockingHandler{release: make(chan struct{})}
	handling := make(chan struct{}, 1)

	cfg := Config{
		Categorizer: fixedClassifier{category: CategoryChat},
		Chat:        blocker,
		OnStateChange: func(s State) {
			if s == StateHandling {
				handling <- struct{}{}
			}
		},
	}
	conv := conversation.New()
	o := New(conv, cfg)

	done := make(chan error, 1)
	go func() { done <- o.Submit(context.Background(), "first") }()

	select {
	case <-handling:
	case <-time.After(5 * time.Second):
		t.Fatal("turn never reached the handler")
	}

	assert.ErrorIs(t, o.Submit(context.Background(), "second"), ErrTurnInFlight)
	assert.ErrorIs(t, o.Summarize(context.Background()), ErrTurnInFlight)

	close(blocker.release)
	require.NoError(t, <-done)

	assert.Equal(t, []conversation.Message{
		conversation.UserMessage("first"),
		conversation.AssistantMessage("done"),
	}, conv.Messages())
}

func TestSummarizeSkipsCategorizer(t *testing.T) {
	h := newHandlers()
	conv := conversation.New()
	o := New(conv, h.config(fixedClassifier{err: errors.New("must not be called")}))

	require.NoError(t, o.Summarize(context.Background()))

	assert.Equal(t, 1, h.resume.calls)
	assert.Equal(t, []conversation.Message{
		conversation.UserMessage(DefaultSummaryRequest),
		conversation.AssistantMessage("summary"),
	}, conv.Messages())
}

func TestTranscriptFailureDoesNotBlock(t *testing.T) {
	transcript := &memoryTranscript{err: errors.New("disk full")}
	cfg := newHandlers().config(fixedClassifier{category: CategoryChat})
	cfg.Transcript = transcript
	conv := conversation.New()

	require.NoError(t, New(conv, cfg).Submit(context.Background(), "hi"))

	assert.Equal(t, 2, conv.Len())
	assert.Equal(t, conv.Messages(), transcript.messages)
	assert.Equal(t, []string{conv.ID, conv.ID}, transcript.ids)
}

type deadlineHandler struct{}

func (deadlineHandler) Handle(ctx context.Context, _ []conversation.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestTurnTimeout(t *testing.T) {
	cfg := Config{
		Categorizer: fixedClassifier{category: CategoryChat},
		Chat:        deadlineHandler{},
		TurnTimeout: 10 * time.Millisecond,
	}
	conv := conversation.New()

	require.NoError(t, New(conv, cfg).Submit(context.Background(), "slow"))

	last, _ := conv.Last()
	assert.Equal(t, context.DeadlineExceeded.Error(), last.Content)
}
