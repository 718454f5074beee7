package router

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/handler"
	"go.uber.org/zap"
)

type State int32

const (
	StateIdle State = iota
	StateCategorizing
	StateDispatching
	StateHandling
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCategorizing:
		return "categorizing"
	case StateDispatching:
		return "dispatching"
	case StateHandling:
		return "handling"
	default:
		return "unknown"
	}
}

var (
	ErrTurnInFlight = errors.New("a message is already being processed")
	ErrEmptyInput   = errors.New("message is empty")
)

type Classifier interface {
	Categorize(ctx context.Context, history []conversation.Message) (Category, error)
}

// Transcript receives every message once it is part of the conversation.
type Transcript interface {
	Append(ctx context.Context, conversationID string, m conversation.Message) error
}

const DefaultSummaryRequest = "Summarize our conversation so far."

type Config struct {
	Categorizer Classifier
	Chat        handler.Handler
	Resume      handler.Handler
	Wikipedia   handler.Handler

	// Transcript is optional; failures there are logged and ignored.
	Transcript Transcript
	Logger     *zap.Logger
	// OnStateChange is called synchronously on every transition.
	OnStateChange func(State)
	// TurnTimeout bounds a whole turn. Zero means no limit.
	TurnTimeout time.Duration
	// SummaryRequest is the user message recorded by Summarize.
	SummaryRequest string
}

// Orchestrator is the only writer of its conversation. Submit and Summarize
// block until the turn is complete.
type Orchestrator struct {
	conv     *conversation.Conversation
	cfg      Config
	handlers map[Category]handler.Handler
	logger   *zap.Logger

	busy  atomic.Bool
	state atomic.Int32
}

func New(conv *conversation.Conversation, cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SummaryRequest == "" {
		cfg.SummaryRequest = DefaultSummaryRequest
	}

	handlers := map[Category]handler.Handler{CategoryChat: cfg.Chat}
	if cfg.Resume != nil {
		handlers[CategoryResume] = cfg.Resume
	}
	if cfg.Wikipedia != nil {
		handlers[CategoryWikipedia] = cfg.Wikipedia
	}

	return &Orchestrator{
		conv:     conv,
		cfg:      cfg,
		handlers: handlers,
		logger:   logger.With(zap.String("conversation", conv.ID)),
	}
}

func (o *Orchestrator) ConversationID() string {
	return o.conv.ID
}

// History returns a copy of the conversation.
func (o *Orchestrator) History() []conversation.Message {
	return o.conv.Messages()
}

func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Submit runs one user turn: categorize, dispatch, handle. Pipeline failures
// end up as the assistant reply; only ErrEmptyInput and ErrTurnInFlight are
// returned.
func (o *Orchestrator) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if !o.busy.CompareAndSwap(false, true) {
		return ErrTurnInFlight
	}
	defer o.release()

	ctx, cancel := o.turnContext(ctx)
	defer cancel()

	start := time.Now()
	o.append(ctx, conversation.UserMessage(text))

	o.setState(StateCategorizing)
	category, err := o.cfg.Categorizer.Categorize(ctx, o.conv.Messages())
	if err != nil {
		o.logger.Warn("Categorization failed", zap.Error(err))
		o.append(ctx, conversation.AssistantMessage(err.Error()))
		return nil
	}

	o.setState(StateDispatching)
	h := o.dispatch(category)

	o.setState(StateHandling)
	o.handle(ctx, h, string(category))

	o.logger.Info("Turn complete",
		zap.String("category", string(category)),
		zap.Int("messages", o.conv.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Summarize records a summary request and answers it with the resume handler
// without asking the categorizer.
func (o *Orchestrator) Summarize(ctx context.Context) error {
	if !o.busy.CompareAndSwap(false, true) {
		return ErrTurnInFlight
	}
	defer o.release()

	ctx, cancel := o.turnContext(ctx)
	defer cancel()

	o.append(ctx, conversation.UserMessage(o.cfg.SummaryRequest))
	o.setState(StateHandling)
	o.handle(ctx, o.dispatch(CategoryResume), string(CategoryResume))
	return nil
}

// dispatch maps a category to its handler; anything not in the table goes to
// chat.
func (o *Orchestrator) dispatch(category Category) handler.Handler {
	if h, ok := o.handlers[category]; ok {
		return h
	}
	o.logger.Debug("Unknown category, using chat", zap.String("category", string(category)))
	return o.handlers[CategoryChat]
}

func (o *Orchestrator) handle(ctx context.Context, h handler.Handler, category string) {
	reply, err := h.Handle(ctx, o.conv.Messages())
	if err != nil {
		o.logger.Warn("Handler failed", zap.String("category", category), zap.Error(err))
		reply = err.Error()
	}
	o.append(ctx, conversation.AssistantMessage(reply))
}

func (o *Orchestrator) append(ctx context.Context, m conversation.Message) {
	o.conv.Append(m)
	if o.cfg.Transcript == nil {
		return
	}
	if err := o.cfg.Transcript.Append(context.WithoutCancel(ctx), o.conv.ID, m); err != nil {
		o.logger.Warn("Could not write transcript", zap.Error(err))
	}
}

func (o *Orchestrator) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.TurnTimeout > 0 {
		return context.WithTimeout(ctx, o.cfg.TurnTimeout)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	if o.cfg.OnStateChange != nil {
		o.cfg.OnStateChange(s)
	}
}

func (o *Orchestrator) release() {
	o.setState(StateIdle)
	o.busy.Store(false)
}
