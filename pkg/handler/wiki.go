package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	"github.com/Oxbian/NAI/pkg/extract"
	"github.com/Oxbian/NAI/pkg/persona"
	"github.com/Oxbian/NAI/pkg/tooling"
	"github.com/Oxbian/NAI/pkg/wire"
	"go.uber.org/zap"
)

// Mirror is the part of the encyclopedia mirror the pipeline reads from.
type Mirror interface {
	Search(ctx context.Context, query string) ([]string, error)
	Article(ctx context.Context, title string) (string, error)
}

type WikiPersonas struct {
	Search persona.Persona
	Best   persona.Persona
	Resume persona.Persona
}

// Wiki answers from the offline encyclopedia: expand the question into search
// queries, collect candidate titles, let the model pick one, fetch it and
// summarize it against the question. Any failing stage aborts the whole run.
type Wiki struct {
	completer wire.Completer
	personas  WikiPersonas
	mirror    Mirror
	logger    *zap.Logger
}

var _ Handler = (*Wiki)(nil)

func NewWiki(c wire.Completer, personas WikiPersonas, mirror Mirror, logger *zap.Logger) *Wiki {
	if logger == nil {
		logger = zap.NewNop()
	}
	personas.Search = tooling.WithDefaultTools(personas.Search, tooling.SearchQueriesTool)
	return &Wiki{completer: c, personas: personas, mirror: mirror, logger: logger}
}

func (w *Wiki) Handle(ctx context.Context, history []conversation.Message) (string, error) {
	start := time.Now()

	query, ok := conversation.LastUser(history)
	if !ok {
		return "", &wire.MissingFieldError{Field: "user message"}
	}

	queries, err := w.ExpandQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("query expansion failed: %w", err)
	}

	titles, err := w.SearchArticles(ctx, queries)
	if err != nil {
		return "", fmt.Errorf("article search failed: %w", err)
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("no article found for %q: %w", strings.Join(queries, ", "), &wire.MissingFieldError{Field: "results"})
	}

	title, err := w.SelectArticle(ctx, query.Content, titles)
	if err != nil {
		return "", fmt.Errorf("article selection failed: %w", err)
	}

	content, err := w.FetchContent(ctx, title)
	if err != nil {
		return "", fmt.Errorf("fetching article %q failed: %w", title, err)
	}

	answer, err := w.Synthesize(ctx, query.Content, content)
	if err != nil {
		return "", fmt.Errorf("summarizing article %q failed: %w", title, err)
	}

	w.logger.Info("Answered from encyclopedia",
		zap.Strings("queries", queries),
		zap.Int("candidates", len(titles)),
		zap.String("article", title),
		zap.Int("content_length", len(content)),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

// ExpandQuery turns the user question into independent search strings.
func (w *Wiki) ExpandQuery(ctx context.Context, query conversation.Message) ([]string, error) {
	messages := []conversation.Message{
		conversation.SystemMessage(w.personas.Search.SystemPrompt),
		query,
	}

	result, err := w.completer.CompleteTool(ctx, messages, w.personas.Search)
	if err != nil {
		return nil, err
	}

	args, err := tooling.ParseSearchQueries(result)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("Expanded query", zap.Strings("queries", args.Queries))
	return args.Queries, nil
}

// SearchArticles runs the queries one after another and concatenates their
// titles in order, duplicates included.
func (w *Wiki) SearchArticles(ctx context.Context, queries []string) ([]string, error) {
	var titles []string
	for _, query := range queries {
		found, err := w.mirror.Search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		titles = append(titles, found...)
	}
	return titles, nil
}

// HeadingList is the candidate list as shown to the model.
func HeadingList(titles []string) string {
	return strings.Join(titles, ", ")
}

// SelectArticle asks the model for the single most relevant title. The raw
// answer is the title.
func (w *Wiki) SelectArticle(ctx context.Context, query string, titles []string) (string, error) {
	messages := []conversation.Message{
		conversation.SystemMessage(w.personas.Best.SystemPrompt),
		conversation.UserMessage(fmt.Sprintf(
			"The user's query is: %s. Here are the headings:\n%s\n\nPlease select the most relevant heading. Output the heading only and nothing else.",
			query, HeadingList(titles))),
	}

	title, err := w.completer.CompleteStreaming(ctx, messages, w.personas.Best)
	if err != nil {
		return "", err
	}
	w.logger.Debug("Selected article", zap.String("title", title))
	return title, nil
}

func (w *Wiki) FetchContent(ctx context.Context, title string) (string, error) {
	page, err := w.mirror.Article(ctx, title)
	if err != nil {
		return "", err
	}
	return extract.Text(page), nil
}

// Synthesize answers the question from the article text alone, in a fresh
// context that does not carry the conversation.
func (w *Wiki) Synthesize(ctx context.Context, query, content string) (string, error) {
	messages := []conversation.Message{
		conversation.SystemMessage(w.personas.Resume.SystemPrompt),
		conversation.UserMessage("The users query is: " + query),
		conversation.UserMessage("The search results are: " + content),
	}
	return w.completer.CompleteStreaming(ctx, messages, w.personas.Resume)
}
