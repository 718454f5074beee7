// Package tooling provides the tool schemas the pipeline asks for and typed
// decoding of the arguments the model sends back
package tooling

import (
	"fmt"

	"github.com/Oxbian/NAI/pkg/persona"
	"github.com/Oxbian/NAI/pkg/wire"
)

// Categories the router knows. The model may still answer something else.
var Categories = []string{"chat", "resume", "wikipedia"}

var CategorizeTool = persona.ToolDefinition{
	Type: "function",
	Function: persona.FunctionDefinition{
		Name:        "categorize",
		Description: "Use this function to classify the latest user request of the conversation.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"category": map[string]any{
					"type": "string",
					"enum": Categories,
				},
			},
			"required": []string{"category"},
		},
	},
}

type CategorizeArguments struct {
	Category string `json:"category"`
}

func ParseCategorize(result wire.ToolCallResult) (CategorizeArguments, error) {
	call, err := result.First()
	if err != nil {
		return CategorizeArguments{}, err
	}

	var args CategorizeArguments
	if args.Category, err = call.String("category"); err != nil {
		return CategorizeArguments{}, err
	}
	return args, nil
}

var SearchQueriesTool = persona.ToolDefinition{
	Type: "function",
	Function: persona.FunctionDefinition{
		Name:        "search_wikipedia",
		Description: "Use this function to search the encyclopedia with several short and independent queries.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"queries": map[string]any{
					"type":  "array",
					"items": map[string]string{"type": "string"},
				},
			},
			"required": []string{"queries"},
		},
	},
}

type SearchQueriesArguments struct {
	Queries []string `json:"queries"`
}

// ParseSearchQueries requires at least one query: an empty list is treated
// like an absent one.
func ParseSearchQueries(result wire.ToolCallResult) (SearchQueriesArguments, error) {
	call, err := result.First()
	if err != nil {
		return SearchQueriesArguments{}, err
	}

	var args SearchQueriesArguments
	if args.Queries, err = call.Strings("queries"); err != nil {
		return SearchQueriesArguments{}, err
	}
	if len(args.Queries) == 0 {
		return SearchQueriesArguments{}, fmt.Errorf("no search queries generated: %w", &wire.MissingFieldError{Field: "arguments.queries"})
	}
	return args, nil
}

// WithDefaultTools gives a persona the built-in schema when its document
// declares no tools.
func WithDefaultTools(p persona.Persona, defaults ...persona.ToolDefinition) persona.Persona {
	if len(p.Tools) == 0 {
		p.Tools = append([]persona.ToolDefinition(nil), defaults...)
	}
	return p
}
