// Package persona loads the per-role LLM configuration documents
package persona

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type API string

const (
	APIOllama API = "ollama"
	APIOpenAI API = "openai"
)

// Persona is one role of the pipeline: where to send requests, which model to
// ask, how to frame it and which tools it may call.
type Persona struct {
	Name         string           `yaml:"-"`
	URL          string           `yaml:"url"`
	Model        string           `yaml:"model"`
	SystemPrompt string           `yaml:"system_prompt"`
	Tools        []ToolDefinition `yaml:"tools,omitempty"`
	API          API              `yaml:"api,omitempty"`
	APIKey       string           `yaml:"api_key,omitempty"`
}

type ToolDefinition struct {
	Type     string             `yaml:"type" json:"type"`
	Function FunctionDefinition `yaml:"function" json:"function"`
}

type FunctionDefinition struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Parameters  map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Load reads a single persona document. JSON documents are accepted as they
// are a subset of YAML.
func Load(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, err
	}

	var p Persona
	if err = yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if p.API == "" {
		p.API = APIOllama
	}
	if err = p.validate(); err != nil {
		return Persona{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (p Persona) validate() error {
	var errs []error
	if p.URL == "" {
		errs = append(errs, errors.New("url is empty"))
	}
	if p.Model == "" {
		errs = append(errs, errors.New("model is empty"))
	}
	if p.API != APIOllama && p.API != APIOpenAI {
		errs = append(errs, fmt.Errorf("unknown api %q", p.API))
	}
	for i, tool := range p.Tools {
		if tool.Function.Name == "" {
			errs = append(errs, fmt.Errorf("tools[%d]: function name is empty", i))
		}
	}
	return errors.Join(errs...)
}

// WikiSettings points at the kiwix mirror and the ZIM collection to query.
type WikiSettings struct {
	URL        string `yaml:"wiki_url"`
	Collection string `yaml:"zim_name"`
}

func LoadWikiSettings(path string) (WikiSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return WikiSettings{}, err
	}

	var s WikiSettings
	if err = yaml.Unmarshal(data, &s); err != nil {
		return WikiSettings{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if s.URL == "" || s.Collection == "" {
		return WikiSettings{}, fmt.Errorf("%s: wiki_url and zim_name are required", path)
	}
	return s, nil
}
