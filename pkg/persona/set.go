package persona

import (
	"errors"
	"path/filepath"
)

// Role names double as the keys used in logs.
const (
	RoleCategorize = "categorize"
	RoleChat       = "chat"
	RoleResume     = "resume"
	RoleWikiSearch = "wiki-search"
	RoleWikiBest   = "wiki-best"
	RoleWikiResume = "wiki-resume"
)

var fileByRole = map[string]string{
	RoleCategorize: "categorize-LLM.json",
	RoleChat:       "chat-LLM.json",
	RoleResume:     "resume-LLM.json",
	RoleWikiSearch: filepath.Join("wiki", "wiki-search.json"),
	RoleWikiBest:   filepath.Join("wiki", "wiki-best.json"),
	RoleWikiResume: filepath.Join("wiki", "wiki-resume.json"),
}

const wikiSettingsFile = "wiki/wiki.json"

// Set is every persona the pipeline needs, loaded once at startup.
type Set struct {
	Categorize Persona
	Chat       Persona
	Resume     Persona
	WikiSearch Persona
	WikiBest   Persona
	WikiResume Persona
	Wiki       WikiSettings
}

// LoadSet reads all persona documents below dir. Every failure is collected so
// a broken setup is reported in one go.
func LoadSet(dir string) (*Set, error) {
	var set Set
	var errs []error

	targets := map[string]*Persona{
		RoleCategorize: &set.Categorize,
		RoleChat:       &set.Chat,
		RoleResume:     &set.Resume,
		RoleWikiSearch: &set.WikiSearch,
		RoleWikiBest:   &set.WikiBest,
		RoleWikiResume: &set.WikiResume,
	}
	for role, target := range targets {
		p, err := Load(filepath.Join(dir, fileByRole[role]))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Name = role
		*target = p
	}

	wiki, err := LoadWikiSettings(filepath.Join(dir, filepath.FromSlash(wikiSettingsFile)))
	if err != nil {
		errs = append(errs, err)
	}
	set.Wiki = wiki

	if err = errors.Join(errs...); err != nil {
		return nil, err
	}
	return &set, nil
}

// All returns pointers to every persona of the set for bulk adjustments such
// as applying a shared API key.
func (s *Set) All() []*Persona {
	return []*Persona{&s.Categorize, &s.Chat, &s.Resume, &s.WikiSearch, &s.WikiBest, &s.WikiResume}
}
