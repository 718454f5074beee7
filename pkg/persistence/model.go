// Package persistence handles mapping and YAML serialization of sessions and
// the SQLite transcript
package persistence

import "time"

type Session struct {
	ID      string    `yaml:"id"`
	Updated time.Time `yaml:"updated,omitempty"`

	Messages []Message `yaml:"messages"`
}

type Message struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content,omitempty"`
}
