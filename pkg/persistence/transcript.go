package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	_ "modernc.org/sqlite"
)

const transcriptSchema = `
CREATE TABLE IF NOT EXISTS transcript (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcript_conversation ON transcript(conversation_id, id);
`

// SQLiteTranscript keeps every message of every conversation in one table,
// in the order they were appended.
type SQLiteTranscript struct {
	db *sql.DB
}

func OpenTranscript(path string) (*SQLiteTranscript, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases alive and writes ordered
	db.SetMaxOpenConns(1)

	if _, err = db.Exec(transcriptSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create transcript schema: %w", err)
	}
	return &SQLiteTranscript{db: db}, nil
}

func (t *SQLiteTranscript) Append(ctx context.Context, conversationID string, m conversation.Message) error {
	_, err := t.db.ExecContext(ctx,
		"INSERT INTO transcript (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		conversationID, string(m.Role), m.Content, time.Now().UTC())
	return err
}

// Messages returns the transcript of one conversation, oldest first.
func (t *SQLiteTranscript) Messages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT role, content FROM transcript WHERE conversation_id = ? ORDER BY id", conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []conversation.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		messages = append(messages, conversation.Message{Role: conversation.Role(role), Content: content})
	}
	return messages, rows.Err()
}

func (t *SQLiteTranscript) Close() error {
	return t.db.Close()
}

// NopTranscript discards everything.
type NopTranscript struct{}

func (NopTranscript) Append(context.Context, string, conversation.Message) error { return nil }
