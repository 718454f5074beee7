package persistence

import (
	"fmt"
	"os"
	"time"

	"github.com/Oxbian/NAI/pkg/conversation"
	"gopkg.in/yaml.v3"
)

func SaveSession(sessionFile string, conv *conversation.Conversation) error {
	session := NewSessionFromConversation(conv)
	session.Updated = time.Now().UTC()
	data, err := yaml.Marshal(session)
	if err != nil {
		return err
	}
	if err = os.WriteFile(sessionFile, data, 0640); err != nil {
		return err
	}
	return nil
}

// TryToResumeSession loads sessionFile. A missing file starts a new
// conversation.
func TryToResumeSession(sessionFile string) (*conversation.Conversation, error) {
	_, err := os.Stat(sessionFile)
	if os.IsNotExist(err) {
		return conversation.New(), nil
	}
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(sessionFile)
	if err != nil {
		return nil, err
	}

	var session Session
	if err = yaml.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionFile, err)
	}

	return NewConversationFromSession(&session)
}
