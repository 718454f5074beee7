package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendOnly(t *testing.T) {
	c := New()
	require.NotEmpty(t, c.ID)

	c.Append(UserMessage("hi"))
	c.Append(AssistantMessage("hello"))

	msgs := c.Messages()
	msgs[0].Content = "changed"
	msgs = append(msgs, UserMessage("extra"))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "hi", c.Messages()[0].Content)

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)
}

func TestLastUser(t *testing.T) {
	msgs := []Message{
		SystemMessage("sys"),
		UserMessage("first"),
		AssistantMessage("reply"),
		UserMessage("second"),
		AssistantMessage("reply 2"),
	}

	m, ok := LastUser(msgs)
	require.True(t, ok)
	assert.Equal(t, "second", m.Content)

	_, ok = LastUser([]Message{SystemMessage("only")})
	assert.False(t, ok)
}

func TestResumeKeepsID(t *testing.T) {
	c := Resume("abc", []Message{UserMessage("x")})
	assert.Equal(t, "abc", c.ID)
	assert.Equal(t, 1, c.Len())

	fresh := Resume("", nil)
	assert.NotEmpty(t, fresh.ID)
}

func TestMessageString(t *testing.T) {
	assert.Equal(t, "You: hi", UserMessage("hi").String())
	assert.Equal(t, "NAI: yo", AssistantMessage("yo").String())
}
