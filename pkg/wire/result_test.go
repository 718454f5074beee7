package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(args map[string]string) ToolCall {
	c := ToolCall{Name: "f", Arguments: map[string]json.RawMessage{}}
	for k, v := range args {
		c.Arguments[k] = json.RawMessage(v)
	}
	return c
}

func TestFirstOnEmptyResult(t *testing.T) {
	_, err := ToolCallResult(nil).First()
	var missing *MissingToolCallError
	assert.ErrorAs(t, err, &missing)
}

func TestString(t *testing.T) {
	c := call(map[string]string{
		"plain":  `"chat"`,
		"number": `3`,
		"object": `{"a":1}`,
		"null":   `null`,
	})

	v, err := c.String("plain")
	require.NoError(t, err)
	assert.Equal(t, "chat", v)

	v, err = c.String("number")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	_, err = c.String("object")
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)

	for _, field := range []string{"null", "absent"} {
		_, err = c.String(field)
		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "arguments."+field, missing.Field)
	}
}

func TestStrings(t *testing.T) {
	c := call(map[string]string{
		"list":    `["a","b"]`,
		"encoded": `"[\"c\"]"`,
		"mixed":   `["a",1]`,
		"empty":   `[]`,
	})

	v, err := c.Strings("list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v)

	v, err = c.Strings("encoded")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, v)

	v, err = c.Strings("empty")
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = c.Strings("mixed")
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}
