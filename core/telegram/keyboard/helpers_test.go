package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, Chunk(labels, 2))
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}, Chunk(labels, 0))
	assert.Empty(t, Chunk(nil, 3))
}

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"x", "y"}, []string{"z"})
	assert.True(t, m.ResizeKeyboard)
	if assert.Len(t, m.ReplyKeyboard, 2) {
		assert.Equal(t, "x", m.ReplyKeyboard[0][0].Text)
		assert.Equal(t, "y", m.ReplyKeyboard[0][1].Text)
		assert.Equal(t, "z", m.ReplyKeyboard[1][0].Text)
	}
	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}
