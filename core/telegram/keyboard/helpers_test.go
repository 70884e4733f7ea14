package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRawData(t *testing.T) {
	m := InlineButtonsNPerRow([]InlineBtn{
		{Text: "1", Data: "svc:1"},
		{Text: "2", Data: "svc:2"},
		{Text: "3", Data: "svc:3"},
	}, 2)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Len(t, m.InlineKeyboard[0], 2)
	assert.Equal(t, "svc:1", m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "svc:3", m.InlineKeyboard[1][0].Data)
}

func TestInlineButtonsOnePerRow(t *testing.T) {
	m := InlineButtons([]InlineBtn{{Text: "A", Data: "a:1"}, {Text: "B", Data: "b:2"}})
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "b:2", m.InlineKeyboard[1][0].Data)
	assert.Len(t, InlineButtonsNPerRow([]InlineBtn{{Text: "A"}, {Text: "B"}}, 1).InlineKeyboard, 2)
	assert.Empty(t, InlineButtonsRows(nil, []InlineBtn{}).InlineKeyboard)
}

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"⬅️ Back", "❌ Cancel"}, nil, []string{"📞 Enter phone"})
	assert.True(t, m.ResizeKeyboard)
	require.Len(t, m.ReplyKeyboard, 2)
	assert.Equal(t, "❌ Cancel", m.ReplyKeyboard[0][1].Text)
	assert.True(t, RemoveKeyboard().RemoveKeyboard)
}
