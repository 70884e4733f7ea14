package callbacks

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"nil", nil, "", ""},
		{"raw namespace", &tele.Callback{Data: "lead:back"}, "lead", "back"},
		{"raw nested", &tele.Callback{Data: "services:open:3"}, "services", "open:3"},
		{"raw bare", &tele.Callback{Data: "noop"}, "noop", ""},
		{"telebot encoded", &tele.Callback{Data: "\fpick|42"}, "pick", "42"},
		{"telebot encoded padded", &tele.Callback{Data: " \fpick|7 "}, "pick", "7 "},
		{"telebot encoded no payload", &tele.Callback{Data: "\fpick"}, "pick", ""},
		{"raw padded", &tele.Callback{Data: "  lead:send\n"}, "lead", "send"},
		{"resolved unique", &tele.Callback{Unique: "pick", Data: "42"}, "pick", "42"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}

type callbackContext struct {
	tele.Context
	cb *tele.Callback
}

func (c callbackContext) Callback() *tele.Callback { return c.cb }

func TestPayloadHelpers(t *testing.T) {
	c := callbackContext{cb: &tele.Callback{Data: "services:open:3"}}
	action, arg := PayloadAction(c)
	assert.Equal(t, "open", action)
	assert.Equal(t, "3", arg)

	n, err := PayloadIntAt(c, ":", 1)
	assert.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = PayloadIntAt(c, ":", 2)
	assert.ErrorIs(t, err, strconv.ErrRange)
	_, err = PayloadIntAt(callbackContext{cb: &tele.Callback{Data: "services:open:x"}}, ":", 1)
	assert.Error(t, err)
	_, err = PayloadParts(callbackContext{cb: &tele.Callback{Data: "services"}}, ":")
	assert.ErrorIs(t, err, strconv.ErrSyntax)

	assert.Equal(t, "services:open:3", CallbackData(c))
	assert.Equal(t, "pick:42", CallbackData(callbackContext{cb: &tele.Callback{Unique: "pick", Data: "42"}}))
}
