package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands, callbacks, labels or an active conversation.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownMedia() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
