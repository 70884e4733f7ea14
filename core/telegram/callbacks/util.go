package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits callback data into a routing key and a payload.
//
// Two encodings are understood:
//
//	\f<unique>|<payload>   telebot's own encoding for registered buttons
//	<ns>:<rest>            raw colon-delimited data, keyed by namespace
//
// Data without a separator is returned as the key with an empty payload.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	// \f is whitespace to TrimSpace; look for it before trimming.
	raw := strings.TrimLeft(cb.Data, " \t\r\n")
	if encoded, ok := strings.CutPrefix(raw, "\f"); ok {
		unique, payload, _ := strings.Cut(encoded, "|")
		return strings.TrimSpace(unique), payload
	}
	ns, rest, _ := strings.Cut(strings.TrimSpace(raw), ":")
	return strings.TrimSpace(ns), rest
}

// CallbackPayload returns the payload that follows the routing key.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}

// CallbackData returns the full raw callback data, namespace included.
func CallbackData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique + ":" + cb.Data
	}
	return strings.TrimSpace(cb.Data)
}
