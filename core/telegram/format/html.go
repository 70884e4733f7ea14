// Package format renders user-supplied text safely for Telegram's HTML parse mode.
package format

import (
	"html"
	"strings"
)

// EscapeHTML escapes the characters Telegram's HTML mode treats as markup.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}

// Bold wraps escaped s in <b> tags.
func Bold(s string) string {
	return "<b>" + EscapeHTML(s) + "</b>"
}

// Field renders "<b>label:</b> value" with value escaped; empty values render as "—".
func Field(label, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = "—"
	}
	return "<b>" + EscapeHTML(label) + ":</b> " + EscapeHTML(value)
}

// Lines joins non-empty lines with newlines.
func Lines(lines ...string) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
