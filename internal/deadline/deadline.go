// Package deadline renders deadline keys as human-readable text.
package deadline

import "strings"

// Keys offered on the deadline keyboard.
const (
	Urgent    = "urgent"
	Week      = "week"
	NotUrgent = "not_urgent"
	Custom    = "custom"
)

// Placeholder is shown when no value is available.
const Placeholder = "—"

var labels = map[string]string{
	Urgent:    "Urgent",
	Week:      "Within a week",
	NotUrgent: "Not urgent",
}

// Keys returns the deadline keys in keyboard order.
func Keys() []string {
	return []string{Urgent, Week, NotUrgent, Custom}
}

// Strip removes a legacy namespace prefix such as "deadline:" or "dl:".
func Strip(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		key = key[i+1:]
	}
	return strings.TrimSpace(key)
}

// Valid reports whether key (with or without prefix) is a known deadline key.
func Valid(key string) bool {
	k := Strip(key)
	if k == Custom {
		return true
	}
	_, ok := labels[k]
	return ok
}

// Label returns the button label for a fixed key, or the key itself.
func Label(key string) string {
	if l, ok := labels[Strip(key)]; ok {
		return l
	}
	return key
}

// Normalize maps a deadline key and optional custom text to display text.
// Unknown keys yield Placeholder.
func Normalize(key, customText string) string {
	k := Strip(key)
	if k == Custom {
		if t := strings.TrimSpace(customText); t != "" {
			return t
		}
		return Placeholder
	}
	if l, ok := labels[k]; ok {
		return l
	}
	return Placeholder
}
