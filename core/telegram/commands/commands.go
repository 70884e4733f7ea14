// Package commands describes slash commands and how they appear in the
// Telegram menu.
package commands

import (
	"cmp"

	tele "gopkg.in/telebot.v4"
)

// Command binds a slash command to its handler and menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
	// Order positions the command in the Telegram menu; ties sort by name.
	Order int
}

// Listed reports whether the command belongs in the public menu.
func (c Command) Listed() bool { return !c.Hidden && !c.AdminOnly }

// Entry is a named command as shown in the menu.
type Entry struct {
	Name string
	Command
}

// Compare orders entries by Order, then by name.
func Compare(a, b Entry) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}
