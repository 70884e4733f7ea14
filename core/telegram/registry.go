package telegram

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands, callback namespaces and reply-keyboard labels.
type Registry struct {
	commands         map[string]commands.Command
	callbacks        map[string]tele.HandlerFunc
	labels           map[string]tele.HandlerFunc
	mu               sync.RWMutex
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		labels:    make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return tghelpers.Answer(c, "Unsupported action", false)
		},
	}
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.Warn(context.Background(), "tg.wire", event, attrs...)
}

// RegisterCommand adds a new command.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		wireWarn("register.command.skip", slog.String("name", name), slog.String("cause", "invalid"))
		return
	}
	if name[0] != '/' {
		wireWarn("register.command.skip", slog.String("name", name), slog.String("cause", "no_slash_prefix"))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		wireWarn("register.command.duplicate", slog.String("name", name))
		return
	}
	r.commands[name] = cmd
}

// ListCommands returns the commands for the Telegram menu, optionally
// filtering out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []commands.Entry
	for name, meta := range r.commands {
		if visibleOnly && !meta.Listed() {
			continue
		}
		list = append(list, commands.Entry{Name: name, Command: meta})
	}
	slices.SortFunc(list, commands.Compare)
	out := make([]tele.Command, len(list))
	for i, e := range list {
		out[i] = tele.Command{Text: strings.TrimPrefix(e.Name, "/"), Description: e.Description}
	}
	return out
}

// LookupCommand searches for a command by name or alias and returns the canonical key with metadata if found.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name, _, _ = strings.Cut(strings.TrimSpace(name), " ")
	if name == "" {
		return "", commands.Command{}, false
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// Commands returns a copy of all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback maps a callback namespace (the text before the first ':')
// or a telebot unique to handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		wireWarn("register.callback.skip", slog.String("cb_key", key), slog.Bool("handler_nil", handler == nil))
		return errors.New("invalid callback registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		wireWarn("register.callback.duplicate", slog.String("cb_key", key))
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback safely returns handler by key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted keys (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RegisterText binds an exact reply-keyboard label to handler.
func (r *Registry) RegisterText(label string, handler tele.HandlerFunc) error {
	label = strings.TrimSpace(label)
	if r == nil || label == "" || handler == nil {
		wireWarn("register.text.skip", slog.String("payload", label))
		return errors.New("invalid text registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.labels[label]; exists {
		wireWarn("register.text.duplicate", slog.String("payload", label))
		return fmt.Errorf("text label already registered: %s", label)
	}
	r.labels[label] = handler
	return nil
}

// LookupText returns the handler bound to a reply-keyboard label.
func (r *Registry) LookupText(text string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.labels[strings.TrimSpace(text)]
	return h, ok
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets a global fallback handler for unknown text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(context.Background(), "tg.wire", "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
}
