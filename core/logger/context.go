package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type contextKey string

const (
	ctxRID      contextKey = "rid"
	ctxUpdateID contextKey = "update_id"
	ctxUserID   contextKey = "user_id"
	ctxChatID   contextKey = "chat_id"
	ctxLogger   contextKey = "logger"
	ctxHandler  contextKey = "handler"
	ctxState    contextKey = "state"
)

func ensure(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func stringFrom(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

func int64From(ctx context.Context, key contextKey) int64 {
	if ctx == nil {
		return 0
	}
	switch id := ctx.Value(key).(type) {
	case int64:
		return id
	case int:
		return int64(id)
	}
	return 0
}

// WithLogger stores log in ctx for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	ctx = ensure(ctx)
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxLogger, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxLogger).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ensure(ctx), ctxRID, rid)
}

// RIDFrom returns the correlation id, if any.
func RIDFrom(ctx context.Context) string { return stringFrom(ctx, ctxRID) }

// WithUpdateMeta attaches Telegram update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	ctx = context.WithValue(ensure(ctx), ctxUpdateID, updateID)
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxChatID, chatID)
}

// WithHandler records the handler name serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	ctx = ensure(ctx)
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// HandlerFrom returns the handler name, if any.
func HandlerFrom(ctx context.Context) string { return stringFrom(ctx, ctxHandler) }

// WithState records the conversation state the update is processed in.
func WithState(ctx context.Context, state string) context.Context {
	ctx = ensure(ctx)
	if state == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxState, state)
}

// StateFrom returns the conversation state, if any.
func StateFrom(ctx context.Context) string { return stringFrom(ctx, ctxState) }

// UserIDFrom returns the Telegram user id.
func UserIDFrom(ctx context.Context) int64 { return int64From(ctx, ctxUserID) }

// ChatIDFrom returns the chat id.
func ChatIDFrom(ctx context.Context) int64 { return int64From(ctx, ctxChatID) }

// UpdateIDFrom returns the update id.
func UpdateIDFrom(ctx context.Context) int { return int(int64From(ctx, ctxUpdateID)) }

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeLimit applies Sanitize and truncates to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// BuildRID returns a correlation id formatted as updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID rewrites a BuildRID value into dot-separated base36 segments.
// Input that does not look like a BuildRID value is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if rid == "" || len(parts) != 3 {
		return rid
	}
	compact := make([]string, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		compact = append(compact, strconv.FormatInt(n, 36))
	}
	return strings.Join(compact, ".")
}
