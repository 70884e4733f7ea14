package router

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Observer receives one call per handled update, e.g. to feed metrics.
type Observer func(handler, status string, took time.Duration)

func handleWithSummary(c tele.Context, obs Observer, handlerName string, start time.Time, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	status := logHandlerSummary(c, handlerName, start, "", err, extras...)
	if obs != nil {
		obs(handlerName, status, time.Since(start))
	}
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, statusOverride string, err error, extras ...slog.Attr) string {
	ctx := tghelpers.WithHandler(c, handlerName)
	msgs, kb := middleware.GetCounters(c)

	status := statusOverride
	if status == "" {
		status = logger.Status(err)
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", logger.Status(err)),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	}
	attrs = append(attrs, extras...)

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
	return status
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// deriveErrorCode names an error for log aggregation: a Code() method wins,
// then the innermost wrapped error's type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
