package router

import (
	"time"

	"log/slog"

	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/middleware"
	"github.com/m3rciful/leadbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	Fallbacks ui.FallbackProvider
	Observe   Observer
}

// CallbackRoute returns a handler that routes callbacks through the registry
// by namespace. Handlers may answer the query themselves through
// helpers.Answer; otherwise an empty answer is sent once they return.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, payload := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key), slog.String("payload", payload)}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			cbHandler = nil
			if opts.Fallbacks != nil {
				cbHandler = opts.Fallbacks.UnknownCallback()
			}
			if cbHandler == nil {
				cbHandler = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("cause", "not_found"))
		}

		err := handleWithSummary(c, opts.Observe, name, start, func() error {
			if cbHandler == nil {
				return nil
			}
			return cbHandler(c)
		}, extras...)
		if !tghelpers.Answered(c) {
			_ = c.Respond()
		}
		return err
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
