package router

import (
	"time"

	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/middleware"
	"github.com/m3rciful/leadbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

// FSM is a conversation engine that claims messages from users with an
// active conversation.
type FSM interface {
	Active(c tele.Context) bool
	Handle(c tele.Context) error
}

// TextOptions controls fallback behaviour for text and media updates.
type TextOptions struct {
	Fallbacks ui.FallbackProvider
	Observe   Observer
}

// TextRoutes builds the handlers for text, photo, video and document messages.
//
// Text resolution order: reply-keyboard labels, then commands and their
// aliases typed as text, then the active conversation, then the fallback.
// Media skips the label and command steps.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	unknown := func(c tele.Context, name string, pick func(ui.FallbackProvider) tele.HandlerFunc, start time.Time) error {
		var fb tele.HandlerFunc
		if opts.Fallbacks != nil {
			fb = pick(opts.Fallbacks)
		}
		if fb == nil {
			logHandlerSummary(c, name, start, "skip", nil)
			return nil
		}
		return handleWithSummary(c, opts.Observe, name, start, func() error { return fb(c) })
	}

	textHandler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if h, ok := reg.LookupText(text); ok {
				return handleWithSummary(c, opts.Observe, "label", start, func() error { return h(c) })
			}
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && len(text) > 0 && text[0] == '/' {
				return handleWithSummary(c, opts.Observe, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if fsm != nil && fsm.Active(c) {
			return handleWithSummary(c, opts.Observe, "fsm", start, func() error { return fsm.Handle(c) })
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, opts.Observe, "fallback", start, func() error { return fb(c) })
			}
		}
		return unknown(c, "unknown_text", ui.FallbackProvider.UnknownText, start)
	}

	mediaHandler := func(c tele.Context) error {
		start := time.Now()
		if fsm != nil && fsm.Active(c) {
			return handleWithSummary(c, opts.Observe, "fsm_media", start, func() error { return fsm.Handle(c) })
		}
		return unknown(c, "unexpected_media", ui.FallbackProvider.UnknownMedia, start)
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(textHandler)},
		{Endpoint: tele.OnPhoto, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnVideo, Handler: wrap(mediaHandler)},
		{Endpoint: tele.OnDocument, Handler: wrap(mediaHandler)},
	}
}
