package helpers

import (
	"context"

	"github.com/m3rciful/leadbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	contextKey  = "logger_ctx"
	answeredKey = "cb_answered"
)

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom telegram context if previously stored by middleware.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if ctx, ok := c.Get(contextKey).(context.Context); ok {
		return ctx, true
	}
	return nil, false
}

// BuildContext constructs a context.Context from tele.Context,
// enriching it with RID and update/user/chat metadata for consistent service logging.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	upd := c.Update()
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches stored context with handler metadata for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}

// WithState records the conversation state on the stored context.
func WithState(c tele.Context, state string) context.Context {
	ctx := logger.WithState(BuildContext(c), state)
	StoreContext(c, ctx)
	return ctx
}

// Answer acknowledges the current callback query with an optional toast or
// alert. Outside a callback a non-empty text is sent as a plain message.
func Answer(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil {
		if text == "" {
			return nil
		}
		return SendText(c, text)
	}
	c.Set(answeredKey, true)
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: alert})
}

// Answered reports whether the current callback query was already acknowledged.
func Answered(c tele.Context) bool {
	done, _ := c.Get(answeredKey).(bool)
	return done
}
