package middleware

import (
	"fmt"
	"runtime/debug"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers and turns them into errors.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}
