package middleware

import (
	"sync"
	"time"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// LoggerMiddleware logs a single receipt line per update and sets rid.
// It deduplicates by update_id because the middleware runs both globally and per route.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())

		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil {
				if user.Username != "" {
					attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
				}
				if user.LanguageCode != "" {
					attrs = append(attrs, slog.String("lang", user.LanguageCode))
				}
			}

			switch {
			case upd.Callback != nil:
				key, payload := callbacks.ParseCallbackData(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 128)),
					slog.String("payload", logger.SanitizeLimit(payload, 256)),
				)
			case upd.Message != nil:
				attrs = append(attrs, slog.String("mode", messageKind(upd.Message)))
				if t := c.Text(); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}

		return next(c)
	}
}

func messageKind(m *tele.Message) string {
	switch {
	case m.Photo != nil:
		return "photo"
	case m.Video != nil:
		return "video"
	case m.Document != nil:
		return "document"
	case m.Text != "":
		return "text"
	default:
		return "other"
	}
}
