package middleware

import (
	"sync"
	"time"

	"log/slog"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := &limiter{interval: opts.Interval, lastSeen: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if lim.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	}
	return "other"
}

// limiter remembers the last accepted update per user. Entries older than
// the interval are pruned on a sweep at most once per interval.
type limiter struct {
	mu        sync.Mutex
	interval  time.Duration
	lastSeen  map[int64]time.Time
	lastSweep time.Time
}

func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= l.interval {
		for id, ts := range l.lastSeen {
			if now.Sub(ts) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.lastSweep = now
	}
	if last, ok := l.lastSeen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = now
	return true
}
