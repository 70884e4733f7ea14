package router

import (
	"context"
	"sort"
	"time"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	Observe       Observer
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Aliases are routed to the same handler as their canonical command.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOpts := middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	}

	cmds := reg.Commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	routes := make([]tg.Route, 0, len(cmds))
	for _, cmd := range names {
		def := cmds[cmd]
		name := normalizeHandlerName(cmd)
		inner := def.Handler
		h := func(c tele.Context) error {
			return handleWithSummary(c, opts.Observe, name, time.Now(), func() error {
				return inner(c)
			})
		}
		if def.AdminOnly {
			h = middleware.AdminOnlyMiddleware(adminOpts)(h)
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))

		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.String("status", "ok"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
