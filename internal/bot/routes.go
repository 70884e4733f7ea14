package bot

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/commands"
	"github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/router"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/metrics"
)

// Register binds commands, callback namespaces and menu labels.
func Register(reg *tg.Registry, cv *Conversation, p *Pages) error {
	reg.RegisterCommand("/start", commands.Command{Handler: p.Start, Description: "Main menu", Order: 1})
	reg.RegisterCommand("/lead", commands.Command{Handler: p.Lead, Description: "Leave a request", Order: 2})
	reg.RegisterCommand("/help", commands.Command{Handler: p.Help, Description: "Help", Order: 3})
	reg.RegisterCommand("/cancel", commands.Command{Handler: p.Cancel, Description: "Cancel the request", Order: 4})
	reg.RegisterCommand("/leads", commands.Command{Handler: p.RecentLeads, Description: "Recent leads", AdminOnly: true, Order: 5})

	var errs []error
	for _, ns := range flowNamespaces {
		errs = append(errs, reg.RegisterCallback(ns, cv.Callback))
	}
	errs = append(errs,
		reg.RegisterCallback("services", p.ServicesCallback),
		reg.RegisterCallback("portfolio", p.PortfolioCallback),
		reg.RegisterCallback("pages", p.PagesCallback),
		reg.RegisterText(flow.LabelStart, p.Lead),
		reg.RegisterText(LabelServices, p.Services),
		reg.RegisterText(LabelPortfolio, p.Portfolio),
		reg.RegisterText(LabelHowWeWork, p.HowWeWork),
		reg.RegisterText(LabelContacts, p.Contacts),
	)
	return errors.Join(errs...)
}

// Routes builds the command, callback and message routes with handler
// metrics attached.
func Routes(reg *tg.Registry, cv *Conversation, p *Pages, adminID int64) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       adminID,
		OnAdminReject: p.UnknownText(),
		Observe:       metrics.ObserveHandler,
	})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		Fallbacks: p,
		Observe:   metrics.ObserveHandler,
	}))
	return append(routes, router.TextRoutes(cv, reg, router.TextOptions{
		Fallbacks: p,
		Observe:   metrics.ObserveHandler,
	})...)
}

func onRateLimited(c tele.Context) error {
	return helpers.Answer(c, "Too many messages, please slow down.", false)
}
