package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/buildinfo"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	"github.com/m3rciful/leadbot/core/telegram/format"
	"github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/keyboard"
	"github.com/m3rciful/leadbot/internal/catalog"
	"github.com/m3rciful/leadbot/internal/config"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/lead"
)

// Main menu labels.
const (
	LabelServices  = "🧩 Services"
	LabelPortfolio = "🖼 Portfolio"
	LabelHowWeWork = "🧾 How we work"
	LabelContacts  = "☎️ Contacts"
)

const (
	textUseMenu      = "Please use the menu 👇"
	textPickExamples = "Choose a service to see examples of our work:"
	textWantSame     = "Want the same result?"
	deepLinkPrefix   = "lead_"
	recentLeadsLimit = 10
	portfolioPerRow  = 2
)

const (
	defaultWelcome   = "Hi! Pick a menu item below 👇"
	defaultHelp      = "<b>Help</b>\nUse the menu to browse services and leave a request.\nTo reach us directly, open «Contacts»."
	defaultHowWeWork = "🧾 <b>How we work</b>\n\n1. You leave a request.\n2. We clarify the details and agree on the price.\n3. You get the result."
	defaultContacts  = "☎️ <b>Contacts</b>\n\nWrite to us right here in the bot."
)

// MainMenu is the reply keyboard shown at idle.
func MainMenu() [][]string {
	return [][]string{
		{flow.LabelStart},
		{LabelServices, LabelPortfolio},
		{LabelHowWeWork, LabelContacts},
	}
}

// LeadLister lists recent leads for the admin.
type LeadLister interface {
	ListRecent(ctx context.Context, limit int) ([]lead.Record, error)
}

// Pages serves the commands and menu pages around the lead conversation.
type Pages struct {
	cv      *Conversation
	catalog *catalog.Catalog
	content config.ContentConfig
	leads   LeadLister
	menu    *tele.ReplyMarkup
}

// NewPages builds the page handlers. leads may be nil to disable /leads.
func NewPages(cv *Conversation, cat *catalog.Catalog, content config.ContentConfig, leads LeadLister) *Pages {
	return &Pages{
		cv:      cv,
		catalog: cat,
		content: content,
		leads:   leads,
		menu:    keyboard.ReplyButtons(MainMenu()...),
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Start handles /start. A "lead_<serviceId>" payload opens the lead flow
// with that service selected.
func (p *Pages) Start(c tele.Context) error {
	if arg := startPayload(c); strings.HasPrefix(arg, deepLinkPrefix) {
		return p.cv.Start(c, strings.TrimPrefix(arg, deepLinkPrefix))
	}
	return helpers.SendHTML(c, orDefault(p.content.Welcome, defaultWelcome), p.menu)
}

func startPayload(c tele.Context) string {
	if msg := c.Message(); msg != nil {
		return strings.TrimSpace(msg.Payload)
	}
	return ""
}

// Help handles /help.
func (p *Pages) Help(c tele.Context) error {
	text := orDefault(p.content.Help, defaultHelp) + "\n\n<i>" + format.EscapeHTML(buildinfo.String()) + "</i>"
	return helpers.SendHTML(c, text, p.menu)
}

// Lead handles /lead and the "Leave a request" label.
func (p *Pages) Lead(c tele.Context) error {
	return p.cv.Start(c, "")
}

// Cancel handles /cancel.
func (p *Pages) Cancel(c tele.Context) error {
	return p.cv.Press(c, "lead:cancel")
}

// RecentLeads handles the admin /leads command.
func (p *Pages) RecentLeads(c tele.Context) error {
	if p.leads == nil {
		return helpers.SendText(c, "Lead storage is not configured.")
	}
	ctx := helpers.BuildContext(c)
	recs, err := p.leads.ListRecent(ctx, recentLeadsLimit)
	if err != nil {
		logger.Error(ctx, "leads", "leads.list",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return helpers.SendText(c, "⚠️ Could not load leads.")
	}
	return helpers.SendHTML(c, renderRecent(recs))
}

func renderRecent(recs []lead.Record) string {
	if len(recs) == 0 {
		return "No leads yet."
	}
	lines := make([]string, 0, len(recs)+1)
	lines = append(lines, format.Bold(fmt.Sprintf("Last %d leads", len(recs))))
	for _, r := range recs {
		who := r.FullName
		if r.TelegramUsername != "" {
			who += " @" + r.TelegramUsername
		}
		lines = append(lines, fmt.Sprintf("#%d %s · %s · %s · %s",
			r.ID,
			r.CreatedAt.UTC().Format("2006-01-02 15:04"),
			format.EscapeHTML(r.Service),
			format.EscapeHTML(strings.TrimSpace(who)),
			format.EscapeHTML(r.Contact),
		))
	}
	return format.Lines(lines...)
}

// Services shows the services list.
func (p *Pages) Services(c tele.Context) error {
	return helpers.SendText(c, flow.TextChooseService, &tele.SendOptions{ReplyMarkup: p.servicesMarkup()})
}

func (p *Pages) servicesMarkup() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, p.catalog.Len()+1)
	for i, e := range p.catalog.Entries() {
		btns = append(btns, keyboard.InlineBtn{Text: e.Title, Data: "services:open:" + strconv.Itoa(i+1)})
	}
	btns = append(btns, keyboard.InlineBtn{Text: "⬅️ To menu", Data: "services:back_menu"})
	return keyboard.InlineButtons(btns)
}

// ServicesCallback handles the services:* namespace.
func (p *Pages) ServicesCallback(c tele.Context) error {
	action, _ := callbacks.PayloadAction(c)
	switch action {
	case "list":
		return helpers.EditOrSendHTML(c, flow.TextChooseService, p.servicesMarkup())
	case "back_menu":
		return p.showMenu(c)
	}

	idx, err := callbacks.PayloadIntAt(c, ":", 1)
	if err != nil {
		return helpers.Answer(c, flow.NoticeInvalidPick, false)
	}
	e, ok := p.catalog.ByIndex(idx)
	if !ok {
		return helpers.Answer(c, flow.NoticeInvalidPick, false)
	}
	switch action {
	case "open":
		card := p.content.ServiceCards[e.ID]
		if strings.TrimSpace(card) == "" {
			card = e.Title + "\n\nDescription coming soon."
		}
		return helpers.SendText(c, card, &tele.SendOptions{ReplyMarkup: serviceCardMarkup(idx)})
	case "apply":
		return p.cv.Start(c, e.ID)
	case "portfolio":
		return p.sendPortfolio(c, e)
	}
	return helpers.Answer(c, flow.NoticeStaleButton, false)
}

func serviceCardMarkup(idx int) *tele.ReplyMarkup {
	n := strconv.Itoa(idx)
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Leave a request", Data: "services:apply:" + n}},
		[]keyboard.InlineBtn{{Text: "🖼 Examples", Data: "services:portfolio:" + n}},
		[]keyboard.InlineBtn{{Text: "⬅️ Back to services", Data: "services:list"}},
	)
}

// Portfolio shows the services that can have example albums.
func (p *Pages) Portfolio(c tele.Context) error {
	return helpers.SendText(c, textPickExamples, &tele.SendOptions{ReplyMarkup: p.portfolioMarkup()})
}

func (p *Pages) portfolioMarkup() *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, p.catalog.Len())
	for _, e := range p.catalog.Entries() {
		btns = append(btns, keyboard.InlineBtn{Text: e.Title, Data: "portfolio:open:" + e.ID})
	}
	m := keyboard.InlineButtonsNPerRow(btns, portfolioPerRow)
	m.InlineKeyboard = append(m.InlineKeyboard, []tele.InlineButton{{Text: "⬅️ To menu", Data: "portfolio:menu"}})
	return m
}

// PortfolioCallback handles the portfolio:* namespace.
func (p *Pages) PortfolioCallback(c tele.Context) error {
	action, arg := callbacks.PayloadAction(c)
	id := strings.TrimSpace(arg)
	switch action {
	case "list":
		return helpers.EditOrSendHTML(c, textPickExamples, p.portfolioMarkup())
	case "menu":
		return p.showMenu(c)
	case "open":
		e, ok := p.catalog.Entry(id)
		if !ok {
			return helpers.SendText(c, "Could not find that service. Open «Portfolio» again.")
		}
		return p.sendPortfolio(c, e)
	case "apply":
		return p.cv.Start(c, id)
	}
	return helpers.Answer(c, flow.NoticeStaleButton, false)
}

// sendPortfolio sends the example album of e followed by the call to action.
func (p *Pages) sendPortfolio(c tele.Context, e catalog.Entry) error {
	ids := p.content.Portfolio[e.ID]
	if len(ids) == 0 {
		notice := e.Title + "\n\n⚠️ Examples are not configured yet."
		back := keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{{Text: "⬅️ Back to services", Data: "portfolio:list"}},
		)
		return helpers.SendSequence(c, "portfolio.empty",
			func() error { return c.Send(notice) },
			func() error { return c.Send(textUseMenu, &tele.SendOptions{ReplyMarkup: back}) },
		)
	}
	album := photoAlbum(ids)
	after := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Leave a request", Data: "portfolio:apply:" + e.ID}},
		[]keyboard.InlineBtn{{Text: "⬅️ Back to services", Data: "portfolio:list"}},
	)
	return helpers.SendSequence(c, "portfolio.album",
		func() error { return c.SendAlbum(album) },
		func() error { return c.Send(textWantSame, &tele.SendOptions{ReplyMarkup: after}) },
	)
}

// HowWeWork shows the process page.
func (p *Pages) HowWeWork(c tele.Context) error {
	return helpers.SendHTML(c, orDefault(p.content.HowWeWork, defaultHowWeWork), pageActions("⬅️ Back"))
}

// Contacts shows the contacts page.
func (p *Pages) Contacts(c tele.Context) error {
	return helpers.SendHTML(c, orDefault(p.content.Contacts, defaultContacts), pageActions("⬅️ To menu"))
}

func pageActions(back string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "✅ Leave a request", Data: "lead:start"}},
		[]keyboard.InlineBtn{{Text: back, Data: "pages:back_menu"}},
	)
}

// PagesCallback handles the pages:* namespace.
func (p *Pages) PagesCallback(c tele.Context) error {
	if action, _ := callbacks.PayloadAction(c); action == "back_menu" {
		return p.showMenu(c)
	}
	return helpers.Answer(c, flow.NoticeStaleButton, false)
}

func (p *Pages) showMenu(c tele.Context) error {
	return helpers.SendText(c, flow.TextMainMenu, &tele.SendOptions{ReplyMarkup: p.menu})
}

// UnknownText implements ui.FallbackProvider.
func (p *Pages) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.SendText(c, textUseMenu, &tele.SendOptions{ReplyMarkup: p.menu})
	}
}

// UnknownMedia implements ui.FallbackProvider.
func (p *Pages) UnknownMedia() tele.HandlerFunc {
	return p.UnknownText()
}

// UnknownCallback implements ui.FallbackProvider.
func (p *Pages) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return helpers.Answer(c, flow.NoticeStaleButton, false)
	}
}
