package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/state"
	"github.com/m3rciful/leadbot/internal/catalog"
	"github.com/m3rciful/leadbot/internal/config"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/lead"
)

type outbound struct {
	text  string
	opts  *tele.SendOptions
	album tele.Album
}

// chatLog collects everything the bot sent to the test user.
type chatLog struct {
	mu      sync.Mutex
	out     []outbound
	answers []*tele.CallbackResponse
}

func (l *chatLog) last(t *testing.T) outbound {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.out)
	return l.out[len(l.out)-1]
}

func (l *chatLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out, l.answers = nil, nil
}

// updateContext implements the subset of tele.Context the bot touches.
type updateContext struct {
	tele.Context
	log   *chatLog
	user  *tele.User
	msg   *tele.Message
	cb    *tele.Callback
	store map[string]any
}

func (u *updateContext) Sender() *tele.User       { return u.user }
func (u *updateContext) Chat() *tele.Chat         { return &tele.Chat{ID: u.user.ID, Type: tele.ChatPrivate} }
func (u *updateContext) Callback() *tele.Callback { return u.cb }
func (u *updateContext) Message() *tele.Message   { return u.msg }
func (u *updateContext) Get(k string) any         { return u.store[k] }
func (u *updateContext) Set(k string, v any)      { u.store[k] = v }

func (u *updateContext) Text() string {
	if u.msg == nil {
		return ""
	}
	return u.msg.Text
}

func (u *updateContext) Update() tele.Update {
	return tele.Update{ID: 11, Message: u.msg, Callback: u.cb}
}

func (u *updateContext) Respond(resp ...*tele.CallbackResponse) error {
	u.log.mu.Lock()
	defer u.log.mu.Unlock()
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	u.log.answers = append(u.log.answers, resp...)
	return nil
}

func (u *updateContext) Send(what any, opts ...any) error {
	o := outbound{text: what.(string)}
	for _, opt := range opts {
		if so, ok := opt.(*tele.SendOptions); ok {
			o.opts = so
		}
	}
	u.log.mu.Lock()
	defer u.log.mu.Unlock()
	u.log.out = append(u.log.out, o)
	return nil
}

func (u *updateContext) EditOrSend(what any, opts ...any) error {
	return u.Send(what, opts...)
}

func (u *updateContext) SendAlbum(a tele.Album, _ ...any) error {
	u.log.mu.Lock()
	defer u.log.mu.Unlock()
	u.log.out = append(u.log.out, outbound{album: a})
	return nil
}

type memRepo struct {
	mu      sync.Mutex
	created []lead.Record
	listErr error
}

func (r *memRepo) CreateLead(_ context.Context, rec lead.Record) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = int64(len(r.created) + 1)
	r.created = append(r.created, rec)
	return rec.ID, nil
}

func (r *memRepo) AttachFiles(context.Context, int64, []lead.File) error { return nil }

func (r *memRepo) ListRecent(_ context.Context, limit int) ([]lead.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]lead.Record, 0, len(r.created))
	for i := len(r.created) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.created[i])
	}
	return out, nil
}

type notes struct {
	mu   sync.Mutex
	sent []string
}

func (n *notes) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

type fixture struct {
	t      *testing.T
	log    *chatLog
	user   *tele.User
	repo   *memRepo
	admin  *notes
	cv     *Conversation
	pages  *Pages
	routes []tg.Route
}

func newFixture(t *testing.T, content config.ContentConfig) *fixture {
	t.Helper()
	repo := &memRepo{}
	admin := &notes{}
	fin := lead.NewFinalizer(repo, admin, lead.Options{
		Now: func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC) },
	})
	cat := catalog.MustDefault()
	m, err := flow.New(flow.Options{
		Catalog:     cat,
		Store:       state.NewMemoryStore[flow.Conversation](0),
		Submitter:   fin,
		Texts:       content.Flow,
		MainMenu:    MainMenu(),
		PhoneRegion: "RU",
	})
	require.NoError(t, err)

	cv := NewConversation(m)
	pages := NewPages(cv, cat, content, repo)
	reg := tg.NewRegistry()
	require.NoError(t, Register(reg, cv, pages))
	return &fixture{
		t:      t,
		log:    &chatLog{},
		user:   &tele.User{ID: 42, Username: "bob", FirstName: "Bob", LastName: "Stone"},
		repo:   repo,
		admin:  admin,
		cv:     cv,
		pages:  pages,
		routes: Routes(reg, cv, pages, 1),
	}
}

func (f *fixture) ctx(msg *tele.Message, cb *tele.Callback) *updateContext {
	return &updateContext{log: f.log, user: f.user, msg: msg, cb: cb, store: map[string]any{}}
}

func (f *fixture) route(endpoint string) tele.HandlerFunc {
	f.t.Helper()
	for _, r := range f.routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	f.t.Fatalf("no route for %s", endpoint)
	return nil
}

func (f *fixture) text(s string) {
	f.t.Helper()
	require.NoError(f.t, f.route(tele.OnText)(f.ctx(&tele.Message{Text: s}, nil)))
}

func (f *fixture) press(data string) {
	f.t.Helper()
	require.NoError(f.t, f.route(tele.OnCallback)(f.ctx(nil, &tele.Callback{Data: data})))
}

func (f *fixture) photo(fileID string) {
	f.t.Helper()
	msg := &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: fileID}}}
	require.NoError(f.t, f.route(tele.OnPhoto)(f.ctx(msg, nil)))
}

func (f *fixture) command(endpoint, payload string) {
	f.t.Helper()
	msg := &tele.Message{Text: endpoint, Payload: payload, Sender: f.user}
	require.NoError(f.t, f.route(endpoint)(f.ctx(msg, nil)))
}

func (f *fixture) state() flow.State {
	f.t.Helper()
	s, err := f.cv.State(context.Background(), f.user.ID)
	require.NoError(f.t, err)
	return s
}

func TestMenuLabelStartsLead(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.text(flow.LabelStart)

	assert.Equal(t, flow.StateChoosingService, f.state())
	last := f.log.last(t)
	require.NotNil(t, last.opts)
	kb := last.opts.ReplyMarkup
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 7)
	assert.Equal(t, "svc:1", kb.InlineKeyboard[0][0].Data)
}

func TestRestorationLeadEndToEnd(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.command("/lead", "")
	f.press("svc:2")
	f.press("rest:photo")
	f.text("old family photo")
	f.photo("p1")
	f.photo("p2")
	assert.Contains(t, f.log.last(t).text, "Files: 2/10")

	f.press("files:done")
	f.press("deadline:week")
	assert.Equal(t, flow.StateContactChoice, f.state())
	f.text(flow.LabelUseHandle)
	assert.Equal(t, flow.StateConfirm, f.state())
	confirm := f.log.last(t)
	require.NotNil(t, confirm.opts)
	assert.Equal(t, tele.ModeHTML, confirm.opts.ParseMode)

	f.press("lead:send")
	assert.Equal(t, flow.State(""), f.state())

	require.Len(t, f.repo.created, 1)
	rec := f.repo.created[0]
	assert.Equal(t, "restoration", rec.ServiceID)
	assert.Equal(t, "Bob Stone", rec.FullName)
	assert.Equal(t, "@bob", rec.Contact)
	assert.Equal(t, "Within a week", rec.Deadline)
	assert.Len(t, rec.Files, 2)
	require.Len(t, f.admin.sent, 1)
	assert.Contains(t, f.admin.sent[0], "Photo/video restoration")

	done := f.log.last(t)
	require.NotNil(t, done.opts)
	require.NotNil(t, done.opts.ReplyMarkup)
	assert.Equal(t, flow.LabelStart, done.opts.ReplyMarkup.ReplyKeyboard[0][0].Text)
}

func TestCallbacksAreAnsweredOnce(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.press("deadline:urgent")
	require.Len(t, f.log.answers, 1)
	assert.Equal(t, flow.NoticeStaleButton, f.log.answers[0].Text)
	assert.Empty(t, f.log.out)

	f.log.reset()
	f.press("lead:start")
	require.Len(t, f.log.answers, 1)
	assert.Empty(t, f.log.answers[0].Text)
	assert.Len(t, f.log.out, 1)
}

func TestCancelCommandLeavesFlow(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.press("lead:start")
	f.press("svc:4")
	require.True(t, f.cv.Active(f.ctx(&tele.Message{}, nil)))

	f.command("/cancel", "")
	assert.Equal(t, flow.State(""), f.state())
	assert.Contains(t, f.log.last(t).text, "cancelled")
}

func TestStartDeepLinkSelectsService(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.command("/start", "lead_content")
	assert.Equal(t, flow.StateContentTask, f.state())

	f.log.reset()
	f.command("/start", "")
	assert.Equal(t, defaultWelcome, f.log.last(t).text)
}

func TestTypedMenuLabelsWhileIdleFallBack(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.text(flow.LabelBack)
	assert.Equal(t, textUseMenu, f.log.last(t).text)
	assert.Equal(t, flow.State(""), f.state())

	f.photo("stray")
	assert.Equal(t, textUseMenu, f.log.last(t).text)
}

func TestServicesPages(t *testing.T) {
	f := newFixture(t, config.ContentConfig{
		ServiceCards: map[string]string{"model3d": "3D card"},
	})
	f.text(LabelServices)
	list := f.log.last(t)
	assert.Equal(t, flow.TextChooseService, list.text)
	require.Len(t, list.opts.ReplyMarkup.InlineKeyboard, 7)
	assert.Equal(t, "services:open:3", list.opts.ReplyMarkup.InlineKeyboard[2][0].Data)

	f.press("services:open:3")
	assert.Equal(t, "3D card", f.log.last(t).text)
	f.press("services:open:1")
	assert.Contains(t, f.log.last(t).text, "Description coming soon.")

	f.log.reset()
	f.press("services:open:99")
	require.Len(t, f.log.answers, 1)
	assert.Equal(t, flow.NoticeInvalidPick, f.log.answers[0].Text)

	f.press("services:open:x")
	assert.Equal(t, flow.NoticeInvalidPick, f.log.answers[len(f.log.answers)-1].Text)

	f.press("services:list")
	back := f.log.last(t)
	assert.Equal(t, flow.TextChooseService, back.text)
	assert.Equal(t, tele.ModeHTML, back.opts.ParseMode)
	require.Len(t, back.opts.ReplyMarkup.InlineKeyboard, 7)

	f.press("services:apply:3")
	assert.Equal(t, flow.StateModelIntro, f.state())
}

func TestPortfolioAlbum(t *testing.T) {
	ids := make([]string, 12)
	for i := range ids {
		ids[i] = "ph" + string(rune('a'+i))
	}
	f := newFixture(t, config.ContentConfig{
		Portfolio: map[string][]string{"restoration": ids},
	})
	f.text(LabelPortfolio)
	grid := f.log.last(t).opts.ReplyMarkup.InlineKeyboard
	require.Len(t, grid, 4)
	assert.Equal(t, "portfolio:open:neuro", grid[0][0].Data)
	assert.Equal(t, "portfolio:open:restoration", grid[0][1].Data)
	assert.Equal(t, "portfolio:menu", grid[3][0].Data)

	f.log.reset()
	f.press("portfolio:open:restoration")
	require.Len(t, f.log.out, 2)
	assert.Len(t, f.log.out[0].album, maxAlbum)
	assert.Equal(t, textWantSame, f.log.out[1].text)
	assert.Equal(t, "portfolio:apply:restoration", f.log.out[1].opts.ReplyMarkup.InlineKeyboard[0][0].Data)

	f.log.reset()
	f.press("portfolio:open:neuro")
	require.Len(t, f.log.out, 2)
	assert.Contains(t, f.log.out[0].text, "not configured")

	f.press("portfolio:apply:restoration")
	assert.Equal(t, flow.StateRestType, f.state())
}

func TestNeuroExamplesAlbum(t *testing.T) {
	f := newFixture(t, config.ContentConfig{
		Flow: flow.Texts{NeuroExamples: []string{"n1", "n2", "n3"}},
	})
	f.press("lead:start")
	f.log.reset()
	f.press("svc:1")
	assert.Equal(t, flow.StateNeuroStep1, f.state())

	var albums []tele.Album
	for _, o := range f.log.out {
		if o.album != nil {
			albums = append(albums, o.album)
		}
	}
	require.Len(t, albums, 1)
	require.Len(t, albums[0], 3)
	assert.Equal(t, "n1", albums[0][0].MediaFile().FileID)
}

func TestRecentLeadsAdminOnly(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.press("lead:start")
	f.press("svc:4")
	f.text("a reel for instagram")
	f.press("deadline:urgent")
	f.text(flow.LabelSkipContact)
	f.press("lead:send")
	require.Len(t, f.repo.created, 1)

	f.log.reset()
	f.command("/leads", "")
	assert.NotContains(t, f.log.last(t).text, "#1", "non-admin gets the fallback")

	f.user.ID = 1
	f.command("/leads", "")
	out := f.log.last(t)
	assert.Contains(t, out.text, "#1 2026-05-01 09:30")
	assert.Contains(t, out.text, "Bob Stone @bob")

	f.repo.listErr = errors.New("db down")
	f.command("/leads", "")
	assert.Equal(t, "⚠️ Could not load leads.", f.log.last(t).text)
}

func TestHelpShowsBuild(t *testing.T) {
	f := newFixture(t, config.ContentConfig{Help: "Custom help"})
	f.command("/help", "")
	out := f.log.last(t)
	assert.Contains(t, out.text, "Custom help")
	assert.Contains(t, out.text, "dev (local)")
	assert.Equal(t, tele.ModeHTML, out.opts.ParseMode)
}

func TestPagesBackToMenu(t *testing.T) {
	f := newFixture(t, config.ContentConfig{})
	f.text(LabelContacts)
	assert.Equal(t, "lead:start", f.log.last(t).opts.ReplyMarkup.InlineKeyboard[0][0].Data)
	f.press("pages:back_menu")
	assert.Equal(t, flow.TextMainMenu, f.log.last(t).text)
}

func TestMarkupConversion(t *testing.T) {
	assert.Nil(t, markup(nil))
	assert.True(t, markup(&flow.Keyboard{Remove: true}).RemoveKeyboard)

	rm := markup(&flow.Keyboard{Inline: [][]flow.Button{{{Text: "A", Payload: "x:1"}, {Text: "B", Payload: "x:2"}}}})
	require.Len(t, rm.InlineKeyboard, 1)
	assert.Equal(t, "x:2", rm.InlineKeyboard[0][1].Data)

	rm = markup(&flow.Keyboard{Reply: [][]string{{"one"}, {"two", "three"}}})
	require.Len(t, rm.ReplyKeyboard, 2)
	assert.Equal(t, "three", rm.ReplyKeyboard[1][1].Text)
}
