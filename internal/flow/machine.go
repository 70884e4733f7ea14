// Package flow implements the lead intake conversation: a per-user state
// machine that turns button presses, text and attachments into a lead draft
// and submits it.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/state"
	"github.com/m3rciful/leadbot/internal/catalog"
	"github.com/m3rciful/leadbot/internal/lead"
)

// Submitter turns a finished draft into a stored lead.
type Submitter interface {
	Submit(ctx context.Context, d lead.Draft, who lead.Identity) (lead.Receipt, error)
}

// Recorder receives flow metrics. States are passed as strings; idle is "".
type Recorder interface {
	Transition(from, to string)
	Cancelled(from string)
	Submitted(branch string, took time.Duration)
	SubmitFailed(reason string)
}

type nopRecorder struct{}

func (nopRecorder) Transition(string, string)       {}
func (nopRecorder) Cancelled(string)                {}
func (nopRecorder) Submitted(string, time.Duration) {}
func (nopRecorder) SubmitFailed(string)             {}

// Options configure a Machine. Catalog, Store and Submitter are required.
type Options struct {
	Catalog   *catalog.Catalog
	Store     state.Store[Conversation]
	Locks     *state.KeyedMutex
	Submitter Submitter
	Texts     Texts
	// MainMenu is the reply keyboard shown when the user returns to idle.
	MainMenu [][]string
	// PhoneRegion is the ISO region used to parse phone numbers without a
	// country code.
	PhoneRegion string
	Recorder    Recorder
}

// Machine runs lead conversations. It is safe for concurrent use; events of
// one user are processed one at a time.
type Machine struct {
	catalog     *catalog.Catalog
	store       state.Store[Conversation]
	locks       *state.KeyedMutex
	submitter   Submitter
	texts       Texts
	mainMenu    *Keyboard
	phoneRegion string
	rec         Recorder
	steps       map[State]*step
}

// New validates opts and builds a Machine.
func New(opts Options) (*Machine, error) {
	if opts.Catalog == nil {
		return nil, errors.New("flow: catalog is required")
	}
	if opts.Store == nil {
		return nil, errors.New("flow: session store is required")
	}
	if opts.Submitter == nil {
		return nil, errors.New("flow: submitter is required")
	}
	if opts.Locks == nil {
		opts.Locks = state.NewKeyedMutex()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	menu := opts.MainMenu
	if len(menu) == 0 {
		menu = [][]string{{LabelStart}}
	}
	return &Machine{
		catalog:     opts.Catalog,
		store:       opts.Store,
		locks:       opts.Locks,
		submitter:   opts.Submitter,
		texts:       opts.Texts.withDefaults(),
		mainMenu:    &Keyboard{Reply: menu},
		phoneRegion: strings.ToUpper(strings.TrimSpace(opts.PhoneRegion)),
		rec:         opts.Recorder,
		steps:       newSteps(),
	}, nil
}

// Catalog returns the service catalog the machine was built with.
func (m *Machine) Catalog() *catalog.Catalog { return m.catalog }

// Active reports whether the user has a conversation in progress.
func (m *Machine) Active(ctx context.Context, userID int64) (bool, error) {
	_, ok, err := m.store.Load(ctx, userID)
	if errors.Is(err, state.ErrInvalidSession) {
		return true, nil
	}
	return ok, err
}

// State returns the user's current state, or "" when idle.
func (m *Machine) State(ctx context.Context, userID int64) (State, error) {
	conv, ok, err := m.store.Load(ctx, userID)
	if err != nil || !ok {
		return "", err
	}
	return conv.State, nil
}

// turn is the working set of one Handle call.
type turn struct {
	ctx     context.Context
	ev      Event
	conv    Conversation
	active  bool
	invalid bool // the stored session could not be decoded
	out     Outcome
	err     error
}

// Handle applies one event to the user's conversation and returns the
// replies to show. A non-nil error reports a collaborator failure; the
// outcome is still meant to be shown.
func (m *Machine) Handle(ctx context.Context, ev Event) (Outcome, error) {
	unlock := m.locks.Lock(ev.User.ID)
	defer unlock()

	conv, loaded, err := m.store.Load(ctx, ev.User.ID)
	invalid := errors.Is(err, state.ErrInvalidSession)
	if err != nil {
		if !errors.Is(err, state.ErrInvalidSession) {
			return Outcome{}, fmt.Errorf("load conversation: %w", err)
		}
		logger.Warn(ctx, "flow", "session.invalid",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		conv, loaded = Conversation{}, true
	}
	from := State("")
	if loaded {
		from = conv.State
	}

	t := &turn{ctx: ctx, ev: ev, conv: conv, active: loaded && conv.State != "", invalid: invalid}
	m.dispatch(t)

	if perr := m.persist(t, loaded); perr != nil {
		logger.Error(ctx, "flow", "session.save",
			slog.String("status", "fail"),
			slog.String("err", perr.Error()),
		)
		if t.out.Receipt != nil {
			// Lead already stored: keep the success replies.
			if derr := m.store.Delete(ctx, ev.User.ID); derr != nil {
				logger.Warn(ctx, "flow", "session.clear",
					slog.String("status", "fail"),
					slog.String("err", derr.Error()),
				)
			}
			t.out.State = ""
			return t.out, t.err
		}
		return Outcome{
			Handled: true,
			State:   from,
			Replies: []Reply{{Text: "⚠️ Something went wrong. Please try again."}},
		}, perr
	}

	to := State("")
	if t.active {
		to = t.conv.State
	}
	t.out.State = to
	if from != to {
		logger.Debug(logger.WithState(ctx, string(to)), "flow", "flow.transition",
			slog.String("from", string(from)),
			slog.String("to", string(to)),
			slog.String("branch", string(t.conv.Draft.Branch)),
			slog.String("kind", ev.Kind.String()),
		)
		m.rec.Transition(string(from), string(to))
	}
	return t.out, t.err
}

func (m *Machine) persist(t *turn, loaded bool) error {
	if t.active {
		return m.store.Save(t.ctx, t.ev.User.ID, t.conv)
	}
	if loaded {
		return m.store.Delete(t.ctx, t.ev.User.ID)
	}
	return nil
}

func (m *Machine) dispatch(t *turn) {
	t.out.Handled = true
	switch t.ev.Kind {
	case EventStart:
		m.start(t, strings.TrimSpace(t.ev.ServiceID))
		return
	case EventButton:
		if m.global(t) {
			return
		}
	}

	if !t.active {
		if t.ev.Kind == EventButton {
			t.out.Notice = NoticeStaleButton
			return
		}
		if t.invalid {
			t.out.say(textExpired, m.mainMenu)
			return
		}
		t.out.Handled = false
		return
	}

	st, ok := m.steps[t.conv.State]
	if !ok {
		logger.Warn(t.ctx, "flow", "state.unknown",
			slog.String("status", "fail"),
			slog.String("state", string(t.conv.State)),
		)
		m.reset(t)
		t.out.say(textExpired, m.mainMenu)
		return
	}

	switch t.ev.Kind {
	case EventText:
		if st.text != nil {
			st.text(m, t, t.ev.Text)
			return
		}
		m.reprompt(t, st)
	case EventMedia:
		if st.media != nil && t.ev.Media != nil {
			st.media(m, t, *t.ev.Media)
			return
		}
		m.reprompt(t, st)
	case EventButton:
		if fn, arg, ok := st.button(t.ev.Payload); ok {
			fn(m, t, arg)
			return
		}
		t.out.Notice = NoticeStaleButton
	}
}

// global handles payloads valid in every state.
func (m *Machine) global(t *turn) bool {
	switch strings.TrimSpace(t.ev.Payload) {
	case "lead:start":
		m.start(t, "")
	case "lead:cancel":
		m.cancel(t)
	case "lead:back_to_menu":
		m.toMenu(t, TextMainMenu)
	case "lead:back_to_services":
		t.conv = Conversation{}
		m.enter(t, StateChoosingService)
	case "lead:back", "neuro:back":
		m.back(t)
	default:
		return false
	}
	return true
}

func (m *Machine) start(t *turn, serviceID string) {
	t.conv = Conversation{}
	if serviceID != "" {
		if e, ok := m.catalog.Entry(serviceID); ok {
			m.selectService(t, e)
			return
		}
		logger.Warn(t.ctx, "flow", "start.unknown_service",
			slog.String("status", "skip"),
			slog.String("service_id", logger.SanitizeLimit(serviceID, 64)),
		)
	}
	m.enter(t, StateChoosingService)
}

func (m *Machine) selectService(t *turn, e catalog.Entry) {
	t.conv.Draft = lead.NewDraft(e)
	m.enter(t, firstStep(e.Branch))
}

func (m *Machine) cancel(t *turn) {
	if !t.active {
		m.toMenu(t, "You are in the menu.")
		return
	}
	m.rec.Cancelled(string(t.conv.State))
	m.toMenu(t, "OK, cancelled. Back to the menu 👇")
}

func (m *Machine) back(t *turn) {
	if !t.active {
		m.toMenu(t, "You are in the menu.")
		return
	}
	switch t.conv.State {
	case StateChoosingService:
		m.toMenu(t, TextMainMenu)
		return
	case StateSubmitting:
		t.out.Notice = noticeSubmitting
		return
	}
	st, ok := m.steps[t.conv.State]
	if !ok || st.back == nil {
		m.enter(t, StateChoosingService)
		return
	}
	m.enter(t, st.back(t.conv))
}

// enter moves to s and renders its prompt.
func (m *Machine) enter(t *turn, s State) {
	t.conv.State = s
	t.active = true
	if st, ok := m.steps[s]; ok && st.prompt != nil {
		st.prompt(m, t)
	}
}

// reset drops the conversation; the user becomes idle.
func (m *Machine) reset(t *turn) {
	t.conv = Conversation{}
	t.active = false
}

func (m *Machine) toMenu(t *turn, text string) {
	m.reset(t)
	t.out.say(text, m.mainMenu)
}

func (m *Machine) reprompt(t *turn, st *step) {
	var kb *Keyboard
	if st.keyboard != nil {
		kb = st.keyboard(m, t)
	}
	t.out.say(st.hint, kb)
}

// broken handles a draft that does not fit the current step.
func (m *Machine) broken(t *turn, err error) {
	logger.Warn(t.ctx, "flow", "draft.inconsistent",
		slog.String("status", "fail"),
		slog.String("state", string(t.conv.State)),
		slog.String("err", err.Error()),
	)
	m.toMenu(t, "The request data is inconsistent. Please start over.")
}

func (m *Machine) submit(t *turn) {
	start := time.Now()
	t.conv.State = StateSubmitting
	if err := m.store.Save(t.ctx, t.ev.User.ID, t.conv); err != nil {
		t.err = fmt.Errorf("save submitting state: %w", err)
		t.conv.State = StateConfirm
		t.out.say(textSendFailed, confirmKeyboard())
		return
	}

	rc, err := m.submitter.Submit(t.ctx, t.conv.Draft, t.ev.User.identity())
	var inc *lead.IncompleteError
	switch {
	case err == nil:
		m.rec.Submitted(string(t.conv.Draft.Branch), time.Since(start))
		m.reset(t)
		t.out.Receipt = &rc
		t.out.say(m.texts.Success+"\nRequest number: "+shortRef(rc.Ref), nil)
		t.out.say(TextMainMenu, m.mainMenu)
	case errors.As(err, &inc):
		m.rec.SubmitFailed("incomplete_" + inc.Field)
		t.out.Alert = true
		switch inc.Field {
		case lead.FieldFile:
			t.out.Notice = "A 3D model needs an image file."
			m.enter(t, StateModelWaitFile)
		case lead.FieldDescription:
			t.out.Notice = "Please describe the 3D model."
			m.enter(t, StateModelDescription)
		default:
			t.out.Notice = "The request is incomplete. Please start over."
			m.toMenu(t, "OK, cancelled. Back to the menu 👇")
		}
	default:
		m.rec.SubmitFailed("storage")
		t.err = err
		t.conv.State = StateConfirm
		t.out.say(textSendFailed, confirmKeyboard())
	}
}

func shortRef(ref string) string {
	if len(ref) > shortRefLength {
		return ref[:shortRefLength]
	}
	if ref == "" {
		return "—"
	}
	return ref
}
