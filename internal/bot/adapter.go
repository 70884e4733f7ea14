// Package bot wires the lead conversation into Telegram: it turns updates
// into flow events, renders flow replies as messages and keyboards, and
// serves the menu pages around the conversation.
package bot

import (
	"context"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/callbacks"
	"github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/internal/flow"
)

// flowNamespaces are the callback namespaces owned by the conversation.
var flowNamespaces = []string{"lead", "svc", "rest", "files", "deadline", "dl", "neuro", "model3d"}

// Conversation adapts a flow.Machine to telebot handlers.
type Conversation struct {
	machine *flow.Machine
	labels  map[string]string
}

// NewConversation wraps m.
func NewConversation(m *flow.Machine) *Conversation {
	return &Conversation{machine: m, labels: flow.LabelPayloads()}
}

// Active reports whether the sender has a conversation in progress.
func (cv *Conversation) Active(c tele.Context) bool {
	user := c.Sender()
	if user == nil {
		return false
	}
	ctx := helpers.BuildContext(c)
	active, err := cv.machine.Active(ctx, user.ID)
	if err != nil {
		logger.Error(ctx, "flow", "session.load",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return false
	}
	return active
}

// Handle feeds a text or media message to the conversation.
func (cv *Conversation) Handle(c tele.Context) error {
	ev, ok := cv.messageEvent(c)
	if !ok {
		return nil
	}
	return cv.dispatch(c, ev)
}

// Callback feeds an inline button press to the conversation.
func (cv *Conversation) Callback(c tele.Context) error {
	return cv.dispatch(c, flow.Event{Kind: flow.EventButton, Payload: callbacks.CallbackData(c)})
}

// Label returns a handler that presses payload when a reply keyboard label
// is typed.
func (cv *Conversation) Label(payload string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return cv.dispatch(c, flow.Event{Kind: flow.EventButton, Payload: payload})
	}
}

// Start begins a new lead, optionally with a preselected service id.
func (cv *Conversation) Start(c tele.Context, serviceID string) error {
	return cv.dispatch(c, flow.Event{Kind: flow.EventStart, ServiceID: serviceID})
}

// Press dispatches a button payload on behalf of a command or page.
func (cv *Conversation) Press(c tele.Context, payload string) error {
	return cv.dispatch(c, flow.Event{Kind: flow.EventButton, Payload: payload})
}

func (cv *Conversation) dispatch(c tele.Context, ev flow.Event) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ev.User = flow.User{
		ID:       user.ID,
		Username: user.Username,
		FullName: strings.TrimSpace(user.FirstName + " " + user.LastName),
	}
	ctx := helpers.BuildContext(c)
	out, err := cv.machine.Handle(ctx, ev)
	if out.State != "" {
		ctx = helpers.WithState(c, string(out.State))
	}
	if out.Receipt != nil {
		logger.Info(ctx, "leads", "lead.accepted",
			slog.String("status", "ok"),
			slog.Int64("lead_id", out.Receipt.LeadID),
		)
	}
	if !out.Handled {
		return err
	}
	if rerr := render(c, out); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// messageEvent converts the current message into a flow event.
func (cv *Conversation) messageEvent(c tele.Context) (flow.Event, bool) {
	msg := c.Message()
	if msg == nil {
		return flow.Event{}, false
	}
	switch {
	case msg.Photo != nil:
		return mediaEvent(flow.MediaPhoto, msg.Photo.FileID, "", msg.Caption), true
	case msg.Video != nil:
		return mediaEvent(flow.MediaVideo, msg.Video.FileID, msg.Video.MIME, msg.Caption), true
	case msg.Document != nil:
		return mediaEvent(flow.MediaDocument, msg.Document.FileID, msg.Document.MIME, msg.Caption), true
	}
	text := c.Text()
	if payload, ok := cv.labels[strings.TrimSpace(text)]; ok {
		return flow.Event{Kind: flow.EventButton, Payload: payload}, true
	}
	return flow.Event{Kind: flow.EventText, Text: text}, true
}

func mediaEvent(kind flow.MediaKind, fileID, mime, caption string) flow.Event {
	return flow.Event{
		Kind:  flow.EventMedia,
		Media: &flow.Media{Kind: kind, FileID: fileID, MIME: mime, Caption: caption},
	}
}

// State returns the sender's conversation state for diagnostics.
func (cv *Conversation) State(ctx context.Context, userID int64) (flow.State, error) {
	return cv.machine.State(ctx, userID)
}
