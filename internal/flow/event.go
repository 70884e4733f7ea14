package flow

import "github.com/m3rciful/leadbot/internal/lead"

// EventKind classifies an incoming update.
type EventKind int

const (
	// EventStart begins a new lead, optionally with ServiceID pre-selected.
	EventStart EventKind = iota
	// EventText is a free-text message.
	EventText
	// EventMedia is a photo, video or document.
	EventMedia
	// EventButton carries a colon-delimited payload such as "deadline:week".
	EventButton
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventText:
		return "text"
	case EventMedia:
		return "media"
	case EventButton:
		return "button"
	}
	return "unknown"
}

// MediaKind is the Telegram message type of an attachment.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// Media describes an attachment. MIME is set for documents only.
type Media struct {
	Kind    MediaKind
	FileID  string
	MIME    string
	Caption string
}

// User is the sender of an event.
type User struct {
	ID       int64
	Username string
	FullName string
}

func (u User) identity() lead.Identity {
	return lead.Identity{UserID: u.ID, Username: u.Username, FullName: u.FullName}
}

// Event is one input to the machine.
type Event struct {
	Kind      EventKind
	User      User
	Text      string
	Payload   string
	Media     *Media
	ServiceID string
}

// Button is an inline keyboard button with a raw callback payload.
type Button struct {
	Text    string
	Payload string
}

// Keyboard is either an inline keyboard, a reply keyboard, or a request to
// remove the reply keyboard.
type Keyboard struct {
	Inline [][]Button
	Reply  [][]string
	Remove bool
}

// Reply is one outbound message. Album holds photo file ids sent as a media
// group; Text is ignored for albums.
type Reply struct {
	Text     string
	HTML     bool
	Keyboard *Keyboard
	Album    []string
}

// Outcome is what the machine wants shown for an event.
//
// Notice is a transient message: a toast for button presses, a plain reply
// otherwise. Handled is false when the event does not concern the lead flow.
type Outcome struct {
	Replies []Reply
	Notice  string
	Alert   bool
	Handled bool
	State   State
	Receipt *lead.Receipt
}

func (o *Outcome) say(text string, kb *Keyboard) {
	o.Replies = append(o.Replies, Reply{Text: text, Keyboard: kb})
}

func (o *Outcome) sayHTML(text string, kb *Keyboard) {
	o.Replies = append(o.Replies, Reply{Text: text, HTML: true, Keyboard: kb})
}
