package flow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/leadbot/internal/deadline"
	"github.com/m3rciful/leadbot/internal/lead"
)

type (
	textFunc   func(m *Machine, t *turn, text string)
	mediaFunc  func(m *Machine, t *turn, media Media)
	buttonFunc func(m *Machine, t *turn, arg string)
)

// step declares how one state prompts, which inputs it accepts and where
// back leads. Inputs without a handler get hint and keyboard again.
type step struct {
	prompt   func(m *Machine, t *turn)
	hint     string
	keyboard func(m *Machine, t *turn) *Keyboard
	text     textFunc
	media    mediaFunc
	// buttons is keyed by "namespace:action" or by bare namespace; a
	// namespace match receives the rest of the payload as arg.
	buttons map[string]buttonFunc
	back    func(c Conversation) State
}

func (s *step) button(payload string) (buttonFunc, string, bool) {
	payload = strings.TrimSpace(payload)
	if fn, ok := s.buttons[payload]; ok {
		return fn, "", true
	}
	ns, arg, found := strings.Cut(payload, ":")
	if !found {
		return nil, "", false
	}
	if fn, ok := s.buttons[ns]; ok {
		return fn, arg, true
	}
	return nil, "", false
}

func to(s State) func(Conversation) State {
	return func(Conversation) State { return s }
}

func goTo(s State) buttonFunc {
	return func(m *Machine, t *turn, _ string) { m.enter(t, s) }
}

func say(text string, kb func(m *Machine, t *turn) *Keyboard) func(m *Machine, t *turn) {
	return func(m *Machine, t *turn) { t.out.say(text, kb(m, t)) }
}

func static(kb *Keyboard) func(*Machine, *turn) *Keyboard {
	return func(*Machine, *turn) *Keyboard { return kb }
}

func fixed(build func() *Keyboard) func(*Machine, *turn) *Keyboard {
	return func(*Machine, *turn) *Keyboard { return build() }
}

// taskInput stores a non-empty free-text answer and moves to next.
func taskInput(next State, empty string) textFunc {
	return func(m *Machine, t *turn, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			t.out.say(empty, backCancelReply)
			return
		}
		if err := t.conv.Draft.SetTask(text); err != nil {
			m.broken(t, err)
			return
		}
		m.enter(t, next)
	}
}

const (
	hintText   = "Please reply with text (not empty)."
	hintNext   = "Press “▶️ Next” to continue."
	promptTask = "Describe the task in one message (what needs to be done):"
	emptyTask  = "Please write the task as text (not empty)."
)

func newSteps() map[State]*step {
	services := func(m *Machine, _ *turn) *Keyboard { return servicesKeyboard(m.catalog) }

	return map[State]*step{
		StateChoosingService: {
			prompt:   say(TextChooseService, services),
			hint:     TextChooseService,
			keyboard: services,
			text: func(m *Machine, t *turn, text string) {
				pickService(m, t, text)
			},
			buttons: map[string]buttonFunc{
				"svc": pickService,
			},
		},

		StateNeuroStep1: {
			prompt: func(m *Machine, t *turn) {
				t.out.say(m.texts.NeuroStep1, neuroKeyboard("neuro:step1_done"))
				examples := m.texts.NeuroExamples
				if len(examples) == 0 {
					t.out.say("⚠️ Example photos are not configured yet.", nil)
					return
				}
				if len(examples) > maxNeuroExamples {
					examples = examples[:maxNeuroExamples]
				}
				t.out.Replies = append(t.out.Replies, Reply{Album: append([]string(nil), examples...)})
			},
			hint:     hintNext,
			keyboard: fixed(func() *Keyboard { return neuroKeyboard("neuro:step1_done") }),
			buttons:  map[string]buttonFunc{"neuro:step1_done": goTo(StateNeuroStep2)},
			back:     to(StateChoosingService),
		},
		StateNeuroStep2: {
			prompt: func(m *Machine, t *turn) {
				t.out.say(m.texts.NeuroStep2, neuroKeyboard("neuro:step2_done"))
			},
			hint:     hintNext,
			keyboard: fixed(func() *Keyboard { return neuroKeyboard("neuro:step2_done") }),
			buttons:  map[string]buttonFunc{"neuro:step2_done": goTo(StateNeuroWishes)},
			back:     to(StateNeuroStep1),
		},
		StateNeuroWishes: {
			prompt: func(m *Machine, t *turn) {
				t.out.say(m.texts.NeuroWishes, backCancelReply)
			},
			hint:     hintText,
			keyboard: static(backCancelReply),
			text:     taskInput(StateDeadline, "Please write your wishes as text (not empty)."),
			back:     to(StateNeuroStep2),
		},

		StateRestType: {
			prompt:   say("What are we restoring?", fixed(restorationTypeKeyboard)),
			hint:     "Choose Photo or Video.",
			keyboard: fixed(restorationTypeKeyboard),
			buttons: map[string]buttonFunc{
				"rest:photo": restorationType(lead.RestorePhoto),
				"rest:video": restorationType(lead.RestoreVideo),
			},
			back: to(StateChoosingService),
		},
		StateRestTask: {
			prompt:   say(promptTask, static(backCancelReply)),
			hint:     hintText,
			keyboard: static(backCancelReply),
			text:     taskInput(StateRestFiles, emptyTask),
			back:     to(StateRestType),
		},
		StateRestFiles: {
			prompt: say(fmt.Sprintf("Attach files (photos/videos/documents).\n"+
				"Up to %d files. When you are done, press “✅ Done”.", lead.MaxFiles), fixed(filesKeyboard)),
			hint: "At this step, attach photos/videos/documents.\n" +
				"When you are done, press “✅ Done”.",
			keyboard: fixed(filesKeyboard),
			media:    collectFile,
			buttons: map[string]buttonFunc{
				"files:done": func(m *Machine, t *turn, _ string) {
					if len(t.conv.Draft.Files()) == 0 {
						t.out.say("⚠️ No files attached. Continuing without files.", nil)
					}
					m.enter(t, StateDeadline)
				},
			},
			back: to(StateRestTask),
		},

		StateModelIntro: {
			prompt: func(m *Machine, t *turn) {
				t.out.say(m.texts.Model3DIntro, model3DIntroKeyboard())
			},
			hint:     hintNext,
			keyboard: fixed(model3DIntroKeyboard),
			buttons:  map[string]buttonFunc{"model3d:next": goTo(StateModelWaitFile)},
			back:     to(StateChoosingService),
		},
		StateModelWaitFile: {
			prompt: say("Send an image (a photo or an image document).\n"+
				"You can add the description as a caption.", static(backCancelReply)),
			hint:     "Please send an image (a photo or an image document).",
			keyboard: static(backCancelReply),
			media:    modelFile,
			back:     to(StateModelIntro),
		},
		StateModelDescription: {
			prompt:   say("Describe what the 3D model should look like:", static(backCancelReply)),
			hint:     hintText,
			keyboard: static(backCancelReply),
			text:     taskInput(StateDeadline, "Please write the description as text (not empty)."),
			back:     to(StateModelWaitFile),
		},

		StateContentTask: {
			prompt: func(m *Machine, t *turn) {
				t.out.say(m.texts.ContentTask, backCancelReply)
			},
			hint:     hintText,
			keyboard: static(backCancelReply),
			text:     taskInput(StateDeadline, emptyTask),
			back:     to(StateChoosingService),
		},
		StateVideoTask: {
			prompt: func(m *Machine, t *turn) {
				t.out.say(m.texts.VideoTask, backCancelReply)
			},
			hint:     hintText,
			keyboard: static(backCancelReply),
			text:     taskInput(StateDeadline, emptyTask),
			back:     to(StateChoosingService),
		},
		StateTask: {
			prompt:   say(promptTask, static(backCancelReply)),
			hint:     hintText,
			keyboard: static(backCancelReply),
			text:     taskInput(StateDeadline, emptyTask),
			back:     to(StateChoosingService),
		},

		StateDeadline: {
			prompt:   say("Choose the urgency:", fixed(deadlineKeyboard)),
			hint:     "Choose the urgency with the buttons above.",
			keyboard: fixed(deadlineKeyboard),
			buttons: map[string]buttonFunc{
				"deadline": pickDeadline,
				"dl":       pickDeadline,
			},
			back: func(c Conversation) State { return lastInputStep(c.Draft) },
		},
		StateDeadlineCustom: {
			prompt: say("Write your deadline (for example “by Friday” or “before January 10”):",
				static(backCancelReply)),
			hint:     hintText,
			keyboard: static(backCancelReply),
			text: func(m *Machine, t *turn, text string) {
				text = strings.TrimSpace(text)
				if text == "" {
					t.out.say("Please write the deadline as text (not empty).", backCancelReply)
					return
				}
				t.conv.Draft.Deadline = lead.Deadline{Key: deadline.Custom, CustomText: text}
				m.enter(t, StateContactChoice)
			},
			back: to(StateDeadline),
		},

		StateContactChoice: {
			prompt:   say("How would you like to be contacted?", fixed(contactChoiceKeyboard)),
			hint:     "Please choose one of the options below.",
			keyboard: fixed(contactChoiceKeyboard),
			buttons: map[string]buttonFunc{
				"contact:handle": useHandle,
				"contact:phone":  goTo(StateContactPhone),
				"contact:other":  goTo(StateContactOther),
				"contact:skip": func(m *Machine, t *turn, _ string) {
					t.conv.Draft.Contact = deadline.Placeholder
					m.enter(t, StateConfirm)
				},
			},
			back: to(StateDeadline),
		},
		StateContactPhone: {
			prompt:   say("Enter your phone number (at least 6 characters):", static(backCancelReply)),
			hint:     hintText,
			keyboard: static(backCancelReply),
			text: func(m *Machine, t *turn, text string) {
				if !longEnough(text, minPhoneLength) {
					t.out.say("Too short. Enter the number (at least 6 characters):", backCancelReply)
					return
				}
				t.conv.Draft.Contact = normalizePhone(text, m.phoneRegion)
				m.enter(t, StateConfirm)
			},
			back: to(StateContactChoice),
		},
		StateContactOther: {
			prompt:   say("Enter a contact (phone, @username or link):", static(backCancelReply)),
			hint:     hintText,
			keyboard: static(backCancelReply),
			text: func(m *Machine, t *turn, text string) {
				if !validContact(text) {
					t.out.say("The contact is too short. Write at least 3 characters.", backCancelReply)
					return
				}
				t.conv.Draft.Contact = strings.TrimSpace(text)
				m.enter(t, StateConfirm)
			},
			back: to(StateContactChoice),
		},

		StateConfirm: {
			prompt: func(m *Machine, t *turn) {
				t.out.say("Almost done 👇", removeKeyboard)
				t.out.sayHTML(summary(t.conv.Draft), confirmKeyboard())
			},
			hint:     "Check the request and press “✅ Send”.",
			keyboard: fixed(confirmKeyboard),
			buttons: map[string]buttonFunc{
				"lead:send": func(m *Machine, t *turn, _ string) { m.submit(t) },
				"lead:edit": func(m *Machine, t *turn, _ string) {
					t.conv = Conversation{State: StateChoosingService}
					t.out.say(textRestartService, servicesKeyboard(m.catalog))
				},
			},
			back: to(StateContactChoice),
		},
		StateSubmitting: {
			hint: noticeSubmitting,
			buttons: map[string]buttonFunc{
				"lead:send": func(_ *Machine, t *turn, _ string) { t.out.Notice = noticeSubmitting },
			},
		},
	}
}

func pickService(m *Machine, t *turn, arg string) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		t.out.Notice = NoticeInvalidPick
		return
	}
	e, ok := m.catalog.ByIndex(n)
	if !ok {
		t.out.Notice = NoticeInvalidPick
		return
	}
	m.selectService(t, e)
}

func restorationType(rt lead.RestorationType) buttonFunc {
	return func(m *Machine, t *turn, _ string) {
		if err := t.conv.Draft.SetRestorationType(rt); err != nil {
			m.broken(t, err)
			return
		}
		m.enter(t, StateRestTask)
	}
}

func collectFile(m *Machine, t *turn, media Media) {
	ft, ok := restorationFileType(media.Kind)
	if !ok || media.FileID == "" {
		t.out.say("Please send a photo, a video or a document.", filesKeyboard())
		return
	}
	err := t.conv.Draft.AddFile(lead.File{Type: ft, ID: media.FileID})
	switch {
	case errors.Is(err, lead.ErrTooManyFiles):
		t.out.say(fmt.Sprintf("The limit of %d files is reached.\n"+
			"Press “✅ Done” to continue.", lead.MaxFiles), filesKeyboard())
	case err != nil:
		m.broken(t, err)
	default:
		t.out.say(fmt.Sprintf("Received: %s. Files: %d/%d\n"+
			"You can attach more or press “✅ Done”.", ft, len(t.conv.Draft.Files()), lead.MaxFiles), filesKeyboard())
	}
}

func restorationFileType(k MediaKind) (lead.FileType, bool) {
	switch k {
	case MediaPhoto:
		return lead.FilePhoto, true
	case MediaVideo:
		return lead.FileVideo, true
	case MediaDocument:
		return lead.FileDocument, true
	}
	return "", false
}

func modelFile(m *Machine, t *turn, media Media) {
	var ft lead.FileType
	switch {
	case media.Kind == MediaPhoto:
		ft = lead.FilePhoto
	case media.Kind == MediaDocument && isImageMIME(media.MIME):
		ft = lead.FileDocumentImage
	default:
		m.reprompt(t, m.steps[StateModelWaitFile])
		return
	}
	if media.FileID == "" {
		m.reprompt(t, m.steps[StateModelWaitFile])
		return
	}
	if err := t.conv.Draft.SetModelFile(lead.File{Type: ft, ID: media.FileID}, media.Caption); err != nil {
		m.broken(t, err)
		return
	}
	if t.conv.Draft.Model3D.FromCaption {
		m.enter(t, StateDeadline)
		return
	}
	m.enter(t, StateModelDescription)
}

// isImageMIME accepts image/* and documents Telegram sent without a type.
func isImageMIME(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return mime == "" || strings.HasPrefix(mime, "image/")
}

func pickDeadline(m *Machine, t *turn, arg string) {
	key := deadline.Strip(arg)
	switch {
	case key == deadline.Custom:
		m.enter(t, StateDeadlineCustom)
	case deadline.Valid(key):
		t.conv.Draft.Deadline = lead.Deadline{Key: key}
		m.enter(t, StateContactChoice)
	default:
		t.out.Notice = NoticeInvalidPick
	}
}

func useHandle(m *Machine, t *turn, _ string) {
	handle := strings.TrimPrefix(strings.TrimSpace(t.ev.User.Username), "@")
	if handle == "" {
		t.out.say("You don't have a Telegram @username.\n"+
			"Choose another option (phone or other contact).", contactChoiceKeyboard())
		return
	}
	t.conv.Draft.Contact = "@" + handle
	m.enter(t, StateConfirm)
}
