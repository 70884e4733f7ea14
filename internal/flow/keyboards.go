package flow

import (
	"strconv"

	"github.com/m3rciful/leadbot/internal/catalog"
)

var (
	backCancelRow = []Button{
		{Text: LabelBack, Payload: "lead:back"},
		{Text: LabelCancel, Payload: "lead:cancel"},
	}
	backCancelReply = &Keyboard{Reply: [][]string{{LabelBack, LabelCancel}}}
	removeKeyboard  = &Keyboard{Remove: true}
)

func inline(rows ...[]Button) *Keyboard {
	return &Keyboard{Inline: rows}
}

func servicesKeyboard(c *catalog.Catalog) *Keyboard {
	rows := make([][]Button, 0, c.Len()+1)
	for i, title := range c.Titles() {
		rows = append(rows, []Button{{Text: title, Payload: "svc:" + strconv.Itoa(i+1)}})
	}
	rows = append(rows, []Button{
		{Text: LabelBack, Payload: "lead:back_to_menu"},
		{Text: LabelCancel, Payload: "lead:cancel"},
	})
	return inline(rows...)
}

func neuroKeyboard(next string) *Keyboard {
	return inline(
		[]Button{{Text: "▶️ Next", Payload: next}},
		[]Button{{Text: LabelBack, Payload: "neuro:back"}, {Text: LabelCancel, Payload: "lead:cancel"}},
	)
}

func restorationTypeKeyboard() *Keyboard {
	return inline(
		[]Button{{Text: "🖼 Photo", Payload: "rest:photo"}, {Text: "🎬 Video", Payload: "rest:video"}},
		backCancelRow,
	)
}

func filesKeyboard() *Keyboard {
	return inline([]Button{{Text: "✅ Done", Payload: "files:done"}}, backCancelRow)
}

func model3DIntroKeyboard() *Keyboard {
	return inline(
		[]Button{{Text: "▶️ Next", Payload: "model3d:next"}},
		[]Button{{Text: LabelBack, Payload: "lead:back_to_services"}, {Text: LabelCancel, Payload: "lead:cancel"}},
	)
}

func deadlineKeyboard() *Keyboard {
	return inline(
		[]Button{{Text: "🔥 Urgent", Payload: "deadline:urgent"}},
		[]Button{{Text: "📅 Within a week", Payload: "deadline:week"}},
		[]Button{{Text: "⏳ Not urgent", Payload: "deadline:not_urgent"}},
		[]Button{{Text: "✍️ Custom", Payload: "deadline:custom"}},
		backCancelRow,
	)
}

func contactChoiceKeyboard() *Keyboard {
	return &Keyboard{Reply: [][]string{
		{LabelUseHandle},
		{LabelEnterPhone, LabelOtherContact},
		{LabelSkipContact},
		{LabelBack, LabelCancel},
	}}
}

func confirmKeyboard() *Keyboard {
	return inline(
		[]Button{{Text: "✅ Send", Payload: "lead:send"}, {Text: "✏️ Edit", Payload: "lead:edit"}},
		backCancelRow,
	)
}

// LabelPayloads maps reply keyboard labels to the payloads they stand for.
// LabelStart is not included; it starts a lead as EventStart.
func LabelPayloads() map[string]string {
	return map[string]string{
		LabelBack:         "lead:back",
		LabelCancel:       "lead:cancel",
		LabelUseHandle:    "contact:handle",
		LabelEnterPhone:   "contact:phone",
		LabelOtherContact: "contact:other",
		LabelSkipContact:  "contact:skip",
	}
}
