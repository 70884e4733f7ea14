package bot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/telegram/helpers"
	"github.com/m3rciful/leadbot/core/telegram/keyboard"
	"github.com/m3rciful/leadbot/internal/flow"
)

// maxAlbum is the Telegram limit for one media group.
const maxAlbum = 10

// render delivers an outcome. Button presses get the notice as a toast;
// otherwise it is sent ahead of the replies in the same dispatcher job.
func render(c tele.Context, out flow.Outcome) error {
	steps := make([]func() error, 0, len(out.Replies)+1)
	if c.Callback() != nil {
		if err := helpers.Answer(c, out.Notice, out.Alert); err != nil {
			return err
		}
	} else if notice := out.Notice; notice != "" {
		steps = append(steps, func() error { return c.Send(notice) })
	}
	for _, r := range out.Replies {
		steps = append(steps, replyStep(c, r))
	}
	return helpers.SendSequence(c, "flow.reply", steps...)
}

func replyStep(c tele.Context, r flow.Reply) func() error {
	if len(r.Album) > 0 {
		album := photoAlbum(r.Album)
		return func() error {
			return c.SendAlbum(album)
		}
	}
	opts := &tele.SendOptions{ReplyMarkup: markup(r.Keyboard), DisableWebPagePreview: true}
	if r.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	text := r.Text
	return func() error {
		return c.Send(text, opts)
	}
}

func photoAlbum(ids []string) tele.Album {
	if len(ids) > maxAlbum {
		ids = ids[:maxAlbum]
	}
	album := make(tele.Album, 0, len(ids))
	for _, id := range ids {
		album = append(album, &tele.Photo{File: tele.File{FileID: id}})
	}
	return album
}

// markup converts a flow keyboard into telebot markup.
func markup(kb *flow.Keyboard) *tele.ReplyMarkup {
	switch {
	case kb == nil:
		return nil
	case kb.Remove:
		return keyboard.RemoveKeyboard()
	case len(kb.Inline) > 0:
		rows := make([][]keyboard.InlineBtn, 0, len(kb.Inline))
		for _, row := range kb.Inline {
			btns := make([]keyboard.InlineBtn, 0, len(row))
			for _, b := range row {
				btns = append(btns, keyboard.InlineBtn{Text: b.Text, Data: b.Payload})
			}
			rows = append(rows, btns)
		}
		return keyboard.InlineButtonsRows(rows...)
	case len(kb.Reply) > 0:
		return keyboard.ReplyButtons(kb.Reply...)
	}
	return nil
}
