package notify

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/telegram/helpers"
)

// ErrNoAdmin is returned when no admin chat is configured.
var ErrNoAdmin = errors.New("notify: admin chat id is not set")

// Sender is the part of the bot API the Telegram notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram messages the admin chat through the shared outbound dispatcher.
type Telegram struct {
	bot    Sender
	chatID int64
}

// NewTelegram returns a notifier that writes to chatID.
func NewTelegram(bot Sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID}
}

// Notify queues the message. Delivery errors after queueing are logged by
// the dispatcher.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if t.chatID == 0 {
		return ErrNoAdmin
	}
	return helpers.Enqueue(ctx, "notify.admin", "sendMessage", func() error {
		_, err := t.bot.Send(tele.ChatID(t.chatID), text, &tele.SendOptions{DisableWebPagePreview: true})
		return err
	})
}
