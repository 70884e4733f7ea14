package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// Enqueue runs fn on the shared dispatcher, or inline when none is wired or
// the queue cannot take it. ctx is detached from cancellation so queued
// jobs survive the update that produced them.
func Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}
	if err := disp.Enqueue(context.WithoutCancel(ctx), action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("status", "retry"),
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	return Enqueue(BuildContext(c), action, endpoint, run)
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// HTMLOptions returns send options for HTML parse mode with optional markup.
func HTMLOptions(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup, DisableWebPagePreview: true}
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, HTMLOptions(rm))
}

// EditOrSendHTML tries to edit the callback message (HTML) or sends a new one if edit fails.
func EditOrSendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return sendAsync(c, "send.edit", "editMessageText", func() error {
		return c.EditOrSend(text, HTMLOptions(rm))
	})
}

// SendAlbum sends a media group to the current recipient.
func SendAlbum(c tele.Context, album tele.Album) error {
	if len(album) == 0 {
		return nil
	}
	return sendAsync(c, "send.album", "sendMediaGroup", func() error {
		return c.SendAlbum(album)
	})
}

// SendSequence delivers steps in order as a single dispatcher job, so that
// messages of one reply are never reordered across workers. A retried job
// resumes from the step that failed.
func SendSequence(c tele.Context, action string, steps ...func() error) error {
	if len(steps) == 0 {
		return nil
	}
	next := 0
	return sendAsync(c, action, "sendMessage", func() error {
		for next < len(steps) {
			if err := steps[next](); err != nil {
				return err
			}
			next++
		}
		return nil
	})
}
