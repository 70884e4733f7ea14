package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeSender struct {
	to   []string
	text []string
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.to = append(f.to, to.Recipient())
	f.text = append(f.text, what.(string))
	return &tele.Message{}, f.err
}

type notifierFunc func(ctx context.Context, text string) error

func (f notifierFunc) Notify(ctx context.Context, text string) error { return f(ctx, text) }

func TestTelegramNotify(t *testing.T) {
	s := &fakeSender{}
	require.NoError(t, NewTelegram(s, 777).Notify(context.Background(), "🆕 New request"))
	assert.Equal(t, []string{"777"}, s.to)
	assert.Equal(t, []string{"🆕 New request"}, s.text)

	assert.ErrorIs(t, NewTelegram(s, 0).Notify(context.Background(), "x"), ErrNoAdmin)
}

func TestMultiAttemptsEveryNotifier(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	m := Multi{
		notifierFunc(func(_ context.Context, text string) error {
			calls = append(calls, "first:"+text)
			return boom
		}),
		nil,
		notifierFunc(func(_ context.Context, text string) error {
			calls = append(calls, "second:"+text)
			return nil
		}),
	}
	err := m.Notify(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:hi", "second:hi"}, calls)

	assert.NoError(t, Multi{}.Notify(context.Background(), "hi"))
}

func TestSMTPConfigNormalize(t *testing.T) {
	off := SMTPConfig{}
	require.NoError(t, off.Normalize())
	assert.False(t, off.Enabled())

	cfg := SMTPConfig{Host: "smtp.example.com", From: "bot@example.com", To: []string{" ", "owner@example.com"}}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, 587, cfg.Port)
	assert.Equal(t, []string{"owner@example.com"}, cfg.To)
	assert.Equal(t, "New lead request", cfg.Subject)

	assert.Error(t, (&SMTPConfig{Host: "h", To: []string{"a@b.c"}}).Normalize())
	assert.Error(t, (&SMTPConfig{Host: "h", From: "a@b.c"}).Normalize())

	_, err := NewEmail(SMTPConfig{})
	assert.Error(t, err)
}

func TestEmailMessage(t *testing.T) {
	e, err := NewEmail(SMTPConfig{Host: "smtp.example.com", From: "bot@example.com", To: []string{"owner@example.com"}})
	require.NoError(t, err)

	msg, err := e.message("Service: Content\nDeadline: Urgent")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Subject: New lead request")
	assert.Contains(t, out, "owner@example.com")
	assert.Contains(t, out, "Service: Content")
}
