package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	user  *tele.User
	store map[string]any
}

func newStub(userID int64) *stubContext {
	return &stubContext{user: &tele.User{ID: userID}, store: map[string]any{}}
}

func (s *stubContext) Sender() *tele.User   { return s.user }
func (s *stubContext) Chat() *tele.Chat     { return &tele.Chat{ID: s.user.ID} }
func (s *stubContext) Update() tele.Update  { return tele.Update{ID: 1} }
func (s *stubContext) Get(k string) any     { return s.store[k] }
func (s *stubContext) Set(k string, v any)  { s.store[k] = v }
func (s *stubContext) Send(any, ...any) error { return nil }

func TestLimiterPrunesAndBlocks(t *testing.T) {
	l := &limiter{interval: time.Second, lastSeen: map[int64]time.Time{}}
	now := time.Unix(1_700_000_000, 0)
	assert.True(t, l.allow(1, now))
	assert.False(t, l.allow(1, now.Add(500*time.Millisecond)))
	assert.True(t, l.allow(2, now.Add(500*time.Millisecond)))
	assert.True(t, l.allow(1, now.Add(2*time.Second)))
	assert.NotContains(t, l.lastSeen, int64(2))
}

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 42, OnReject: func(tele.Context) error {
		rejected++
		return nil
	}})
	called := 0
	h := mw(func(tele.Context) error { called++; return nil })

	require.NoError(t, h(newStub(7)))
	require.NoError(t, h(newStub(42)))
	assert.Equal(t, 1, called)
	assert.Equal(t, 1, rejected)

	assert.False(t, AdminOptions{}.IsAdmin(newStub(42)))
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newStub(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	want := errors.New("plain")
	assert.ErrorIs(t, RecoverMiddleware(func(tele.Context) error { return want })(newStub(1)), want)
}

func TestMessageMetricsCountsSends(t *testing.T) {
	var msgs int
	var kb bool
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("a")
		_ = c.Send("b", &tele.ReplyMarkup{RemoveKeyboard: true})
		msgs, kb = GetCounters(c)
		return nil
	})
	require.NoError(t, h(newStub(1)))
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}
