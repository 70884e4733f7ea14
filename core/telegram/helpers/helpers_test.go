package helpers

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/sender"
)

// fakeContext implements the subset of tele.Context the helpers touch.
type fakeContext struct {
	tele.Context
	mu        sync.Mutex
	store     map[string]any
	cb        *tele.Callback
	responses []*tele.CallbackResponse
	sent      []string
}

func newFakeContext(cb *tele.Callback) *fakeContext {
	return &fakeContext{store: map[string]any{}, cb: cb}
}

func (f *fakeContext) Get(k string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.store[k]
}

func (f *fakeContext) Set(k string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[k] = v
}

func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 77} }
func (f *fakeContext) Sender() *tele.User       { return &tele.User{ID: 5} }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: 5} }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func (f *fakeContext) Send(what any, _ ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, what.(string))
	return nil
}

func TestBuildContextCarriesUpdateMeta(t *testing.T) {
	c := newFakeContext(nil)
	ctx := BuildContext(c)
	assert.Equal(t, logger.BuildRID(77, 5, 5), logger.RIDFrom(ctx))
	assert.Equal(t, int64(5), logger.UserIDFrom(ctx))

	ctx = WithState(c, "lead.deadline")
	assert.Equal(t, "lead.deadline", logger.StateFrom(ctx))
	cached, ok := ContextFrom(c)
	require.True(t, ok)
	assert.Equal(t, "lead.deadline", logger.StateFrom(cached))
}

func TestAnswerMarksCallback(t *testing.T) {
	c := newFakeContext(&tele.Callback{Data: "lead:back"})
	assert.False(t, Answered(c))
	require.NoError(t, Answer(c, "This button is no longer active.", false))
	assert.True(t, Answered(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, "This button is no longer active.", c.responses[0].Text)
}

func TestAnswerOutsideCallbackSendsText(t *testing.T) {
	c := newFakeContext(nil)
	require.NoError(t, Answer(c, "hello", false))
	assert.Equal(t, []string{"hello"}, c.sent)
	require.NoError(t, Answer(c, "", false))
	assert.Len(t, c.sent, 1)
}

func TestSendSequenceResumesFromFailedStep(t *testing.T) {
	d := sender.NewDispatcher(sender.Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	SetDispatcher(d)
	t.Cleanup(func() { SetDispatcher(nil) })

	var order []string
	failed := false
	c := newFakeContext(nil)
	require.NoError(t, SendSequence(c, "flow.reply",
		func() error { order = append(order, "first"); return nil },
		func() error {
			if !failed {
				failed = true
				return &net.OpError{Op: "dial", Err: errors.New("refused")}
			}
			order = append(order, "second")
			return nil
		},
		func() error { order = append(order, "third"); return nil },
	))
	d.Close()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}
