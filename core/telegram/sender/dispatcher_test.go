package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsAndDrainsOnClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 8})
	var runs atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			runs.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(5), runs.Load())
	assert.Equal(t, uint64(5), d.SentCount())
	assert.ErrorIs(t, d.Enqueue(context.Background(), "send.text", "", func() error { return nil }), ErrQueueClosed)
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherDoesNotRetryClientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		calls.Add(1)
		return &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
	}))
	d.Close()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "queued", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "overflow", "", func() error { return nil }), ErrQueueFull)
	close(release)
	d.Close()
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAE-secret_token/sendMessage": timeout`)
	assert.NotContains(t, sanitizeErrorMessage(err), "AAE-secret_token")
}

func TestDispatcherReportsResults(t *testing.T) {
	var mu sync.Mutex
	var results []Result
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond, OnResult: func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
	}})
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil }))
	require.NoError(t, d.Enqueue(context.Background(), "notify.admin", "sendMessage", func() error {
		return &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	}))
	d.Close()

	require.Len(t, results, 2)
	assert.Equal(t, "send.text", results[0].Action)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Attempts)
	assert.Equal(t, "notify.admin", results[1].Action)
	assert.Equal(t, "http_4xx", results[1].Kind)
	assert.Equal(t, 1, results[1].Attempts)
}
