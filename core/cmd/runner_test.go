package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct {
	bgStarted chan struct{}
	bgErr     error
	closed    bool
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{}, nil
}

func (a *app) RunBackground(ctx context.Context) error {
	close(a.bgStarted)
	if a.bgErr != nil {
		return a.bgErr
	}
	<-ctx.Done()
	return nil
}

func (a *app) Close() error {
	a.closed = true
	return nil
}

func baseOptions(a *app) Options {
	return Options{
		DefaultConfigPath: filepath.Join("testdata", "unused.yaml"),
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return a, nil
		},
		ShutdownLogger: func() error { return nil },
	}
}

func TestRunStopsBackgroundWhenBotReturns(t *testing.T) {
	a := &app{bgStarted: make(chan struct{})}
	opts := baseOptions(a)
	var started, stopped bool
	opts.RunTelegram = func(ctx context.Context, ro coretelegram.RunOptions) error {
		require.NoError(t, ro.OnStart(ctx, coretelegram.Runtime{}))
		started = true
		<-a.bgStarted
		stopped = ro.OnStop(ctx, coretelegram.Runtime{}) == nil
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- Run(opts) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not return after the bot stopped")
	}
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, a.closed)
}

func TestRunPropagatesBackgroundFailure(t *testing.T) {
	a := &app{bgStarted: make(chan struct{}), bgErr: errors.New("ops listen failed")}
	opts := baseOptions(a)
	opts.RunTelegram = func(ctx context.Context, _ coretelegram.RunOptions) error {
		<-ctx.Done()
		return nil
	}
	err := Run(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ops listen failed")
}

func TestRunRequiresConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil },
		Bootstrap:  func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	require.Error(t, err)
}
