package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/leadbot/core/buildinfo"
	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	coretelegram "github.com/m3rciful/leadbot/core/telegram"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// BackgroundApp is implemented by apps that run extra services (HTTP
// endpoints, sweepers) for as long as the bot runs.
type BackgroundApp interface {
	RunBackground(ctx context.Context) error
}

// Closer is implemented by apps holding resources released after shutdown.
type Closer interface {
	Close() error
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Signals overrides the shutdown signals; nil means SIGINT and SIGTERM.
	Signals []os.Signal
}

// Run loads configuration, bootstraps the Telegram app, and runs the bot
// together with the app's background services until a shutdown signal
// arrives or any of them fails.
func Run(opts Options) error {
	if opts.LoadConfig == nil {
		return fmt.Errorf("cmd: LoadConfig is required")
	}
	if opts.Bootstrap == nil {
		return fmt.Errorf("cmd: Bootstrap is required")
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
	}

	log.Printf("loading config: %s (build %s)", cfgPath, buildinfo.String())
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return fmt.Errorf("cmd: loaded config is missing core configuration")
	}

	signals := opts.Signals
	if signals == nil {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	startedAt := time.Now()
	application, err := opts.Bootstrap(sigCtx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()
	if c, ok := application.(Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn(context.Background(), "app", "close",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
			}
		}()
	}

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}

	prevStart := runOpts.OnStart
	runOpts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if prevStart != nil {
			if err := prevStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.Took(startedAt)),
		)
		return nil
	}

	prevStop := runOpts.OnStop
	runOpts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown", slog.String("status", "ok"))
		if prevStop != nil {
			return prevStop(ctx, rt)
		}
		return nil
	}

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}

	g, gctx := errgroup.WithContext(sigCtx)
	botCtx, cancelBot := context.WithCancel(gctx)
	defer cancelBot()

	g.Go(func() error {
		// The bot stopping on its own ends the background services too.
		defer cancelBot()
		return run(botCtx, runOpts)
	})
	if bg, ok := application.(BackgroundApp); ok {
		g.Go(func() error {
			return bg.RunBackground(botCtx)
		})
	}
	return g.Wait()
}
