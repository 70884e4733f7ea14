package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/leadbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config *coreconfig.Config
	// Bot is built from Config when nil.
	Bot      *tele.Bot
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// NewBot builds a telebot instance with the poller and HTTP client derived from cfg.
func NewBot(cfg *coreconfig.Config) (*tele.Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram: nil config provided")
	}
	popts := PollerOptionsFrom(cfg)

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  BuildPoller(popts),
		Client:  BuildHTTPClient(popts.LongPollTimeout()),
		OnError: onBotError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logger.Info(context.Background(), "tg", "tg.init",
		slog.String("status", "ok"),
		slog.String("username", bot.Me.Username),
		slog.Duration("duration", logger.Took(start)),
	)
	return bot, nil
}

func onBotError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = tghelpers.BuildContext(c)
	}
	logger.Error(ctx, "tg", "tg.error",
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}

	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	bot := opts.Bot
	if bot == nil {
		var err error
		if bot, err = NewBot(cfg); err != nil {
			return err
		}
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	useHelperDispatcher := !opts.DisableHelperDispatcher
	if useHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	release := func() {
		dispatcher.Close()
		if useHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	rt := Runtime{
		Bot:        bot,
		Dispatcher: dispatcher,
		Registry:   reg,
	}

	logMode(ctx, bot.Poller)
	if _, polling := bot.Poller.(*tele.LongPoller); polling && !opts.DisableWebhookCleanup {
		if err := bot.RemoveWebhook(false); err != nil {
			logger.Warn(ctx, "tg", "delete_webhook",
				slog.String("status", "fail"),
				slog.String("mode", "polling"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		} else {
			logger.Info(ctx, "tg", "delete_webhook",
				slog.String("status", "ok"),
				slog.String("mode", "polling"),
			)
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint == nil || route.Handler == nil {
			continue
		}
		bot.Handle(route.Endpoint, route.Handler)
	}

	InitBotCommands(bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}

	release()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func logMode(ctx context.Context, poller tele.Poller) {
	switch p := poller.(type) {
	case *tele.Webhook:
		publicURL := ""
		if p.Endpoint != nil {
			publicURL = p.Endpoint.PublicURL
		}
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", publicURL),
		)
	case *tele.LongPoller:
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", "polling"),
			slog.Duration("timeout", p.Timeout),
		)
	}
}
