package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/leadbot/core/buildinfo"
	"github.com/m3rciful/leadbot/core/logger"
	tg "github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/sender"
	"github.com/m3rciful/leadbot/core/telegram/state"
	"github.com/m3rciful/leadbot/internal/catalog"
	"github.com/m3rciful/leadbot/internal/config"
	"github.com/m3rciful/leadbot/internal/flow"
	"github.com/m3rciful/leadbot/internal/lead"
	"github.com/m3rciful/leadbot/internal/metrics"
	"github.com/m3rciful/leadbot/internal/notify"
	"github.com/m3rciful/leadbot/internal/ops"
	"github.com/m3rciful/leadbot/internal/storage"
)

const (
	redisPingTimeout = 3 * time.Second
	maxSweepInterval = time.Minute
)

// App holds the long-lived dependencies of the lead bot.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	repo     *storage.Repository
	catalog  *catalog.Catalog
	sessions state.Store[flow.Conversation]
	memory   *state.MemoryStore[flow.Conversation]
	redis    *redis.Client
	checks   []ops.Check
}

// New builds the app on an open, migrated database.
func New(ctx context.Context, cfg *config.Config, db *sqlx.DB) (*App, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("bot: config and database are required")
	}
	cat, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, db: db, repo: storage.New(db), catalog: cat}
	a.checks = append(a.checks, ops.Check{Name: "database", Ping: a.repo.Ping})

	switch cfg.Session.Backend {
	case config.SessionRedis:
		rc := cfg.Session.Redis
		a.redis = redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		store := state.NewRedisStore[flow.Conversation](a.redis, rc.Prefix, cfg.Session.TTL)
		pctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := store.Ping(pctx); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("bot: redis session store: %w", err)
		}
		a.sessions = store
		a.checks = append(a.checks, ops.Check{Name: "redis", Ping: store.Ping})
	default:
		a.memory = state.NewMemoryStore[flow.Conversation](cfg.Session.TTL)
		a.sessions = a.memory
	}

	logger.Info(ctx, "app", "app.init",
		slog.String("status", "ok"),
		slog.String("session", cfg.Session.Backend),
		slog.String("db", cfg.Database.Driver),
		slog.Int("services", cat.Len()),
	)
	return a, nil
}

// TelegramRunOptions wires the bot, the lead flow and its collaborators.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	bot, err := tg.NewBot(core)
	if err != nil {
		return tg.RunOptions{}, err
	}

	notifier, err := a.notifier(bot, core.Telegram.AdminID)
	if err != nil {
		return tg.RunOptions{}, err
	}
	finalizer := lead.NewFinalizer(a.repo, notifier, lead.Options{NeuroBudget: a.cfg.Leads.NeuroBudget})

	machine, err := flow.New(flow.Options{
		Catalog:     a.catalog,
		Store:       a.sessions,
		Submitter:   finalizer,
		Texts:       a.cfg.Content.Flow,
		MainMenu:    MainMenu(),
		PhoneRegion: a.cfg.Leads.PhoneRegion,
		Recorder:    metrics.Flow{},
	})
	if err != nil {
		return tg.RunOptions{}, err
	}
	cv := NewConversation(machine)
	pages := NewPages(cv, a.catalog, a.cfg.Content, a.repo)

	reg := tg.NewRegistry()
	if err := Register(reg, cv, pages); err != nil {
		return tg.RunOptions{}, err
	}

	return tg.RunOptions{
		Config:   core,
		Bot:      bot,
		Registry: reg,
		DispatcherOptions: sender.Options{
			QueueSize:    a.cfg.Sender.QueueSize,
			Workers:      a.cfg.Sender.Workers,
			MaxRetries:   a.cfg.Sender.MaxRetries,
			RetryBackoff: a.cfg.SenderBackoff(),
			OnResult:     metrics.ObserveSend,
		},
		Middlewares: tg.DefaultMiddlewares(core, onRateLimited),
		Routes:      Routes(reg, cv, pages, core.Telegram.AdminID),
		OnStart: func(_ context.Context, rt tg.Runtime) error {
			metrics.MustRegister()
			metrics.SetBuildInfo(buildinfo.Version, buildinfo.Commit)
			return metrics.RegisterDispatcher(prometheus.DefaultRegisterer, rt.Dispatcher)
		},
	}, nil
}

func (a *App) notifier(bot notify.Sender, adminID int64) (lead.Notifier, error) {
	var multi notify.Multi
	if adminID != 0 {
		multi = append(multi, notify.NewTelegram(bot, adminID))
	} else {
		logger.Warn(context.Background(), "app", "notify.admin",
			slog.String("status", "skip"),
			slog.String("cause", "admin_id_unset"),
		)
	}
	if a.cfg.Notify.SMTP.Enabled() {
		em, err := notify.NewEmail(a.cfg.Notify.SMTP)
		if err != nil {
			return nil, err
		}
		multi = append(multi, em)
	}
	return multi, nil
}

// RunBackground serves the ops endpoint and sweeps expired in-memory
// sessions until ctx is done.
func (a *App) RunBackground(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Ops.Listen; addr != "" {
		srv := ops.New(addr, a.checks...)
		g.Go(func() error { return srv.Run(gctx) })
	}
	if a.memory != nil && a.cfg.Session.TTL > 0 {
		g.Go(func() error {
			a.sweep(gctx, min(a.cfg.Session.TTL, maxSweepInterval))
			return nil
		})
	}
	return g.Wait()
}

func (a *App) sweep(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.memory.Sweep(); n > 0 {
				logger.Debug(ctx, "flow", "session.sweep",
					slog.String("status", "ok"),
					slog.Int("expired", n),
				)
			}
		}
	}
}

// Close releases the Redis client and the database.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
