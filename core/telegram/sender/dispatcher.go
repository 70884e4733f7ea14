// Package sender runs outbound Telegram calls on a bounded worker pool so
// handlers never block on the Bot API.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Result describes a finished job.
type Result struct {
	Action   string
	Endpoint string
	Attempts int
	Took     time.Duration
	// Kind is the netutil error class, empty on success.
	Kind string
	Err  error
}

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
	// OnResult, when set, is called from the worker after every job.
	OnResult func(Result)
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
// Flood-control answers are honoured by waiting at least the advertised
// retry_after before the next attempt.
type Dispatcher struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup

	sent atomic.Uint64
	errs atomic.Uint64
}

// NewDispatcher starts a dispatcher, filling zero options with defaults.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	opts.MaxRetries = max(opts.MaxRetries, 0)
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}

	d := &Dispatcher{opts: opts, jobs: make(chan job, opts.QueueSize)}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for j := range d.jobs {
				d.finish(j, d.attempt(j))
			}
		}()
	}
	return d
}

// Enqueue schedules run for asynchronous execution. run must be safe to
// repeat when retries are enabled. ctx carries log metadata and bounds
// retries; callers that must outlive the update pass context.WithoutCancel.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.jobs <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed after retries.
func (d *Dispatcher) ErrorCount() uint64 { return d.errs.Load() }

// SentCount returns the number of jobs that completed successfully.
func (d *Dispatcher) SentCount() uint64 { return d.sent.Load() }

// Close rejects new jobs, drains the queue and waits for the workers.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

// attempt runs j until it succeeds, fails permanently, exhausts retries or
// runs out of time.
func (d *Dispatcher) attempt(j job) (res Result) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	res = Result{Action: j.action, Endpoint: j.endpoint}
	start := time.Now()
	defer func() { res.Took = time.Since(start) }()

	limit := d.opts.MaxRetries + 1
	for res.Attempts < limit {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		res.Attempts++
		res.Err = j.run()
		if res.Err == nil || !netutil.ShouldRetry(res.Err) || res.Attempts == limit {
			return res
		}

		delay := max(d.opts.RetryBackoff*time.Duration(res.Attempts), netutil.RetryAfter(res.Err))
		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff",
			append(jobAttrs(j), slog.Int("attempt", res.Attempts), slog.Duration("delay", delay))...,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Err = ctx.Err()
			return res
		case <-timer.C:
		}
	}
	return res
}

func (d *Dispatcher) finish(j job, res Result) {
	res.Kind = netutil.Classify(res.Err)
	attrs := append(jobAttrs(j),
		slog.Int("attempts", res.Attempts),
		slog.Int64("elapsed_ms", res.Took.Milliseconds()),
	)
	if res.Err == nil {
		d.sent.Add(1)
		if res.Attempts > 1 {
			logger.Info(j.ctx, "tg.sender", "send.retry.success", append(attrs, slog.String("status", "ok"))...)
		} else {
			logger.Debug(j.ctx, "tg.sender", "send.success", append(attrs, slog.String("status", "ok"))...)
		}
	} else {
		d.errs.Add(1)
		logger.Error(j.ctx, "tg.sender", "send.fail", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", sanitizeErrorMessage(res.Err)),
			slog.String("error_kind", res.Kind),
		)...)
	}
	if d.opts.OnResult != nil {
		d.opts.OnResult(res)
	}
}

func jobAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	if rid := logger.RIDFrom(j.ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	if userID := logger.UserIDFrom(j.ctx); userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", userID))
	}
	return attrs
}

// sanitizeErrorMessage keeps bot tokens out of logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
