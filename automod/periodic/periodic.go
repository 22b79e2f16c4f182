package periodic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sourcegraph/conc/panics"
)

// One maintenance function run on a fixed interval.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
	// retries per tick after the first attempt. zero means a single attempt
	MaxRetries uint64
	// upper bound on a single attempt. zero means the interval
	Timeout time.Duration
}

// Runs tasks in their own goroutines until the context is cancelled. A failing or panicking tick is logged and retried with backoff; it never stops the schedule.
type Runner struct {
	Logger *slog.Logger
	// backoff parameters for retries inside a tick
	InitialRetryInterval time.Duration
	MaxRetryInterval     time.Duration

	wg sync.WaitGroup
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		Logger:               logger.With("component", "periodic"),
		InitialRetryInterval: time.Second,
		MaxRetryInterval:     30 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context, tasks ...Task) {
	for _, t := range tasks {
		r.wg.Add(1)
		go func(t Task) {
			defer r.wg.Done()
			r.loop(ctx, t)
		}(t)
	}
}

// Blocks until every started task has observed context cancellation.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx, t); err != nil {
				r.Logger.Error("periodic task failed", "task", t.Name, "err", err)
			}
		}
	}
}

// Runs a single tick of the task, with panic isolation and retries.
func (r *Runner) RunOnce(ctx context.Context, t Task) error {
	start := time.Now()
	timeout := t.Timeout
	if timeout == 0 {
		timeout = t.Interval
	}

	attempt := func() error {
		actx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		var err error
		if rec := panics.Try(func() { err = t.Run(actx) }); rec != nil {
			return fmt.Errorf("panic in %s: %w", t.Name, rec.AsError())
		}
		return err
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.InitialRetryInterval),
		backoff.WithMaxInterval(r.MaxRetryInterval),
		backoff.WithMaxElapsedTime(t.Interval),
	), t.MaxRetries)

	err := backoff.RetryNotify(attempt, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		r.Logger.Warn("retrying periodic task", "task", t.Name, "err", err, "wait", wait)
	})
	taskRuns.WithLabelValues(t.Name, resultLabel(err)).Inc()
	taskDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())
	return err
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
