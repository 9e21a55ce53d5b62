package integration

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"licenser/internal/infrastructure"
)

// Revalidator reruns license validation in the background for the
// lifetime of the host application. The first run fires after
// StartAfter, then every Interval, until the context is cancelled or
// Stop is called.
type Revalidator struct {
	validate   func(context.Context) bool
	startAfter time.Duration
	interval   time.Duration
	after      func(time.Duration) <-chan time.Time
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRevalidator creates a revalidation scheduler over the given
// validate func. Non-positive durations fall back to 12 hours.
func NewRevalidator(validate func(context.Context) bool, startAfter, interval time.Duration, logger *slog.Logger) *Revalidator {
	if startAfter <= 0 {
		startAfter = 12 * time.Hour
	}
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &Revalidator{
		validate:   validate,
		startAfter: startAfter,
		interval:   interval,
		after:      time.After,
		logger:     infrastructure.WithComponent(logger, "revalidator"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// WithAfter replaces the timer function. Test hook.
func (rv *Revalidator) WithAfter(after func(time.Duration) <-chan time.Time) *Revalidator {
	rv.after = after
	return rv
}

// WithMetrics records each revalidation pass on the given instruments.
func (rv *Revalidator) WithMetrics(m *infrastructure.BusinessMetrics) *Revalidator {
	rv.metrics = m
	return rv
}

// Start launches the background loop. Call at most once.
func (rv *Revalidator) Start(ctx context.Context) {
	rv.started.Store(true)
	go rv.loop(ctx)
}

// Stop terminates the loop and waits for it to exit. Idempotent, and
// safe on a revalidator that was never started.
func (rv *Revalidator) Stop() {
	rv.stopOnce.Do(func() { close(rv.stop) })
	if !rv.started.Load() {
		return
	}
	<-rv.done
}

func (rv *Revalidator) loop(ctx context.Context) {
	defer close(rv.done)

	wait := rv.startAfter
	for {
		select {
		case <-ctx.Done():
			return
		case <-rv.stop:
			return
		case <-rv.after(wait):
		}

		rv.run(ctx)
		wait = rv.interval
	}
}

// run executes one validation pass. A panicking validate func is
// contained here so the loop survives.
func (rv *Revalidator) run(ctx context.Context) {
	// Background runs have no inbound request id; mint one so the
	// pass's log lines correlate.
	ctx = infrastructure.EnsureTraceID(ctx)

	defer func() {
		if r := recover(); r != nil {
			rv.logger.ErrorContext(ctx, "revalidation panicked",
				slog.Any("panic", r))
		}
	}()

	valid := rv.validate(ctx)
	if rv.metrics != nil {
		rv.metrics.RevalidationRunsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("valid", valid)))
	}
	rv.logger.InfoContext(ctx, "license revalidated",
		slog.Bool("valid", valid))
}
