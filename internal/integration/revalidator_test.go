package integration

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualTimer hands out channels the test fires by hand, so the loop
// advances deterministically without real sleeps.
type manualTimer struct {
	waits chan time.Duration
	fire  chan time.Time
}

func newManualTimer() *manualTimer {
	return &manualTimer{
		waits: make(chan time.Duration, 16),
		fire:  make(chan time.Time),
	}
}

func (m *manualTimer) after(d time.Duration) <-chan time.Time {
	m.waits <- d
	return m.fire
}

func (m *manualTimer) tick(t *testing.T) {
	t.Helper()
	select {
	case m.fire <- time.Now():
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not arm a timer")
	}
}

func (m *manualTimer) armed(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-m.waits:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not arm a timer")
		return 0
	}
}

func TestRevalidatorFiresAfterStartThenEveryInterval(t *testing.T) {
	timer := newManualTimer()

	var runs int64
	rv := NewRevalidator(func(context.Context) bool {
		atomic.AddInt64(&runs, 1)
		return true
	}, time.Minute, time.Hour, testLogger()).WithAfter(timer.after)

	rv.Start(context.Background())

	assert.Equal(t, time.Minute, timer.armed(t))
	timer.tick(t)
	assert.Equal(t, time.Hour, timer.armed(t))
	timer.tick(t)
	assert.Equal(t, time.Hour, timer.armed(t))

	rv.Stop()
	assert.Equal(t, int64(2), atomic.LoadInt64(&runs))
}

func TestRevalidatorStopIsIdempotent(t *testing.T) {
	timer := newManualTimer()
	rv := NewRevalidator(func(context.Context) bool { return true },
		time.Minute, time.Hour, testLogger()).WithAfter(timer.after)

	rv.Start(context.Background())
	timer.armed(t)

	rv.Stop()
	assert.NotPanics(t, rv.Stop)
}

func TestRevalidatorStopWithoutStartReturns(t *testing.T) {
	rv := NewRevalidator(func(context.Context) bool { return true },
		time.Minute, time.Hour, testLogger())

	stopped := make(chan struct{})
	go func() {
		rv.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop blocked on a revalidator that was never started")
	}
}

func TestRevalidatorStopsOnContextCancel(t *testing.T) {
	timer := newManualTimer()
	rv := NewRevalidator(func(context.Context) bool { return true },
		time.Minute, time.Hour, testLogger()).WithAfter(timer.after)

	ctx, cancel := context.WithCancel(context.Background())
	rv.Start(ctx)
	timer.armed(t)

	cancel()
	select {
	case <-rv.done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not exit on context cancel")
	}
}

func TestRevalidatorSurvivesPanickingValidate(t *testing.T) {
	timer := newManualTimer()

	var runs int64
	rv := NewRevalidator(func(context.Context) bool {
		if atomic.AddInt64(&runs, 1) == 1 {
			panic("validation blew up")
		}
		return true
	}, time.Minute, time.Hour, testLogger()).WithAfter(timer.after)

	rv.Start(context.Background())

	timer.armed(t)
	timer.tick(t)

	// The loop survives the panic and arms the next interval.
	assert.Equal(t, time.Hour, timer.armed(t))
	timer.tick(t)
	timer.armed(t)

	rv.Stop()
	assert.Equal(t, int64(2), atomic.LoadInt64(&runs))
}

func TestRevalidatorDefaultsDurations(t *testing.T) {
	rv := NewRevalidator(func(context.Context) bool { return true }, 0, -time.Second, testLogger())
	require.NotNil(t, rv)
	assert.Equal(t, 12*time.Hour, rv.startAfter)
	assert.Equal(t, 12*time.Hour, rv.interval)
}
