package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dom/star-diary/internal/domain"
	"github.com/dom/star-diary/internal/logging"
	"github.com/dom/star-diary/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	name       string
	configured bool
	result     bool
	block      chan struct{}
	panics     bool

	mu     sync.Mutex
	events []domain.Event
}

func (s *fakeSink) Name() string     { return s.name }
func (s *fakeSink) Configured() bool { return s.configured }

func (s *fakeSink) Dispatch(ctx context.Context, ev domain.Event) bool {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return false
		}
	}
	if s.panics {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.result
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func event(kind domain.EventKind) domain.Event {
	return domain.Event{Kind: kind, DisplayName: "Star", Username: "star01", OccurredAt: time.Now()}
}

func TestDispatcher_DeliversToConfiguredSinks(t *testing.T) {
	on := &fakeSink{name: "on", configured: true, result: true}
	off := &fakeSink{name: "off", configured: false, result: true}
	failing := &fakeSink{name: "failing", configured: true, result: false}

	d := notify.NewDispatcher(logging.Discard(), notify.Options{QueueSize: 8, Workers: 1}, on, off, failing)

	d.Notify(event(domain.EventLoginSucceeded))
	d.Notify(event(domain.EventRegistrationSucceeded))

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, on.count())
	assert.Equal(t, 2, failing.count())
	assert.Equal(t, 0, off.count())
}

func TestDispatcher_NotifyNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	slow := &fakeSink{name: "slow", configured: true, result: true, block: release}

	d := notify.NewDispatcher(logging.Discard(), notify.Options{QueueSize: 1, Workers: 1, Timeout: 5 * time.Second}, slow)

	start := time.Now()
	for i := 0; i < 50; i++ {
		d.Notify(event(domain.EventEntryCreated))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(release)
	require.NoError(t, d.Close(context.Background()))

	// one in flight plus one queued; the rest were dropped
	assert.LessOrEqual(t, slow.count(), 2)
	assert.GreaterOrEqual(t, slow.count(), 1)
}

func TestDispatcher_RecoversFromPanics(t *testing.T) {
	bad := &fakeSink{name: "bad", configured: true, panics: true}
	good := &fakeSink{name: "good", configured: true, result: true}

	d := notify.NewDispatcher(logging.Discard(), notify.Options{Workers: 1}, bad, good)
	d.Notify(event(domain.EventLoginSucceeded))
	d.Notify(event(domain.EventLoginSucceeded))

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 2, good.count())
}

func TestDispatcher_TimeoutBoundsEachDispatch(t *testing.T) {
	stuck := &fakeSink{name: "stuck", configured: true, block: make(chan struct{})}

	d := notify.NewDispatcher(logging.Discard(), notify.Options{Workers: 1, Timeout: 20 * time.Millisecond}, stuck)
	d.Notify(event(domain.EventLoginSucceeded))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 0, stuck.count())
}

func TestDispatcher_CloseRespectsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := &fakeSink{name: "stuck", configured: true, block: release}

	d := notify.NewDispatcher(logging.Discard(), notify.Options{Workers: 1, Timeout: time.Minute}, stuck)
	d.Notify(event(domain.EventLoginSucceeded))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)
}

func TestDispatcher_NotifyAfterCloseIsDropped(t *testing.T) {
	sink := &fakeSink{name: "s", configured: true, result: true}
	d := notify.NewDispatcher(logging.Discard(), notify.Options{}, sink)
	require.NoError(t, d.Close(context.Background()))

	assert.NotPanics(t, func() { d.Notify(event(domain.EventLoginSucceeded)) })
	assert.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 0, sink.count())
}
