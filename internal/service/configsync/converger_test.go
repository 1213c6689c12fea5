package configsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository/memory"
)

// writeDuringPushTransport simulates a configuration write landing while the
// first push is in flight.
type writeDuringPushTransport struct {
	configs *memory.ConfigRepository
	once    sync.Once
	mu      sync.Mutex
	pushes  int
}

func (t *writeDuringPushTransport) Push(ctx context.Context, scope model.ServiceScope, generation int64) error {
	t.mu.Lock()
	t.pushes++
	t.mu.Unlock()
	t.once.Do(func() {
		_, _ = t.configs.BumpGeneration(ctx)
	})
	return nil
}

func (t *writeDuringPushTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pushes
}

type blockingTransport struct {
	started chan struct{}
}

func (t *blockingTransport) Push(ctx context.Context, scope model.ServiceScope, generation int64) error {
	select {
	case t.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestConvergeSkipsAlreadySyncedTargets(t *testing.T) {
	transport := &stubTransport{}
	converger := NewConverger(memory.NewConfigRepository(), memory.NewSyncTargetRepository(), transport)

	// Fresh targets are synced at generation zero: nothing to push.
	require.NoError(t, converger.Converge(context.Background()))
	assert.Empty(t, transport.pushed())
}

func TestSupersededRunRecordsNothing(t *testing.T) {
	configs := memory.NewConfigRepository()
	targets := memory.NewSyncTargetRepository()
	transport := &writeDuringPushTransport{configs: configs}
	converger := NewConverger(configs, targets, transport)

	require.NoError(t, targets.MarkAllPending(context.Background()))

	// The write during the first push supersedes the run: it stops after
	// that push and the delivered result is discarded.
	require.NoError(t, converger.Converge(context.Background()))
	assert.Equal(t, 1, transport.count())

	stale, err := targets.List(context.Background())
	require.NoError(t, err)
	for _, target := range stale {
		assert.Equal(t, model.SyncPending, target.Status, "scope %s", target.Scope)
	}

	// The next run sees the new generation and converges everything.
	require.NoError(t, converger.Converge(context.Background()))
	converged, err := targets.List(context.Background())
	require.NoError(t, err)
	for _, target := range converged {
		assert.Equal(t, model.SyncSynced, target.Status, "scope %s", target.Scope)
		assert.Equal(t, int64(1), target.Generation)
	}
}

func TestInterruptCancelsInFlightRun(t *testing.T) {
	configs := memory.NewConfigRepository()
	targets := memory.NewSyncTargetRepository()
	transport := &blockingTransport{started: make(chan struct{}, 1)}
	converger := NewConverger(configs, targets, transport)

	require.NoError(t, targets.MarkAllPending(context.Background()))

	done := make(chan error, 1)
	go func() {
		done <- converger.Converge(context.Background())
	}()

	select {
	case <-transport.started:
	case <-time.After(2 * time.Second):
		t.Fatal("push never started")
	}
	converger.Interrupt()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("interrupted run never returned")
	}

	after, err := targets.List(context.Background())
	require.NoError(t, err)
	for _, target := range after {
		assert.Equal(t, model.SyncPending, target.Status, "a cancelled run must not record results")
	}
}
