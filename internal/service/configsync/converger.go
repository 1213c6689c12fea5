package configsync

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
)

// SyncTransport delivers the current configuration to one downstream scope.
// The real implementation pushes over the network; tests inject a double.
type SyncTransport interface {
	Push(ctx context.Context, scope model.ServiceScope, generation int64) error
}

// Converger is the single authoritative writer of sync-target status. Both
// force-sync and the periodic worker go through it, serialized by runMu, so
// two runs can never race a target to different terminal states.
//
// Each run is stamped with the registry generation observed at its start. A
// configuration write during the run interrupts it, and per-target results
// are discarded once the run is stale, so a superseded run can never mark
// old config as synced.
type Converger struct {
	configs   repository.ConfigRepository
	targets   repository.SyncTargetRepository
	transport SyncTransport

	runMu sync.Mutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

func NewConverger(configs repository.ConfigRepository, targets repository.SyncTargetRepository, transport SyncTransport) *Converger {
	return &Converger{configs: configs, targets: targets, transport: transport}
}

// Interrupt cancels the in-flight run, if any. Called on every
// configuration write.
func (c *Converger) Interrupt() {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Converge drives every non-synced target to Synced or Failed. Targets are
// retried independently: one failing scope does not block the others.
func (c *Converger) Converge(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()
	defer func() {
		c.cancelMu.Lock()
		c.cancel = nil
		c.cancelMu.Unlock()
	}()

	generation, err := c.configs.Generation(runCtx)
	if err != nil {
		return err
	}

	targets, err := c.targets.List(runCtx)
	if err != nil {
		return err
	}

	for _, target := range targets {
		if target.Status == model.SyncSynced && target.Generation == generation {
			continue
		}

		pushErr := c.transport.Push(runCtx, target.Scope, generation)

		// A write landed while we were pushing: everything this run
		// delivered describes a stale generation. Stop without recording.
		current, genErr := c.configs.Generation(runCtx)
		if genErr != nil {
			return genErr
		}
		if current != generation || runCtx.Err() != nil {
			log.Info().
				Int64("run_generation", generation).
				Int64("current_generation", current).
				Msg("convergence run superseded")
			return nil
		}

		now := time.Now()
		if pushErr != nil {
			msg := pushErr.Error()
			target.Status = model.SyncFailed
			target.ErrorLog = &msg
		} else {
			target.Status = model.SyncSynced
			target.LastSyncAt = &now
			target.ErrorLog = nil
			target.Generation = generation
		}
		if err := c.targets.Update(runCtx, target); err != nil {
			return err
		}
	}
	return nil
}
