package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	"github.com/jwalitptl/labops-api/internal/service/configsync"
	"github.com/jwalitptl/labops-api/pkg/metrics"
)

// Alerter receives the targets still failed after a convergence run.
type Alerter interface {
	NotifySyncFailure(targets []*model.SyncTarget)
}

// ConvergenceWorker periodically drives sync targets toward the current
// registry generation. The converger itself serializes with force-sync, so
// the worker never needs to coordinate with the API process beyond sharing
// the store.
type ConvergenceWorker struct {
	converger *configsync.Converger
	targets   repository.SyncTargetRepository
	interval  time.Duration
	metrics   *metrics.Metrics
	alerter   Alerter
}

func NewConvergenceWorker(
	converger *configsync.Converger,
	targets repository.SyncTargetRepository,
	interval time.Duration,
	m *metrics.Metrics,
	alerter Alerter,
) *ConvergenceWorker {
	return &ConvergenceWorker{
		converger: converger,
		targets:   targets,
		interval:  interval,
		metrics:   m,
		alerter:   alerter,
	}
}

func (w *ConvergenceWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.interval).Msg("starting convergence worker")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down convergence worker")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ConvergenceWorker) runOnce(ctx context.Context) {
	timer := prometheus.NewTimer(w.metrics.ConvergenceLatency)
	err := w.converger.Converge(ctx)
	timer.ObserveDuration()

	if err != nil {
		w.metrics.ConvergenceRuns.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("convergence run failed")
		return
	}
	w.metrics.ConvergenceRuns.WithLabelValues("ok").Inc()

	targets, err := w.targets.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sync targets after convergence")
		return
	}

	var failed []*model.SyncTarget
	for _, target := range targets {
		w.metrics.SyncTargetStatus.WithLabelValues(string(target.Scope)).Set(statusValue(target.Status))
		if target.Status == model.SyncFailed {
			failed = append(failed, target)
		}
	}
	if len(failed) > 0 && w.alerter != nil {
		w.alerter.NotifySyncFailure(failed)
	}
}

func statusValue(status model.SyncStatus) float64 {
	switch status {
	case model.SyncSynced:
		return 0
	case model.SyncPending:
		return 1
	default:
		return 2
	}
}
