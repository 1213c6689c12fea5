package instrument

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
	"github.com/jwalitptl/labops-api/pkg/metrics"
)

// SampleProcessor executes one sample on the device. Injected so tests can
// control duration and failure.
type SampleProcessor interface {
	Process(ctx context.Context, instrumentSerial, sampleID string) error
}

type sleepProcessor struct{ perSample time.Duration }

func (p sleepProcessor) Process(ctx context.Context, _, _ string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.perSample):
		return nil
	}
}

// analysisRunner owns all in-flight analysis runs. Samples within a run are
// processed strictly one at a time; each either completes or fails before
// the next starts.
type analysisRunner struct {
	repo      repository.InstrumentRepository
	processor SampleProcessor
	metrics   *metrics.Metrics

	mu      sync.Mutex
	runs    map[uuid.UUID]*model.AnalysisRun
	cancels map[uuid.UUID]context.CancelFunc
}

func newAnalysisRunner(repo repository.InstrumentRepository) *analysisRunner {
	return &analysisRunner{
		repo:      repo,
		runs:      make(map[uuid.UUID]*model.AnalysisRun),
		cancels:   make(map[uuid.UUID]context.CancelFunc),
		processor: sleepProcessor{perSample: 2 * time.Second},
	}
}

// SetProcessor replaces the device processor before any run starts.
func (s *Service) SetProcessor(p SampleProcessor) {
	s.runner.processor = p
}

// SetMetrics attaches the metric bundle; runs are counted by final status.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.runner.metrics = m
}

// StartAnalysis queues a run and returns immediately. The instrument shows
// Processing while the run is active and returns to Ready afterwards.
func (s *Service) StartAnalysis(ctx context.Context, actor *model.User, instrumentID uuid.UUID, sampleIDs []string) (*model.AnalysisRun, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermManageInstruments); err != nil {
		return nil, err
	}
	if len(sampleIDs) == 0 {
		return nil, apperrors.NewValidationField("sample_ids", "at least one sample is required")
	}

	instrument, err := s.repo.Get(ctx, instrumentID)
	if err != nil {
		return nil, err
	}
	if instrument.Activation != model.ActivationActive {
		return nil, apperrors.NewPreconditionFailed("instrument is inactive")
	}
	if instrument.OperationalStatus != model.InstrumentReady {
		return nil, apperrors.NewPreconditionFailed("instrument is not ready")
	}

	return s.runner.start(instrument, sampleIDs)
}

// CancelAnalysis stops a queued or running run.
func (s *Service) CancelAnalysis(ctx context.Context, actor *model.User, runID uuid.UUID) error {
	if err := s.rbac.Authorize(actor.Role, model.PermManageInstruments); err != nil {
		return err
	}
	return s.runner.cancel(runID)
}

// GetAnalysisRun reports current progress.
func (s *Service) GetAnalysisRun(ctx context.Context, actor *model.User, runID uuid.UUID) (*model.AnalysisRun, error) {
	if err := s.rbac.Authorize(actor.Role, model.PermViewInstruments); err != nil {
		return nil, err
	}
	return s.runner.get(runID)
}

func (r *analysisRunner) start(instrument *model.Instrument, sampleIDs []string) (*model.AnalysisRun, error) {
	run := &model.AnalysisRun{
		ID:           uuid.New(),
		InstrumentID: instrument.ID,
		SampleIDs:    append([]string(nil), sampleIDs...),
		Status:       model.AnalysisRunQueued,
		CreatedAt:    time.Now(),
	}

	runCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.runs[run.ID] = run
	r.cancels[run.ID] = cancel
	r.mu.Unlock()

	go r.execute(runCtx, run.ID, instrument)

	out := *run
	return &out, nil
}

func (r *analysisRunner) execute(ctx context.Context, runID uuid.UUID, instrument *model.Instrument) {
	r.setInstrumentStatus(ctx, instrument.ID, model.InstrumentProcessing)

	r.mu.Lock()
	run := r.runs[runID]
	run.Status = model.AnalysisRunRunning
	now := time.Now()
	run.StartedAt = &now
	samples := append([]string(nil), run.SampleIDs...)
	serial := instrument.SerialNumber
	r.mu.Unlock()

	final := model.AnalysisRunCompleted
	var failure string
	for i, sampleID := range samples {
		r.mu.Lock()
		run.CurrentSample = i
		r.mu.Unlock()

		if err := r.processor.Process(ctx, serial, sampleID); err != nil {
			if ctx.Err() != nil {
				final = model.AnalysisRunCancelled
			} else {
				final = model.AnalysisRunFailed
				failure = err.Error()
			}
			break
		}
	}

	r.mu.Lock()
	run.Status = final
	run.Error = failure
	done := time.Now()
	run.FinishedAt = &done
	delete(r.cancels, runID)
	// Counted before the terminal status becomes observable.
	if r.metrics != nil {
		r.metrics.AnalysisRuns.WithLabelValues(string(final)).Inc()
	}
	r.mu.Unlock()

	target := model.InstrumentReady
	if final == model.AnalysisRunFailed {
		target = model.InstrumentError
	}
	r.setInstrumentStatus(context.Background(), instrument.ID, target)
}

func (r *analysisRunner) setInstrumentStatus(ctx context.Context, id uuid.UUID, status model.OperationalStatus) {
	// Retry once on version conflict; the runner only touches the
	// operational axis.
	for attempt := 0; attempt < 2; attempt++ {
		instrument, err := r.repo.Get(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("instrument_id", id.String()).Msg("analysis runner: load instrument")
			return
		}
		instrument.OperationalStatus = status
		if err := r.repo.Update(ctx, instrument); err == nil {
			return
		}
	}
	log.Warn().Str("instrument_id", id.String()).Msg("analysis runner: could not update instrument status")
}

func (r *analysisRunner) cancel(runID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel, ok := r.cancels[runID]
	if !ok {
		run, exists := r.runs[runID]
		if !exists {
			return apperrors.NewNotFound("analysis run", nil)
		}
		return apperrors.NewPreconditionFailed("analysis run already finished: " + string(run.Status))
	}
	cancel()
	return nil
}

func (r *analysisRunner) get(runID uuid.UUID) (*model.AnalysisRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[runID]
	if !ok {
		return nil, apperrors.NewNotFound("analysis run", nil)
	}
	out := *run
	out.SampleIDs = append([]string(nil), run.SampleIDs...)
	return &out, nil
}
