package instrument

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
	"github.com/jwalitptl/labops-api/pkg/metrics"
)

type recordingProcessor struct {
	mu      sync.Mutex
	order   []string
	perCall time.Duration
	failOn  string
	block   chan struct{}
}

func (p *recordingProcessor) Process(ctx context.Context, serial, sampleID string) error {
	if p.block != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.block:
		}
	}
	if p.perCall > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.perCall):
		}
	}
	p.mu.Lock()
	p.order = append(p.order, sampleID)
	p.mu.Unlock()
	if sampleID == p.failOn {
		return errors.New("sample clotted")
	}
	return nil
}

func (p *recordingProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

func waitForRun(t *testing.T, svc *Service, actor *model.User, runID uuid.UUID, want model.AnalysisRunStatus) *model.AnalysisRun {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := svc.GetAnalysisRun(context.Background(), actor, runID)
		require.NoError(t, err)
		if run.Status == want {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run never reached %s", want)
	return nil
}

func TestStartAnalysisRequiresReadyActiveInstrument(t *testing.T) {
	svc, _ := newTestService(nil)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	_, err = svc.StartAnalysis(context.Background(), actor, created.ID, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, err = svc.ToggleActivation(context.Background(), actor, created.ID)
	require.NoError(t, err)
	_, err = svc.StartAnalysis(context.Background(), actor, created.ID, []string{"S1"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
}

func TestAnalysisRunProcessesSamplesInOrder(t *testing.T) {
	svc, _ := newTestService(nil)
	proc := &recordingProcessor{}
	svc.SetProcessor(proc)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	run, err := svc.StartAnalysis(context.Background(), actor, created.ID, []string{"S1", "S2", "S3"})
	require.NoError(t, err)

	finished := waitForRun(t, svc, actor, run.ID, model.AnalysisRunCompleted)
	assert.Equal(t, []string{"S1", "S2", "S3"}, proc.processed())
	assert.NotNil(t, finished.FinishedAt)

	// Instrument returned to ready after the run.
	deadline := time.Now().Add(2 * time.Second)
	for {
		inst, err := svc.Get(context.Background(), actor, created.ID)
		require.NoError(t, err)
		if inst.OperationalStatus == model.InstrumentReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("instrument never returned to ready")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAnalysisRunFailureMarksInstrumentError(t *testing.T) {
	svc, _ := newTestService(nil)
	proc := &recordingProcessor{failOn: "S2"}
	svc.SetProcessor(proc)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	run, err := svc.StartAnalysis(context.Background(), actor, created.ID, []string{"S1", "S2", "S3"})
	require.NoError(t, err)

	finished := waitForRun(t, svc, actor, run.ID, model.AnalysisRunFailed)
	assert.Equal(t, "sample clotted", finished.Error)
	// S3 never ran: a failed sample stops the batch.
	assert.Equal(t, []string{"S1", "S2"}, proc.processed())

	deadline := time.Now().Add(2 * time.Second)
	for {
		inst, err := svc.Get(context.Background(), actor, created.ID)
		require.NoError(t, err)
		if inst.OperationalStatus == model.InstrumentError {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("instrument never entered error state")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCancelAnalysisRun(t *testing.T) {
	svc, _ := newTestService(nil)
	proc := &recordingProcessor{block: make(chan struct{})}
	svc.SetProcessor(proc)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	run, err := svc.StartAnalysis(context.Background(), actor, created.ID, []string{"S1", "S2"})
	require.NoError(t, err)

	require.NoError(t, svc.CancelAnalysis(context.Background(), actor, run.ID))
	cancelled := waitForRun(t, svc, actor, run.ID, model.AnalysisRunCancelled)
	assert.Empty(t, proc.processed())
	assert.NotNil(t, cancelled.FinishedAt)

	// Cancelling a finished run reports the terminal state.
	err = svc.CancelAnalysis(context.Background(), actor, run.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrPreconditionFailed))
}

func TestGetUnknownAnalysisRun(t *testing.T) {
	svc, _ := newTestService(nil)

	_, err := svc.GetAnalysisRun(context.Background(), admin(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestAnalysisRunCountedByFinalStatus(t *testing.T) {
	svc, _ := newTestService(nil)
	proc := &recordingProcessor{}
	svc.SetProcessor(proc)
	m := metrics.NewMetrics("labops_test", "instrument")
	svc.SetMetrics(m)
	actor := admin()

	created, err := svc.Register(context.Background(), actor, &model.RegisterInstrumentRequest{
		Name: "A", SerialNumber: "HA-1", Type: "hematology",
	})
	require.NoError(t, err)

	run, err := svc.StartAnalysis(context.Background(), actor, created.ID, []string{"S1"})
	require.NoError(t, err)
	waitForRun(t, svc, actor, run.ID, model.AnalysisRunCompleted)

	completed := m.AnalysisRuns.WithLabelValues(string(model.AnalysisRunCompleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(completed))
}
