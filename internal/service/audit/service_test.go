package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
	"github.com/jwalitptl/labops-api/internal/repository/memory"
	"github.com/jwalitptl/labops-api/pkg/metrics"
)

func TestLogSnapshotsAndSequence(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewService(repo)
	actor := &model.User{ID: uuid.New(), Role: model.RoleManager}
	entityID := uuid.New()

	before := map[string]string{"status": "READY"}
	after := map[string]string{"status": "MAINTENANCE"}
	require.NoError(t, svc.Log(context.Background(), Entry{
		Actor:      actor,
		Action:     model.AuditActionModeChange,
		EntityType: model.AuditEntityInstrument,
		EntityID:   entityID,
		Before:     before,
		After:      after,
		Reason:     "quarterly service",
	}))
	require.NoError(t, svc.Log(context.Background(), Entry{
		Actor:      actor,
		Action:     model.AuditActionModeChange,
		EntityType: model.AuditEntityInstrument,
		EntityID:   entityID,
		Before:     after,
		After:      before,
	}))

	records, err := svc.List(context.Background(), &model.AuditFilter{
		EntityType: model.AuditEntityInstrument,
		EntityID:   &entityID,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, actor.ID, first.ActorID)
	assert.Equal(t, model.RoleManager, first.ActorRole)
	assert.Equal(t, "quarterly service", first.Reason)

	var snapshot map[string]string
	require.NoError(t, json.Unmarshal(first.Before, &snapshot))
	assert.Equal(t, "READY", snapshot["status"])

	assert.Equal(t, int64(2), records[1].Sequence)
}

func TestLogCountsAppendedRecords(t *testing.T) {
	repo := memory.NewAuditRepository()
	svc := NewService(repo)
	m := metrics.NewMetrics("labops_test", "audit")
	svc.SetMetrics(m)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Log(context.Background(), Entry{
			Actor:      &model.User{ID: uuid.New(), Role: model.RoleAdmin},
			Action:     model.AuditActionCreate,
			EntityType: model.AuditEntityReagent,
			EntityID:   uuid.New(),
		}))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.AuditRecords))
}
