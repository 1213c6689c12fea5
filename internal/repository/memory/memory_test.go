package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

func TestConfigUpdateRejectsStaleVersion(t *testing.T) {
	repo := NewConfigRepository()
	item := &model.ConfigurationItem{
		Base:  model.Base{ID: uuid.New()},
		Key:   "AUTO_INTERVAL",
		Value: "30",
		Scope: model.ScopeInstrument,
	}
	require.NoError(t, repo.Create(context.Background(), item))

	first, err := repo.Get(context.Background(), item.ID)
	require.NoError(t, err)
	second, err := repo.Get(context.Background(), item.ID)
	require.NoError(t, err)

	first.Value = "60"
	require.NoError(t, repo.Update(context.Background(), first))

	second.Value = "90"
	err = repo.Update(context.Background(), second)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	current, err := repo.Get(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "60", current.Value, "the losing write must not land")
}

func TestAuditSequencePerEntity(t *testing.T) {
	repo := NewAuditRepository()
	first := uuid.New()
	second := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(context.Background(), &model.AuditRecord{
			ID:         uuid.New(),
			EntityType: model.AuditEntityInstrument,
			EntityID:   first,
			Action:     model.AuditActionUpdate,
			CreatedAt:  time.Now(),
		}))
	}
	require.NoError(t, repo.Create(context.Background(), &model.AuditRecord{
		ID:         uuid.New(),
		EntityType: model.AuditEntityInstrument,
		EntityID:   second,
		Action:     model.AuditActionCreate,
		CreatedAt:  time.Now(),
	}))

	records, err := repo.List(context.Background(), &model.AuditFilter{
		EntityType: model.AuditEntityInstrument,
		EntityID:   &first,
	})
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, record := range records {
		assert.Equal(t, int64(i+1), record.Sequence, "sequence is dense and ordered per entity")
	}

	others, err := repo.List(context.Background(), &model.AuditFilter{
		EntityType: model.AuditEntityInstrument,
		EntityID:   &second,
	})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, int64(1), others[0].Sequence, "each entity counts from one")
}
