package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/labops-api/internal/model"
)

func newMockRepo(t *testing.T) (BaseRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBaseRepository(sqlx.NewDb(db, "sqlmock")), mock
}

// The per-entity sequence comes from a counter-row upsert, not from an
// aggregate over audit_records: Postgres rejects FOR UPDATE on aggregate
// queries, so the allocation must lock a concrete row.
func TestAuditCreateAllocatesSequenceFromCounterRow(t *testing.T) {
	base, mock := newMockRepo(t)
	repo := NewAuditRepository(base)

	record := &model.AuditRecord{
		ID:         uuid.New(),
		ActorID:    uuid.New(),
		ActorRole:  model.RoleAdmin,
		Action:     model.AuditActionUpdate,
		EntityType: model.AuditEntityInstrument,
		EntityID:   uuid.New(),
		CreatedAt:  time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO audit_sequences .+ ON CONFLICT .+ DO UPDATE SET seq = audit_sequences\.seq \+ 1 RETURNING seq`).
		WithArgs(record.EntityType, record.EntityID).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(7)))
	mock.ExpectExec(`INSERT INTO audit_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, int64(7), record.Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditCreateRollsBackOnInsertFailure(t *testing.T) {
	base, mock := newMockRepo(t)
	repo := NewAuditRepository(base)

	record := &model.AuditRecord{
		ID:         uuid.New(),
		Action:     model.AuditActionCreate,
		EntityType: model.AuditEntityReagent,
		EntityID:   uuid.New(),
		CreatedAt:  time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO audit_sequences`).
		WithArgs(record.EntityType, record.EntityID).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(int64(1)))
	mock.ExpectExec(`INSERT INTO audit_records`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	require.Error(t, repo.Create(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}
