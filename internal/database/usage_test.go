package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func newSQLiteRecorder(t *testing.T) *UsageRecorder {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// :memory: 每个连接一个库
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	r := NewUsageRecorder(db, zap.NewNop())
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func TestUsageRecorder_RecordAndSummary(t *testing.T) {
	r := newSQLiteRecorder(t)
	ctx := context.Background()

	r.Record(ctx, UsageRecord{RequestID: "a", Feature: "colorize", Platform: "modelscope", Outcome: OutcomeSuccess, DurationMs: 1200})
	r.Record(ctx, UsageRecord{RequestID: "b", Feature: "colorize", Platform: "bailian", Outcome: OutcomeError, ErrorCode: "UPSTREAM_TIMEOUT"})
	r.Record(ctx, UsageRecord{RequestID: "c", Feature: "colorize", Platform: "modelscope", Outcome: OutcomeSuccess})
	r.Record(ctx, UsageRecord{RequestID: "d", Feature: "idea_generation", Platform: "modelscope", Outcome: OutcomeSuccess})

	var rows []UsageRecord
	require.NoError(t, r.db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 4)
	assert.Equal(t, "UPSTREAM_TIMEOUT", rows[1].ErrorCode)
	assert.False(t, rows[0].CreatedAt.IsZero())

	summary, err := r.Summary(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []FeatureUsage{
		{Feature: "colorize", Outcome: OutcomeError, Count: 1},
		{Feature: "colorize", Outcome: OutcomeSuccess, Count: 2},
		{Feature: "idea_generation", Outcome: OutcomeSuccess, Count: 1},
	}, summary)
}

func TestUsageRecorder_CancelledRequestStillRecorded(t *testing.T) {
	r := newSQLiteRecorder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Record(ctx, UsageRecord{RequestID: "x", Feature: "transcribe", Outcome: OutcomeError, ErrorCode: "INTERNAL_ERROR"})

	var n int64
	require.NoError(t, r.db.Model(&UsageRecord{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestUsageRecorder_InsertSQL(t *testing.T) {
	mockDB, mock, gormDB := setupMockDB(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "usage_records"`)).
		WithArgs("req-1", "colorize", "modelscope", OutcomeSuccess, "", int64(900), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	NewUsageRecorder(gormDB, zap.NewNop()).Record(context.Background(), UsageRecord{
		RequestID:  "req-1",
		Feature:    "colorize",
		Platform:   "modelscope",
		Outcome:    OutcomeSuccess,
		DurationMs: 900,
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsageRecorder_WriteFailureIsLogged(t *testing.T) {
	mockDB, mock, gormDB := setupMockDB(t)
	defer mockDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "usage_records"`)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	core, logs := observer.New(zap.WarnLevel)
	NewUsageRecorder(gormDB, zap.New(core)).Record(context.Background(), UsageRecord{RequestID: "req-2", Feature: "colorize"})

	assert.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to record usage", logs.All()[0].Message)
}
