package checks

import (
	"context"
	"testing"
	"time"

	pollerModels "api-poller/feature/poller/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStalledJobs(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, db.AutoMigrate(pollerModels.All()...))

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-3 * time.Hour)
	rows := []pollerModels.Job{
		// finished
		{ID: "1", ClientID: "c1", BatchID: "b1", JobID: "j1", JobIndex: 1, Status: "onBatchCreated", CreatedAt: old},
		{ID: "2", ClientID: "c1", BatchID: "b1", JobID: "j1", JobIndex: 1, Status: "onEmptyLastRequest", CreatedAt: old.Add(time.Minute)},
		// stuck mid-way
		{ID: "3", ClientID: "c1", BatchID: "b1", JobID: "j2", JobIndex: 2, Status: "onBatchCreated", CreatedAt: old},
		{ID: "4", ClientID: "c1", BatchID: "b1", JobID: "j2", JobIndex: 3, Status: "onFilledLastRequest", CreatedAt: old.Add(time.Minute)},
		// still running
		{ID: "5", ClientID: "c2", BatchID: "b2", JobID: "j3", JobIndex: 1, Status: "onFilledLastRequest", CreatedAt: now.Add(-time.Minute)},
		// failed jobs are not stalled
		{ID: "6", ClientID: "c2", BatchID: "b2", JobID: "j4", JobIndex: 1, Status: "Failed", CreatedAt: old},
	}
	require.NoError(t, db.Create(&rows).Error)

	stalled, err := CheckStalledJobs(context.Background(), db, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stalled, 1)
	assert.Equal(t, "j2", stalled[0].JobID)
	assert.Equal(t, 3, stalled[0].JobIndex)
	assert.Equal(t, "onFilledLastRequest", stalled[0].Status)
}

func TestCheckStalledJobs_NilDB(t *testing.T) {
	_, err := CheckStalledJobs(context.Background(), nil, time.Now())
	assert.Error(t, err)
}
