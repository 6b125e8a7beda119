package checks

import (
	"context"
	"fmt"
	"time"

	"api-poller/core/paging"
	"api-poller/feature/poller/models"

	"gorm.io/gorm"
)

// StalledJob is a job whose last reported state is not terminal and which
// has not reported since the cutoff.
type StalledJob struct {
	ClientID   string    `json:"client_id"`
	BatchID    string    `json:"batch_id"`
	JobID      string    `json:"job_id"`
	JobIndex   int       `json:"job_index"`
	Status     string    `json:"status"`
	ReportedAt time.Time `json:"reported_at"`
}

// CheckStalledJobs lists jobs that stopped reporting before cutoff without
// reaching a terminal state.
func CheckStalledJobs(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]StalledJob, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var rows []models.Job
	err := db.WithContext(ctx).
		Select("client_id", "batch_id", "job_id", "job_index", "status", "created_at").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list job progress: %w", err)
	}

	latest := make(map[string]models.Job, len(rows))
	var order []string
	for _, row := range rows {
		if _, seen := latest[row.JobID]; !seen {
			order = append(order, row.JobID)
		}
		latest[row.JobID] = row
	}

	stalled := []StalledJob{}
	for _, id := range order {
		row := latest[id]
		if paging.State(row.Status).Terminal() || !row.CreatedAt.Before(cutoff) {
			continue
		}
		stalled = append(stalled, StalledJob{
			ClientID:   row.ClientID,
			BatchID:    row.BatchID,
			JobID:      row.JobID,
			JobIndex:   row.JobIndex,
			Status:     row.Status,
			ReportedAt: row.CreatedAt,
		})
	}
	return stalled, nil
}
