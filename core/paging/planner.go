package paging

import (
	"fmt"
	"time"

	"api-poller/core/apperr"
	"api-poller/core/utils"

	"github.com/google/uuid"
)

// ParseRecordCount turns a metadata value into a RecordCount. Nil is an
// unknown count; numbers and numeric strings are known counts. Anything
// else is a ValidationError.
func ParseRecordCount(raw any) (RecordCount, error) {
	if raw == nil {
		return UnknownCount, nil
	}
	n, err := utils.ToInt64(raw)
	if err != nil {
		return RecordCount{}, apperr.Invalid("total_records", err.Error())
	}
	return Count(n), nil
}

// Plan splits a batch into jobs.
//
// A known positive total yields ceil(total / MaxPageSize) jobs with start
// indexes 1..n. An unknown, zero or negative total yields exactly one job.
// A total needing more than MaxJobs jobs is a ValidationError.
func Plan(req PlanRequest) (Batch, error) {
	if req.MaxPageSize <= 0 {
		return Batch{}, apperr.Invalid("max_page_size", fmt.Sprintf("must be positive, got %d", req.MaxPageSize))
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	retention := req.RetentionDays
	if retention <= 0 {
		retention = DefaultRetentionDays
	}
	newID := req.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	maxJobs := req.MaxJobs
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}

	total := int64(-1)
	jobs := 1
	if req.Total.Known && req.Total.Value > 0 {
		total = req.Total.Value
		pageSize := int64(req.MaxPageSize)
		n := total / pageSize
		if total%pageSize != 0 {
			n++
		}
		if n > int64(maxJobs) {
			return Batch{}, apperr.Invalid("total_records",
				fmt.Sprintf("%d records at page size %d need %d jobs, limit is %d", total, pageSize, n, maxJobs))
		}
		jobs = int(n)
	}

	batch := Batch{
		ID:            newID(),
		ClientID:      req.ClientID,
		NumberOfJobs:  jobs,
		PurgeAt:       now.AddDate(0, 0, retention),
		MetaAvailable: req.MetaAvailable,
		TotalRecords:  total,
		CreatedAt:     now,
		Jobs:          make([]Job, 0, jobs),
	}
	for i := 1; i <= jobs; i++ {
		batch.Jobs = append(batch.Jobs, Job{
			ID:         newID(),
			StartIndex: i,
			State:      StateBatchCreated,
		})
	}
	return batch, nil
}
