package poller

import (
	"time"

	"api-poller/core/fetch"
	"api-poller/core/paging"
)

// Task is the unit handed between poller steps: the data source, the batch
// and job it belongs to and the job state.
type Task struct {
	fetch.Source

	Batch BatchRef     `json:"batch"`
	Job   JobRef       `json:"job"`
	State paging.State `json:"state"`

	// Runs identifies the poller execution the task belongs to.
	Runs *ExecutionInfo `json:"runs,omitempty"`

	// LastEdit restricts fetches to records edited since then. It is set by
	// ReportBatch when incremental sync is allowed.
	LastEdit *time.Time `json:"last_edit,omitempty"`
}

// BatchRef carries the batch fields every task needs.
type BatchRef struct {
	ID            string    `json:"id"`
	NumberOfJobs  int       `json:"number_of_jobs"`
	PurgeAt       time.Time `json:"purge_timestamp"`
	MetaAvailable bool      `json:"meta_available"`
	TotalRecords  int64     `json:"total_records"`
	MaxPageSize   int       `json:"max_page_size"`
}

// JobRef carries the job fields of a task.
type JobRef struct {
	ID         string `json:"id"`
	StartIndex int    `json:"start_index"`
	// RecordsSize is the number of records the last page returned.
	RecordsSize int `json:"records_size"`
}

// ExecutionInfo identifies one poller run.
type ExecutionInfo struct {
	ClientID      string    `json:"client_id"`
	Workflow      string    `json:"workflow"`
	ExecutionName string    `json:"execution_name"`
	ExecutionID   string    `json:"execution_id"`
	Status        string    `json:"status"`
	LastUpdateTS  time.Time `json:"last_update_ts"`
}

// PageSize is the page size requested for this task. Planned batches use the
// planning page size; lazy batches ask for the source's preferred size.
func (t Task) PageSize() int {
	if !t.Batch.MetaAvailable && t.Meta.PreferPageSize > 0 {
		return t.Meta.PreferPageSize
	}
	return t.Batch.MaxPageSize
}

// PrepareRequest starts a poller run for one data source.
type PrepareRequest struct {
	Source fetch.Source `json:"source"`
	// MaxPageSize overrides the configured page size when positive.
	MaxPageSize int `json:"max_page_size" validate:"gte=0"`
}

// PrepareResult is the planned batch with one task per job.
type PrepareResult struct {
	Batch paging.Batch `json:"batch"`
	Tasks []Task       `json:"tasks"`
}

// FetchResult is the outcome of fetching the page of a task.
type FetchResult struct {
	Task Task `json:"task"`
	// ArchiveKey is where the raw page was stored. Empty when not archived.
	ArchiveKey string `json:"archive_key,omitempty"`
	// Processed and Failed count the line items of the page.
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// RunResult summarizes an in-process poller run.
type RunResult struct {
	BatchID   string                  `json:"batch_id"`
	Jobs      int                     `json:"jobs"`
	Pages     int                     `json:"pages"`
	Processed int                     `json:"processed"`
	Failed    int                     `json:"failed"`
	States    map[string]paging.State `json:"states"`
}

// PurgeResult summarizes a purge.
type PurgeResult struct {
	Batches       int64 `json:"batches"`
	Jobs          int64 `json:"jobs"`
	ArchivedPages int   `json:"archived_pages"`
}
