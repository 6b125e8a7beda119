package paging

import "time"

// DefaultRetentionDays is how long batch and job rows are kept.
const DefaultRetentionDays = 14

// DefaultMaxJobs caps the number of jobs a single batch may plan.
const DefaultMaxJobs = 100000

// State is a job state as reported to the orchestrator.
type State string

const (
	StateBatchCreated       State = "onBatchCreated"
	StateFetchedAllPayloads State = "onFetchedAllPayloads"
	StateEmptyLastRequest   State = "onEmptyLastRequest"
	StateFilledLastRequest  State = "onFilledLastRequest"
	StateFailed             State = "Failed"
)

// Terminal reports whether the state ends the fetch loop of a job.
func (s State) Terminal() bool {
	return s != StateBatchCreated && s != StateFilledLastRequest
}

// Execution statuses stored for a poller run.
const (
	ExecutionStarted   = "started"
	ExecutionCompleted = "completed"
	ExecutionUnknown   = "unknown"
)

// ExecutionStatus maps a job state to the status of the poller run it
// belongs to.
func ExecutionStatus(s State) string {
	switch s {
	case StateBatchCreated:
		return ExecutionStarted
	case StateEmptyLastRequest, StateFetchedAllPayloads:
		return ExecutionCompleted
	default:
		return ExecutionUnknown
	}
}

// RecordCount is a total record count that may be unknown.
type RecordCount struct {
	Value int64
	Known bool
}

// Count returns a known RecordCount.
func Count(n int64) RecordCount {
	return RecordCount{Value: n, Known: true}
}

// UnknownCount is the RecordCount of a source that reports no total.
var UnknownCount = RecordCount{}

// Batch is one pagination run over a data source.
type Batch struct {
	// ID is shared by every job of the batch.
	ID string `json:"id"`

	ClientID string `json:"client_id"`

	// NumberOfJobs is fixed once planned.
	NumberOfJobs int `json:"number_of_jobs"`

	// PurgeAt is when the batch and its jobs may be removed.
	PurgeAt time.Time `json:"purge_timestamp"`

	// MetaAvailable is true when the total was known up front.
	MetaAvailable bool `json:"meta_available"`

	// TotalRecords is the reported total, or -1 when unknown.
	TotalRecords int64 `json:"total_records"`

	CreatedAt time.Time `json:"created_at"`

	Jobs []Job `json:"jobs"`
}

// Job is one page-fetch unit of a batch.
type Job struct {
	ID string `json:"id"`

	// StartIndex is the 1-based page index.
	StartIndex int `json:"start_index"`

	State State `json:"state"`
}

// PlanRequest carries the inputs of Plan.
type PlanRequest struct {
	ClientID string

	// Total is the record count reported by the source metadata.
	Total RecordCount

	// MaxPageSize is the number of records per page. Must be positive.
	MaxPageSize int

	// MaxJobs defaults to DefaultMaxJobs when not positive.
	MaxJobs int

	// RetentionDays defaults to DefaultRetentionDays when not positive.
	RetentionDays int

	// MetaAvailable marks a source that reports its totals up front.
	MetaAvailable bool

	// Now is the planning time. Defaults to time.Now.
	Now time.Time

	// NewID generates batch and job ids.
	NewID func() string
}

// PageOutcome describes the page that was just fetched for a job.
type PageOutcome struct {
	MetaAvailable     bool
	Returned          int
	PreferredPageSize int
	StartIndex        int
	NumberOfJobs      int
}

// Transition is the decision taken after a page.
type Transition struct {
	State State `json:"state"`

	// NextStartIndex is the page to fetch next. Only meaningful for
	// StateFilledLastRequest; otherwise it equals the current index.
	NextStartIndex int `json:"next_start_index"`
}
