package models

import "time"

// Workflow is the workflow name of poller executions.
const Workflow = "poller"

// Batch represents the 'api_poller_batch' table. One row is written per
// reported batch state.
type Batch struct {
	ID        string `gorm:"column:id;primaryKey;size:36" json:"id"`
	ClientID  string `gorm:"column:client_id;size:191;index" json:"client_id"`
	BatchID   string `gorm:"column:batch_id;size:36;index" json:"batch_id"`
	TotalJobs int    `gorm:"column:total_jobs" json:"total_jobs"`
	Status    string `gorm:"column:status;size:64" json:"status"`
	// BatchType is true when the total record count was known up front.
	BatchType bool      `gorm:"column:batch_type" json:"batch_type"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	PurgeAt   time.Time `gorm:"column:purge_at;index" json:"purge_at"`
}

// TableName overrides the table name.
func (Batch) TableName() string {
	return "api_poller_batch"
}

// Job represents the 'api_poller_job' table. One row is written per reported
// job state.
type Job struct {
	ID        string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ClientID  string    `gorm:"column:client_id;size:191;index" json:"client_id"`
	BatchID   string    `gorm:"column:batch_id;size:36;index" json:"batch_id"`
	JobID     string    `gorm:"column:job_id;size:36" json:"job_id"`
	JobIndex  int       `gorm:"column:job_index" json:"job_index"`
	TotalJobs int       `gorm:"column:total_jobs" json:"total_jobs"`
	Status    string    `gorm:"column:status;size:64" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	PurgeAt   time.Time `gorm:"column:purge_at;index" json:"purge_at"`
}

// TableName overrides the table name.
func (Job) TableName() string {
	return "api_poller_job"
}

// WorkflowExecution represents the 'workflow_executions' table.
type WorkflowExecution struct {
	ID            string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	ClientID      string    `gorm:"column:client_id;size:191;index:idx_workflow_executions_client" json:"client_id"`
	Workflow      string    `gorm:"column:workflow;size:64;index:idx_workflow_executions_client" json:"workflow"`
	ExecutionName string    `gorm:"column:execution_name;size:191" json:"execution_name"`
	ExecutionID   string    `gorm:"column:execution_id;size:36" json:"execution_id"`
	Status        string    `gorm:"column:status;size:32" json:"status"`
	LastUpdateTS  time.Time `gorm:"column:last_update_ts" json:"last_update_ts"`
}

// TableName overrides the table name.
func (WorkflowExecution) TableName() string {
	return "workflow_executions"
}

// All returns every model of this package, for migrations.
func All() []any {
	return []any{&Batch{}, &Job{}, &WorkflowExecution{}}
}

// ExpectedSchema lists the columns each table must have.
func ExpectedSchema() map[string][]string {
	return map[string][]string{
		"api_poller_batch": {
			"id", "client_id", "batch_id", "total_jobs", "status", "batch_type", "created_at", "purge_at",
		},
		"api_poller_job": {
			"id", "client_id", "batch_id", "job_id", "job_index", "total_jobs", "status", "created_at", "purge_at",
		},
		"workflow_executions": {
			"id", "client_id", "workflow", "execution_name", "execution_id", "status", "last_update_ts",
		},
	}
}
