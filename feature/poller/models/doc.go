// Package models holds the gorm models of poller progress: batches, jobs
// and workflow executions.
package models
