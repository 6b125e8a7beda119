// Package poller drives paginated fetches of client data sources.
//
// A run goes through these steps, each also exposed on its own route so an
// external orchestrator can drive them:
//
//   - prepare: health check, metadata call, batch planning
//   - batches/report: batch progress, workflow execution status and the
//     incremental sync window (last_edit)
//   - jobs/report: job progress
//   - jobs/fetch: fetch one page, archive it, process its line items
//   - jobs/next: decide whether the job is done or fetches the next page
//
// Run chains them in process. Batch and job rows expire after the retention
// period; purge removes them with their archived pages.
//
// # Routes
//
//	POST /poller/prepare
//	POST /poller/run
//	POST /poller/purge
//	POST /poller/batches/report
//	POST /poller/jobs/report
//	POST /poller/jobs/fetch
//	POST /poller/jobs/next
package poller
