// Package integrity provides operational health checks of the poller.
//
// Unlike the 'poller' package which runs batches, this package validates the
// infrastructure the poller depends on and the progress it left behind.
//
// # Checks Provided
//
//   - Archive: Checks that the page archive bucket exists and lists the clients with archived pages.
//   - Schema: Validates that the database schema matches the GORM models (columns, explicit types).
//   - Jobs: Lists jobs whose last reported state is not terminal and that stopped reporting.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/archive : Runs archive check (supports ?fix=true).
//   - GET /integrity/schema : Runs schema check (supports ?fix=true to migrate first).
//   - GET /integrity/jobs : Lists stalled jobs.
package integrity
