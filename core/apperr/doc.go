// Package apperr defines the error taxonomy shared by the reconciliation and
// pagination engine and the collaborators around it.
//
// # Kinds
//
//   - ValidationError: malformed input to the planner, decider or hasher.
//     Never retried; the caller surfaces it immediately.
//   - ErrProtocolViolation: the data source returned more records than the
//     requested page size. Fatal for the current job.
//   - CollaboratorError: a store, fetch or parameter-store failure. The
//     original error is kept and can be inspected with errors.Is / errors.As.
//
// Accreditations that miss mandatory fields are not errors; they are skipped
// and logged by the caller.
package apperr
