// Package reconcile decides what happened to an externally sourced record
// since it was last seen.
//
// Everything in this package is pure: callers hand in the incoming record and
// a consistent snapshot of prior state, and get back a directive. Reading and
// writing that state, and serializing work on one identity, is the caller's
// job (see feature/constituents).
//
// # Fingerprints
//
// A Fingerprint is the SHA-256 of a canonical JSON object built from a subset
// of a Record. A FieldPolicy fixes which fields take part, their order, and
// how each is normalized. Fields that are absent or empty are left out, so a
// missing value and an explicit null hash the same.
//
//	fp, err := reconcile.Fingerprint(c.Record(), reconcile.ConstituentPolicy)
//
// # Decisions
//
// Decide classifies a constituent:
//
//   - fingerprint match: updateAction, the stored next action is kept
//   - no identity match: post, or delete when terminated
//   - identity match: put with the changed fields, or delete when terminated
//
// # Accreditation sets
//
// ReconcileSet compares all accreditations fetched for one owner with the
// stored ones and plans post, activate and (optionally) deactivate actions so
// the stored active set converges to the fetched one in a single pass.
package reconcile
