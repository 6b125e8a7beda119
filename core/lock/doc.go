// Package lock serializes work on one identity across processes.
//
// Reconciliation of a record reads prior state and then writes a decision, so
// two workers handling the same client_id/external_id at once could both
// decide "post". Callers obtain a lock keyed by that identity first.
//
// Redis (bsm/redislock) backs the lock when an address is configured. Without
// one a process-local keyed mutex is used, which is enough for a single
// instance and for tests.
//
// # Usage
//
//	unlock, err := locker.Lock(ctx, lock.Key(clientID, externalID))
//	if err != nil {
//	    return err
//	}
//	defer unlock(context.Background())
package lock
