// Package ledger is a transactional data-access layer for user accounts
// and their dated transactions over an ordered key-value engine.
//
// The engine provides single-key atomicity and optimistic multi-key
// compare-and-swap, nothing more; this package layers on top of it the
// composite keyspace, the secondary-index mirroring, and the retry
// discipline that keep both entity kinds consistent without locks.
//
// # Records and indexes
//
// A User is stored twice: the primary record under its id and an exact
// copy under its email, which makes email both unique and addressable.
// A Transaction is likewise stored under (owner, id) and mirrored into
// the owner's date index under (owner, date, id). Every mutation commits
// the copies in one atomic call; partial states are impossible by
// construction.
//
// # Concurrency
//
// Updates and deletes run read-then-conditioned-write loops: read the
// record with its version token, compute the new state, commit with the
// token as precondition, retry on a lost race. Loops are bounded; an
// exhausted budget surfaces CONTENTION_EXCEEDED rather than starving
// forever.
//
// # Errors
//
// Every operation returns either a typed value or a *Error carrying a
// Code from the closed enumeration:
//
//   - INVALID_INPUT - input failed validation (with field details)
//   - RECORD_NOT_FOUND - a required record (usually the owner) is absent
//   - USER_EXISTS - a user create lost a uniqueness check
//   - TRANSACTION_CREATE_ERROR - a transaction create lost its check
//   - MERGE_INVALID - a partial update merged into an invalid record
//   - CONTENTION_EXCEEDED - a CAS loop exhausted its budget
//   - USER_HAS_TRANSACTIONS - orphan-protected delete refused
//   - STORE_ERROR - the engine failed
//
// [Result] renders either outcome into the uniform envelope outer
// layers serialize.
package ledger
