// Package kv exposes the ordered key-value engine the record stores run on.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Key locates a record: a partition key plus a sort key ordered within it.
type Key struct {
	PK string
	SK string
}

func (k Key) String() string {
	return k.PK + "/" + k.SK
}

// Version is an opaque token representing a record's state at read time.
// It is only meaningful as a precondition for a later commit; the zero
// value never matches a stored record.
type Version string

// Entry is a stored record as returned by point reads and scans.
type Entry struct {
	Key     Key
	Version Version

	// Doc is the record body, a JSON document opaque to the engine.
	Doc []byte
}

// Unmarshal decodes the record body into out.
func (e *Entry) Unmarshal(out any) error {
	return json.Unmarshal(e.Doc, out)
}

// Range selects an ordered slice of one partition. Exactly one of Prefix
// or the Lo/Hi pair should be set; with neither, the whole partition is
// scanned. Hi is an exclusive bound and must not equal any stored sort key.
type Range struct {
	PK     string
	Prefix string
	Lo, Hi string

	// Limit caps the number of entries returned (0 = no limit).
	Limit int
}

// Engine is the contract every storage backend satisfies: point reads
// with version tokens, ordered scans, and all-or-nothing conditional
// multi-key commits.
type Engine interface {
	// Get returns the entry at key, or nil when absent. Absence is not
	// an error.
	Get(ctx context.Context, key Key) (*Entry, error)

	// List returns the entries in rng in ascending sort-key order.
	List(ctx context.Context, rng Range) ([]Entry, error)

	// Commit applies the batch atomically: every declared precondition
	// must hold or the whole batch fails with ErrCheckFailed and no
	// side effects.
	Commit(ctx context.Context, b *Batch) error
}

// ErrCheckFailed reports that a commit precondition did not hold. Wrapped
// by CheckError, which carries the index of the failed check.
var ErrCheckFailed = errors.New("kv: atomic check failed")

// CheckError identifies which precondition of a batch failed. Index is
// the position of the check in declaration order, or -1 when the engine
// could not attribute the failure.
type CheckError struct {
	Index int
}

func (e *CheckError) Error() string {
	if e.Index < 0 {
		return "kv: atomic check failed"
	}
	return fmt.Sprintf("kv: atomic check %d failed", e.Index)
}

func (e *CheckError) Is(target error) bool {
	return target == ErrCheckFailed
}

type batchCheck struct {
	key     Key
	version Version
	absent  bool
}

type batchOp struct {
	key    Key
	doc    []byte
	delete bool
}

// Batch accumulates preconditions and writes for one atomic commit.
// Methods return the batch for chaining; marshal errors are deferred to
// Commit.
type Batch struct {
	checks []batchCheck
	ops    []batchOp
	err    error
}

func NewBatch() *Batch {
	return &Batch{}
}

// Check requires the record at key to still carry the given version.
func (b *Batch) Check(key Key, version Version) *Batch {
	b.checks = append(b.checks, batchCheck{key: key, version: version})
	return b
}

// CheckAbsent requires that no record exists at key.
func (b *Batch) CheckAbsent(key Key) *Batch {
	b.checks = append(b.checks, batchCheck{key: key, absent: true})
	return b
}

// Set writes value (JSON-marshaled) at key.
func (b *Batch) Set(key Key, value any) *Batch {
	doc, err := json.Marshal(value)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("kv: marshal value for %s: %w", key, err)
	}
	b.ops = append(b.ops, batchOp{key: key, doc: doc})
	return b
}

// Delete removes the record at key. Deleting an absent key is not an
// error unless a check says otherwise.
func (b *Batch) Delete(key Key) *Batch {
	b.ops = append(b.ops, batchOp{key: key, delete: true})
	return b
}
