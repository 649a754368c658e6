package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sethvargo/go-retry"

	"github.com/jacentio/tally/kv"
)

// Config tunes the record stores.
type Config struct {
	// MaxAttempts caps each CAS retry loop. Exhaustion surfaces
	// CONTENTION_EXCEEDED instead of looping forever.
	// Default: 16. Min: 1.
	MaxAttempts uint64
}

// DefaultConfig returns defaults suitable for moderate contention.
func DefaultConfig() Config {
	return Config{MaxAttempts: 16}
}

func (c *Config) validate() {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 16
	}
}

// Store bundles the per-entity record stores over one engine handle.
// The handle is injected; its lifecycle belongs to the process entry
// point.
type Store struct {
	Users        *Users
	Transactions *Transactions
}

// New creates a Store over the given engine.
func New(engine kv.Engine, config Config) *Store {
	config.validate()
	transactions := &Transactions{engine: engine, config: config}
	users := &Users{engine: engine, config: config, transactions: transactions}
	return &Store{Users: users, Transactions: transactions}
}

// newID mints a server-assigned identity: 26 characters, time-ordered,
// lexicographically sortable.
func newID() string {
	return ulid.Make().String()
}

// withCAS runs fn under the bounded optimistic-concurrency policy: lost
// races retry with a small backoff, anything else returns immediately,
// and an exhausted budget becomes CONTENTION_EXCEEDED.
func withCAS(ctx context.Context, attempts uint64, fn retry.RetryFunc) error {
	backoff := retry.WithMaxRetries(attempts, retry.NewFibonacci(2*time.Millisecond))
	err := retry.Do(ctx, backoff, fn)
	if err != nil && errors.Is(err, kv.ErrCheckFailed) {
		return &Error{
			Code:    CodeContentionExceeded,
			Message: "gave up after repeated concurrent modifications",
			cause:   err,
		}
	}
	return err
}
