package ledger

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"

	"github.com/jacentio/tally/internal/keyspace"
	"github.com/jacentio/tally/kv"
	"github.com/jacentio/tally/schema"
)

// Transactions is the record store for dated transactions. Every record
// is scoped to one owning user and mirrored into the owner's date index;
// the two copies change together or not at all.
type Transactions struct {
	engine kv.Engine
	config Config
}

// requireOwner resolves the owning user before any operation; absence
// is RECORD_NOT_FOUND naming the user.
func (t *Transactions) requireOwner(ctx context.Context, userID string) error {
	if err := schema.CheckID("user_id", userID); err != nil {
		return invalidInput(err)
	}
	key, err := keyspace.Derive(keyspace.UserPrimary, keyspace.Args{UserID: userID})
	if err != nil {
		return storeError(err)
	}
	entry, err := t.engine.Get(ctx, key)
	if err != nil {
		return storeError(err)
	}
	if entry == nil {
		return notFound("no user found for id %s", userID)
	}
	return nil
}

// Create validates the input, assigns an identity and commits the
// primary record and the date-index copy together, conditioned on the
// primary key being absent.
func (t *Transactions) Create(ctx context.Context, userID string, in schema.TransactionCreate) (*schema.Transaction, error) {
	if err := t.requireOwner(ctx, userID); err != nil {
		return nil, err
	}
	if err := schema.Validate(in); err != nil {
		return nil, invalidInput(err)
	}

	txn := &schema.Transaction{
		ID:       newID(),
		UserID:   userID,
		Date:     in.Date,
		Amount:   in.Amount,
		Currency: in.Currency,
		Comment:  in.Comment,
	}

	keys, err := keyspace.DeriveBatch(
		[]keyspace.Kind{keyspace.TransactionPrimary, keyspace.TransactionByDate},
		keyspace.Args{UserID: userID, TransactionID: txn.ID, Date: txn.Date},
	)
	if err != nil {
		return nil, storeError(err)
	}
	primary, byDate := keys[0], keys[1]

	batch := kv.NewBatch().
		CheckAbsent(primary).
		Set(primary, txn).
		Set(byDate, txn)

	if err := t.engine.Commit(ctx, batch); err != nil {
		if errors.Is(err, kv.ErrCheckFailed) {
			return nil, &Error{Code: CodeTransactionCreate, Message: "transaction creation failed"}
		}
		return nil, storeError(err)
	}
	return txn, nil
}

// GetByID returns the transaction, or nil when absent.
func (t *Transactions) GetByID(ctx context.Context, userID, id string) (*schema.Transaction, kv.Version, error) {
	if err := t.requireOwner(ctx, userID); err != nil {
		return nil, "", err
	}
	if err := schema.CheckID("id", id); err != nil {
		return nil, "", invalidInput(err)
	}
	key, err := keyspace.Derive(keyspace.TransactionPrimary, keyspace.Args{UserID: userID, TransactionID: id})
	if err != nil {
		return nil, "", storeError(err)
	}
	entry, err := t.engine.Get(ctx, key)
	if err != nil {
		return nil, "", storeError(err)
	}
	if entry == nil {
		return nil, "", nil
	}
	var txn schema.Transaction
	if err := entry.Unmarshal(&txn); err != nil {
		return nil, "", storeError(err)
	}
	return &txn, entry.Version, nil
}

// GetByDate returns the owner's transactions on one calendar date, in
// key order (insertion-agnostic: the trailing segment is the id).
func (t *Transactions) GetByDate(ctx context.Context, userID, date string) ([]schema.Transaction, error) {
	if err := t.requireOwner(ctx, userID); err != nil {
		return nil, err
	}
	if err := schema.CheckDate("date", date); err != nil {
		return nil, invalidInput(err)
	}
	rng, err := keyspace.Prefix(keyspace.TransactionsByDatePrefix, keyspace.Args{UserID: userID, Date: date})
	if err != nil {
		return nil, storeError(err)
	}
	return t.collect(ctx, rng)
}

// GetByDateRange returns the owner's transactions with start inclusive
// and end exclusive. Callers own the start < end ordering; the store
// does not re-validate it.
func (t *Transactions) GetByDateRange(ctx context.Context, userID, start, end string) ([]schema.Transaction, error) {
	if err := t.requireOwner(ctx, userID); err != nil {
		return nil, err
	}
	if err := schema.CheckDate("start", start); err != nil {
		return nil, invalidInput(err)
	}
	if err := schema.CheckDate("end", end); err != nil {
		return nil, invalidInput(err)
	}
	rng, err := keyspace.DateRange(userID, start, end)
	if err != nil {
		return nil, storeError(err)
	}
	return t.collect(ctx, rng)
}

// GetAll returns every transaction of the owner in id order.
func (t *Transactions) GetAll(ctx context.Context, userID string) ([]schema.Transaction, error) {
	if err := t.requireOwner(ctx, userID); err != nil {
		return nil, err
	}
	rng, err := keyspace.Prefix(keyspace.TransactionsPrefix, keyspace.Args{UserID: userID})
	if err != nil {
		return nil, storeError(err)
	}
	return t.collect(ctx, rng)
}

func (t *Transactions) collect(ctx context.Context, rng kv.Range) ([]schema.Transaction, error) {
	entries, err := t.engine.List(ctx, rng)
	if err != nil {
		return nil, storeError(err)
	}
	txns := make([]schema.Transaction, 0, len(entries))
	for i := range entries {
		var txn schema.Transaction
		if err := entries[i].Unmarshal(&txn); err != nil {
			return nil, storeError(err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// Update merges the present fields over the current record, re-validates
// the merged record, and commits both copies under the primary's version
// token. An absent record is an empty success, not an error. When the
// merge changes the date, the old date-index key is deleted and the new
// one written in the same commit, so the index never disagrees with its
// own content.
func (t *Transactions) Update(ctx context.Context, userID string, in schema.TransactionUpdate) (*schema.Transaction, error) {
	if err := t.requireOwner(ctx, userID); err != nil {
		return nil, err
	}
	if err := schema.Validate(in); err != nil {
		return nil, invalidInput(err)
	}

	primary, err := keyspace.Derive(keyspace.TransactionPrimary, keyspace.Args{UserID: userID, TransactionID: in.ID})
	if err != nil {
		return nil, storeError(err)
	}

	var updated *schema.Transaction
	err = withCAS(ctx, t.config.MaxAttempts, func(ctx context.Context) error {
		cur, err := t.engine.Get(ctx, primary)
		if err != nil {
			return storeError(err)
		}
		if cur == nil {
			updated = nil
			return nil
		}
		var txn schema.Transaction
		if err := cur.Unmarshal(&txn); err != nil {
			return storeError(err)
		}
		oldDate := txn.Date

		if in.Date != nil {
			txn.Date = *in.Date
		}
		if in.Amount != nil {
			txn.Amount = *in.Amount
		}
		if in.Currency != nil {
			txn.Currency = *in.Currency
		}
		if in.Comment != nil {
			txn.Comment = *in.Comment
		}

		if err := schema.Validate(txn); err != nil {
			return mergeInvalid(err)
		}

		oldByDate, err := keyspace.Derive(keyspace.TransactionByDate,
			keyspace.Args{UserID: userID, TransactionID: txn.ID, Date: oldDate})
		if err != nil {
			return storeError(err)
		}

		batch := kv.NewBatch().
			Check(primary, cur.Version).
			Set(primary, &txn)
		if txn.Date != oldDate {
			newByDate, err := keyspace.Derive(keyspace.TransactionByDate,
				keyspace.Args{UserID: userID, TransactionID: txn.ID, Date: txn.Date})
			if err != nil {
				return storeError(err)
			}
			batch.Delete(oldByDate).Set(newByDate, &txn)
		} else {
			batch.Set(oldByDate, &txn)
		}

		if err := t.engine.Commit(ctx, batch); err != nil {
			if errors.Is(err, kv.ErrCheckFailed) {
				return retry.RetryableError(err)
			}
			return storeError(err)
		}
		updated = &txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the primary record and the date-index copy in one
// atomic commit conditioned on the primary's version. An absent record
// is a no-op.
func (t *Transactions) Delete(ctx context.Context, userID, id string) error {
	if err := t.requireOwner(ctx, userID); err != nil {
		return err
	}
	if err := schema.CheckID("id", id); err != nil {
		return invalidInput(err)
	}
	return t.deleteRecord(ctx, userID, id)
}

func (t *Transactions) deleteRecord(ctx context.Context, userID, id string) error {
	primary, err := keyspace.Derive(keyspace.TransactionPrimary, keyspace.Args{UserID: userID, TransactionID: id})
	if err != nil {
		return storeError(err)
	}
	return withCAS(ctx, t.config.MaxAttempts, func(ctx context.Context) error {
		cur, err := t.engine.Get(ctx, primary)
		if err != nil {
			return storeError(err)
		}
		if cur == nil {
			// Already deleted.
			return nil
		}
		var txn schema.Transaction
		if err := cur.Unmarshal(&txn); err != nil {
			return storeError(err)
		}
		byDate, err := keyspace.Derive(keyspace.TransactionByDate,
			keyspace.Args{UserID: userID, TransactionID: id, Date: txn.Date})
		if err != nil {
			return storeError(err)
		}

		batch := kv.NewBatch().
			Check(primary, cur.Version).
			Delete(primary).
			Delete(byDate)

		if err := t.engine.Commit(ctx, batch); err != nil {
			if errors.Is(err, kv.ErrCheckFailed) {
				return retry.RetryableError(err)
			}
			return storeError(err)
		}
		return nil
	})
}

// Sweep deletes every remaining transaction of an owner without an
// owner-existence check; it serves the cascade after a user delete and
// the stream sweeper. Idempotent. Returns the number of records removed.
func (t *Transactions) Sweep(ctx context.Context, userID string) (int, error) {
	if err := schema.CheckID("user_id", userID); err != nil {
		return 0, invalidInput(err)
	}
	rng, err := keyspace.Prefix(keyspace.TransactionsPrefix, keyspace.Args{UserID: userID})
	if err != nil {
		return 0, storeError(err)
	}
	entries, err := t.engine.List(ctx, rng)
	if err != nil {
		return 0, storeError(err)
	}

	removed := 0
	for i := range entries {
		_, args, ok := keyspace.Classify(entries[i].Key)
		if !ok {
			continue
		}
		if err := t.deleteRecord(ctx, userID, args.TransactionID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
