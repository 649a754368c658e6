package ledger

import (
	"context"
	"errors"

	"github.com/sethvargo/go-retry"

	"github.com/jacentio/tally/internal/keyspace"
	"github.com/jacentio/tally/kv"
	"github.com/jacentio/tally/schema"
)

// Users is the record store for user accounts. Every mutation keeps the
// primary record and the email-index copy in lockstep inside one atomic
// commit.
type Users struct {
	engine       kv.Engine
	config       Config
	transactions *Transactions
}

// Create validates the input, assigns an identity and commits the
// primary record and the email-index copy together. Both keys must be
// absent; losing either check reports USER_EXISTS and leaves the store
// unchanged.
func (u *Users) Create(ctx context.Context, in schema.UserCreate) (*schema.User, error) {
	if err := schema.Validate(in); err != nil {
		return nil, invalidInput(err)
	}

	user := &schema.User{
		ID:        newID(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	}

	keys, err := keyspace.DeriveBatch(
		[]keyspace.Kind{keyspace.UserPrimary, keyspace.UserByEmail},
		keyspace.Args{UserID: user.ID, Email: user.Email},
	)
	if err != nil {
		return nil, storeError(err)
	}
	primary, byEmail := keys[0], keys[1]

	batch := kv.NewBatch().
		CheckAbsent(primary).
		CheckAbsent(byEmail).
		Set(primary, user).
		Set(byEmail, user)

	if err := u.engine.Commit(ctx, batch); err != nil {
		if errors.Is(err, kv.ErrCheckFailed) {
			return nil, &Error{Code: CodeUserExists, Message: "create user failed: user already exists"}
		}
		return nil, storeError(err)
	}
	return user, nil
}

// GetByID returns the user record, or nil when absent. Absence is a
// valid lookup outcome, not an error.
func (u *Users) GetByID(ctx context.Context, id string) (*schema.User, kv.Version, error) {
	if err := schema.CheckID("id", id); err != nil {
		return nil, "", invalidInput(err)
	}
	key, err := keyspace.Derive(keyspace.UserPrimary, keyspace.Args{UserID: id})
	if err != nil {
		return nil, "", storeError(err)
	}
	return u.getUser(ctx, key)
}

// GetByEmail looks the user up through the email index.
func (u *Users) GetByEmail(ctx context.Context, email string) (*schema.User, kv.Version, error) {
	if err := schema.CheckEmail(email); err != nil {
		return nil, "", invalidInput(err)
	}
	key, err := keyspace.Derive(keyspace.UserByEmail, keyspace.Args{Email: email})
	if err != nil {
		return nil, "", storeError(err)
	}
	return u.getUser(ctx, key)
}

func (u *Users) getUser(ctx context.Context, key kv.Key) (*schema.User, kv.Version, error) {
	entry, err := u.engine.Get(ctx, key)
	if err != nil {
		return nil, "", storeError(err)
	}
	if entry == nil {
		return nil, "", nil
	}
	var user schema.User
	if err := entry.Unmarshal(&user); err != nil {
		return nil, "", storeError(err)
	}
	return &user, entry.Version, nil
}

// Update merges the present fields over the current record and commits
// both copies under both version tokens. The email-index copy is
// rewritten under the record's current email; email itself is not
// updatable through this path. Lost races retry up to the configured
// budget.
func (u *Users) Update(ctx context.Context, in schema.UserUpdate) (*schema.User, error) {
	if err := schema.Validate(in); err != nil {
		return nil, invalidInput(err)
	}

	primary, err := keyspace.Derive(keyspace.UserPrimary, keyspace.Args{UserID: in.ID})
	if err != nil {
		return nil, storeError(err)
	}

	var updated *schema.User
	err = withCAS(ctx, u.config.MaxAttempts, func(ctx context.Context) error {
		cur, err := u.engine.Get(ctx, primary)
		if err != nil {
			return storeError(err)
		}
		if cur == nil {
			return notFound("no user record found for update")
		}
		var user schema.User
		if err := cur.Unmarshal(&user); err != nil {
			return storeError(err)
		}

		byEmail, err := keyspace.Derive(keyspace.UserByEmail, keyspace.Args{Email: user.Email})
		if err != nil {
			return storeError(err)
		}
		idx, err := u.engine.Get(ctx, byEmail)
		if err != nil {
			return storeError(err)
		}
		if idx == nil {
			return notFound("no email index record found for update")
		}

		if in.FirstName != nil {
			user.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			user.LastName = *in.LastName
		}

		batch := kv.NewBatch().
			Check(primary, cur.Version).
			Check(byEmail, idx.Version).
			Set(primary, &user).
			Set(byEmail, &user)

		if err := u.engine.Commit(ctx, batch); err != nil {
			if errors.Is(err, kv.ErrCheckFailed) {
				return retry.RetryableError(err)
			}
			return storeError(err)
		}
		updated = &user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteOptions configures user deletion. The zero value cascades:
// after the user pair is removed, the owner's transactions are swept.
type DeleteOptions struct {
	// OrphanProtect refuses the delete with USER_HAS_TRANSACTIONS while
	// any transaction exists for the user, instead of cascading.
	OrphanProtect bool
}

// Delete removes the primary record and the email-index copy in one
// atomic commit conditioned on the primary's version. An absent user is
// a no-op. The transaction sweep runs after the user pair commits; a
// crash in between is repaired by the stream sweeper.
func (u *Users) Delete(ctx context.Context, id string, opts DeleteOptions) error {
	if err := schema.CheckID("id", id); err != nil {
		return invalidInput(err)
	}
	primary, err := keyspace.Derive(keyspace.UserPrimary, keyspace.Args{UserID: id})
	if err != nil {
		return storeError(err)
	}

	if opts.OrphanProtect {
		rng, err := keyspace.Prefix(keyspace.TransactionsPrefix, keyspace.Args{UserID: id})
		if err != nil {
			return storeError(err)
		}
		rng.Limit = 1
		entries, err := u.engine.List(ctx, rng)
		if err != nil {
			return storeError(err)
		}
		if len(entries) > 0 {
			return &Error{Code: CodeUserHasTransactions, Message: "user still has transactions"}
		}
	}

	deleted := false
	err = withCAS(ctx, u.config.MaxAttempts, func(ctx context.Context) error {
		cur, err := u.engine.Get(ctx, primary)
		if err != nil {
			return storeError(err)
		}
		if cur == nil {
			// Already deleted.
			return nil
		}
		var user schema.User
		if err := cur.Unmarshal(&user); err != nil {
			return storeError(err)
		}
		byEmail, err := keyspace.Derive(keyspace.UserByEmail, keyspace.Args{Email: user.Email})
		if err != nil {
			return storeError(err)
		}

		batch := kv.NewBatch().
			Check(primary, cur.Version).
			Delete(primary).
			Delete(byEmail)

		if err := u.engine.Commit(ctx, batch); err != nil {
			if errors.Is(err, kv.ErrCheckFailed) {
				return retry.RetryableError(err)
			}
			return storeError(err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return err
	}

	if deleted && !opts.OrphanProtect {
		if _, err := u.transactions.Sweep(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
