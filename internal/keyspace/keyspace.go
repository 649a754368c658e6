// Package keyspace derives composite keys for every entity/index
// combination. All functions are pure; missing arguments are reported,
// never defaulted.
package keyspace

import (
	"fmt"
	"strings"

	"github.com/jacentio/tally/kv"
)

// Kind names an (entity, index) key shape.
type Kind int

const (
	UserPrimary Kind = iota
	UserByEmail
	TransactionPrimary
	TransactionByDate
	TransactionsPrefix
	TransactionsByDatePrefix
)

func (k Kind) String() string {
	switch k {
	case UserPrimary:
		return "UserPrimary"
	case UserByEmail:
		return "UserByEmail"
	case TransactionPrimary:
		return "TransactionPrimary"
	case TransactionByDate:
		return "TransactionByDate"
	case TransactionsPrefix:
		return "TransactionsPrefix"
	case TransactionsByDatePrefix:
		return "TransactionsByDatePrefix"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Args carries the semantic arguments a kind may need. Unused fields are
// ignored; absent required fields are errors.
type Args struct {
	UserID        string
	TransactionID string
	Email         string
	Date          string
}

const (
	userSeg    = "user#"
	emailSeg   = "email#"
	profileSK  = "profile"
	txnSeg     = "txn#"
	txnDateSeg = "txndate#"
)

// The owner id leads every transaction key so owner and owner+date scans
// are contiguous; ISO dates and ULIDs keep key order chronological.

// Derive returns the exact key for an addressable kind.
func Derive(kind Kind, args Args) (kv.Key, error) {
	switch kind {
	case UserPrimary:
		if args.UserID == "" {
			return kv.Key{}, fmt.Errorf("keyspace: %s requires a user id", kind)
		}
		return kv.Key{PK: userSeg + args.UserID, SK: profileSK}, nil

	case UserByEmail:
		if args.Email == "" {
			return kv.Key{}, fmt.Errorf("keyspace: %s requires an email", kind)
		}
		return kv.Key{PK: emailSeg + args.Email, SK: profileSK}, nil

	case TransactionPrimary:
		if args.UserID == "" || args.TransactionID == "" {
			return kv.Key{}, fmt.Errorf("keyspace: %s requires a user id and a transaction id", kind)
		}
		return kv.Key{PK: userSeg + args.UserID, SK: txnSeg + args.TransactionID}, nil

	case TransactionByDate:
		if args.UserID == "" || args.TransactionID == "" || args.Date == "" {
			return kv.Key{}, fmt.Errorf("keyspace: %s requires a user id, a date and a transaction id", kind)
		}
		return kv.Key{
			PK: userSeg + args.UserID,
			SK: txnDateSeg + args.Date + "#" + args.TransactionID,
		}, nil

	default:
		return kv.Key{}, fmt.Errorf("keyspace: %s is not an addressable kind", kind)
	}
}

// DeriveBatch returns one key per kind, in kind order, from a single
// argument set. One validation pass covers an entire atomic commit.
func DeriveBatch(kinds []Kind, args Args) ([]kv.Key, error) {
	keys := make([]kv.Key, 0, len(kinds))
	for _, kind := range kinds {
		key, err := Derive(kind, args)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Prefix returns the scan range for a prefix kind.
func Prefix(kind Kind, args Args) (kv.Range, error) {
	if args.UserID == "" {
		return kv.Range{}, fmt.Errorf("keyspace: %s requires a user id", kind)
	}
	switch kind {
	case TransactionsPrefix:
		return kv.Range{PK: userSeg + args.UserID, Prefix: txnSeg}, nil
	case TransactionsByDatePrefix:
		if args.Date == "" {
			return kv.Range{}, fmt.Errorf("keyspace: %s requires a date", kind)
		}
		return kv.Range{
			PK:     userSeg + args.UserID,
			Prefix: txnDateSeg + args.Date + "#",
		}, nil
	default:
		return kv.Range{}, fmt.Errorf("keyspace: %s is not a prefix kind", kind)
	}
}

// DateRange returns the scan range over the date index covering
// [start, end). The boundaries end in the segment separator, which no
// stored sort key can equal, so the range stays half-open on both
// engines.
func DateRange(userID, start, end string) (kv.Range, error) {
	if userID == "" {
		return kv.Range{}, fmt.Errorf("keyspace: date range requires a user id")
	}
	if start == "" || end == "" {
		return kv.Range{}, fmt.Errorf("keyspace: date range requires a start and an end date")
	}
	return kv.Range{
		PK: userSeg + userID,
		Lo: txnDateSeg + start + "#",
		Hi: txnDateSeg + end + "#",
	}, nil
}

// Classify is the inverse mapping: given a stored key, it reports which
// kind produced it and the arguments that were encoded. Returns false
// for keys outside the keyspace.
func Classify(key kv.Key) (Kind, Args, bool) {
	switch {
	case strings.HasPrefix(key.PK, emailSeg):
		if key.SK != profileSK {
			return 0, Args{}, false
		}
		return UserByEmail, Args{Email: strings.TrimPrefix(key.PK, emailSeg)}, true

	case strings.HasPrefix(key.PK, userSeg):
		userID := strings.TrimPrefix(key.PK, userSeg)
		switch {
		case key.SK == profileSK:
			return UserPrimary, Args{UserID: userID}, true
		case strings.HasPrefix(key.SK, txnDateSeg):
			rest := strings.TrimPrefix(key.SK, txnDateSeg)
			date, id, ok := strings.Cut(rest, "#")
			if !ok {
				return 0, Args{}, false
			}
			return TransactionByDate, Args{UserID: userID, Date: date, TransactionID: id}, true
		case strings.HasPrefix(key.SK, txnSeg):
			return TransactionPrimary, Args{
				UserID:        userID,
				TransactionID: strings.TrimPrefix(key.SK, txnSeg),
			}, true
		}
	}
	return 0, Args{}, false
}
