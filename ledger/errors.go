package ledger

import (
	"errors"
	"fmt"

	"github.com/jacentio/tally/schema"
)

// Code is the closed enumeration of operation failure kinds. Callers
// match on it instead of inspecting loose payloads.
type Code string

const (
	// CodeInvalidInput: input failed schema validation; never retried.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeRecordNotFound: a record the operation requires (the owner,
	// or the target of a user update) does not exist.
	CodeRecordNotFound Code = "RECORD_NOT_FOUND"

	// CodeUserExists: a user create lost its uniqueness check, either
	// on id or on email.
	CodeUserExists Code = "USER_EXISTS"

	// CodeTransactionCreate: a transaction create lost its primary-key
	// absence check.
	CodeTransactionCreate Code = "TRANSACTION_CREATE_ERROR"

	// CodeMergeInvalid: a partial update merged into an invalid record
	// and was rejected instead of committed.
	CodeMergeInvalid Code = "MERGE_INVALID"

	// CodeContentionExceeded: a CAS loop exhausted its attempt budget
	// under sustained concurrent writes.
	CodeContentionExceeded Code = "CONTENTION_EXCEEDED"

	// CodeUserHasTransactions: an orphan-protected user delete was
	// refused while transactions exist.
	CodeUserHasTransactions Code = "USER_HAS_TRANSACTIONS"

	// CodeStore: the engine failed in a way that is none of the above.
	CodeStore Code = "STORE_ERROR"
)

// Error is the failure variant every operation returns. Fields is
// populated for CodeInvalidInput and CodeMergeInvalid.
type Error struct {
	Code    Code
	Message string
	Fields  []schema.FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ledger: %s", e.Code)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// invalidInput wraps a schema validation failure.
func invalidInput(err error) *Error {
	out := &Error{Code: CodeInvalidInput, Message: "invalid input", cause: err}
	var serr *schema.Error
	if errors.As(err, &serr) {
		out.Fields = serr.Fields
	}
	return out
}

// mergeInvalid wraps a validation failure of a merged record.
func mergeInvalid(err error) *Error {
	out := &Error{Code: CodeMergeInvalid, Message: "merged record is invalid", cause: err}
	var serr *schema.Error
	if errors.As(err, &serr) {
		out.Fields = serr.Fields
	}
	return out
}

func notFound(format string, args ...any) *Error {
	return &Error{Code: CodeRecordNotFound, Message: fmt.Sprintf(format, args...)}
}

func storeError(err error) *Error {
	return &Error{Code: CodeStore, Message: err.Error(), cause: err}
}
