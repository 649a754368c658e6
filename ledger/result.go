package ledger

import (
	"errors"

	"github.com/jacentio/tally/kv"
	"github.com/jacentio/tally/schema"
)

// Result is the uniform envelope outer layers serialize: exactly one of
// the success fields or the failure fields is populated.
type Result struct {
	OK      bool               `json:"ok"`
	Value   any                `json:"value,omitempty"`
	Version kv.Version         `json:"version,omitempty"`
	Code    Code               `json:"code,omitempty"`
	Message string             `json:"message,omitempty"`
	Details []schema.FieldError `json:"details,omitempty"`
}

// Success builds a success envelope. Value may be nil for lookups that
// found nothing and for no-op deletes.
func Success(value any, version kv.Version) Result {
	return Result{OK: true, Value: value, Version: version}
}

// Failure builds a failure envelope from an operation error.
func Failure(err error) Result {
	var lerr *Error
	if errors.As(err, &lerr) {
		return Result{
			OK:      false,
			Code:    lerr.Code,
			Message: lerr.Message,
			Details: lerr.Fields,
		}
	}
	return Result{OK: false, Code: CodeStore, Message: err.Error()}
}

// Capture folds an operation outcome into an envelope.
func Capture(value any, version kv.Version, err error) Result {
	if err != nil {
		return Failure(err)
	}
	return Success(value, version)
}
