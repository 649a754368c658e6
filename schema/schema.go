// Package schema validates untrusted input before it is persisted or
// used to derive keys. Schemas are closed: the strict decoders reject
// unknown fields, and every failure is returned as a structured error,
// never panicked.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

// FieldError names one failing field with a human-readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error aggregates field-level validation failures.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return "schema: invalid input: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names, not Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return ValidDate(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return money.GetCurrency(fl.Field().String()) != nil
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidID reports whether s is a well-formed identity token: 26
// characters, Crockford base32, time-ordered.
func ValidID(s string) bool {
	if len(s) != ulid.EncodedSize {
		return false
	}
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// ValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	if len(s) != len("2006-01-02") {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// CheckID validates an identity passed alone (path or argument input).
func CheckID(field, id string) error {
	if !ValidID(id) {
		return &Error{Fields: []FieldError{{Field: field, Message: "must be a 26-character sortable id"}}}
	}
	return nil
}

// CheckEmail validates an email passed alone.
func CheckEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return &Error{Fields: []FieldError{{Field: "email", Message: "must be a valid email address"}}}
	}
	return nil
}

// CheckDate validates a calendar date passed alone.
func CheckDate(field, date string) error {
	if !ValidDate(date) {
		return &Error{Fields: []FieldError{{Field: field, Message: "must be a calendar date in YYYY-MM-DD form"}}}
	}
	return nil
}

// Validate checks a schema value and returns a field-keyed *Error on
// failure.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: a programming error, not bad input.
		return &Error{Fields: []FieldError{{Field: "input", Message: err.Error()}}}
	}

	out := &Error{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "ulid":
		return "must be a 26-character sortable id"
	case "isodate":
		return "must be a calendar date in YYYY-MM-DD form"
	case "currency":
		return "must be an ISO-4217 currency code"
	case "min":
		return "must not be empty"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// DecodeStrict decodes a single JSON value into out, rejecting unknown
// fields and trailing data. This is where schema closedness is enforced
// for callers that accept raw JSON.
func DecodeStrict(r io.Reader, out any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return &Error{Fields: []FieldError{{Field: "body", Message: err.Error()}}}
	}
	if dec.More() {
		return &Error{Fields: []FieldError{{Field: "body", Message: "trailing data after JSON value"}}}
	}
	return nil
}
