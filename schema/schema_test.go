package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

func newID() string {
	return ulid.Make().String()
}

func fieldFor(t *testing.T, err error, field string) *FieldError {
	t.Helper()
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected *schema.Error, got %v", err)
	}
	for i := range serr.Fields {
		if serr.Fields[i].Field == field {
			return &serr.Fields[i]
		}
	}
	t.Fatalf("expected a failure for field %q, got %v", field, serr.Fields)
	return nil
}

func TestValidID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"generated id", newID(), true},
		{"empty", "", false},
		{"too short", "01J3ZWX5T9", false},
		{"bad alphabet", strings.Repeat("U", 26), false},
		{"uuid shaped", "b4f9c2a0-1d2e-4f3a-9b8c-7d6e5f4a3b2c", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidID(tt.id); got != tt.want {
				t.Errorf("ValidID(%q) = %v, expected %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		want bool
	}{
		{"plain date", "2025-01-31", true},
		{"leap day", "2024-02-29", true},
		{"not a leap day", "2025-02-29", false},
		{"month overflow", "2025-13-01", false},
		{"day overflow", "2025-01-32", false},
		{"wrong layout", "01/31/2025", false},
		{"missing zero padding", "2025-1-3", false},
		{"timestamp", "2025-01-31T00:00:00Z", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidDate(tt.date); got != tt.want {
				t.Errorf("ValidDate(%q) = %v, expected %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestCheckHelpers(t *testing.T) {
	if err := CheckID("user_id", newID()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := CheckID("user_id", "nope")
	fe := fieldFor(t, err, "user_id")
	if fe.Message == "" {
		t.Error("expected a message")
	}

	if err := CheckEmail("a@b.com"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	fieldFor(t, CheckEmail("not-an-email"), "email")
	fieldFor(t, CheckEmail(""), "email")

	if err := CheckDate("start", "2025-01-01"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	fieldFor(t, CheckDate("start", "jan 1"), "start")
}

func TestValidate_UserCreate(t *testing.T) {
	ok := UserCreate{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	if err := Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		in    UserCreate
		field string
	}{
		{"missing first name", UserCreate{LastName: "L", Email: "a@b.com"}, "first_name"},
		{"missing last name", UserCreate{FirstName: "A", Email: "a@b.com"}, "last_name"},
		{"missing email", UserCreate{FirstName: "A", LastName: "L"}, "email"},
		{"bad email", UserCreate{FirstName: "A", LastName: "L", Email: "nope"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fieldFor(t, Validate(tt.in), tt.field)
		})
	}
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(UserCreate{FirstName: "A", LastName: "L"})
	fe := fieldFor(t, err, "email")
	if fe.Message != "is required" {
		t.Errorf("unexpected message: %q", fe.Message)
	}
}

func TestValidate_UserUpdate(t *testing.T) {
	first := "Ada"
	empty := ""

	if err := Validate(UserUpdate{ID: newID()}); err != nil {
		t.Errorf("update with no fields must validate: %v", err)
	}
	if err := Validate(UserUpdate{ID: newID(), FirstName: &first}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	fieldFor(t, Validate(UserUpdate{FirstName: &first}), "id")
	fieldFor(t, Validate(UserUpdate{ID: "nope", FirstName: &first}), "id")
	fieldFor(t, Validate(UserUpdate{ID: newID(), FirstName: &empty}), "first_name")
}

func TestValidate_Transaction(t *testing.T) {
	ok := Transaction{
		ID:       newID(),
		UserID:   newID(),
		Date:     "2025-01-01",
		Amount:   decimal.NewFromInt(-42),
		Currency: "USD",
		Comment:  "groceries",
	}
	if err := Validate(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := ok
	bad.Currency = "DOLLARS"
	fe := fieldFor(t, Validate(bad), "currency")
	if fe.Message != "must be an ISO-4217 currency code" {
		t.Errorf("unexpected message: %q", fe.Message)
	}

	bad = ok
	bad.Date = "2025-02-30"
	fieldFor(t, Validate(bad), "date")

	bad = ok
	bad.UserID = ""
	fieldFor(t, Validate(bad), "user_id")
}

func TestValidate_TransactionCreate(t *testing.T) {
	ok := TransactionCreate{Date: "2025-01-01", Currency: "EUR"}
	if err := Validate(ok); err != nil {
		t.Fatalf("zero amount must validate: %v", err)
	}
	fieldFor(t, Validate(TransactionCreate{Currency: "EUR"}), "date")
	fieldFor(t, Validate(TransactionCreate{Date: "2025-01-01"}), "currency")
}

func TestValidate_TransactionUpdate(t *testing.T) {
	date := "2025-03-04"
	badDate := "soon"
	currency := "GBP"
	badCurrency := "POUNDS"

	if err := Validate(TransactionUpdate{ID: newID()}); err != nil {
		t.Errorf("update with no fields must validate: %v", err)
	}
	if err := Validate(TransactionUpdate{ID: newID(), Date: &date, Currency: &currency}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	fieldFor(t, Validate(TransactionUpdate{ID: newID(), Date: &badDate}), "date")
	fieldFor(t, Validate(TransactionUpdate{ID: newID(), Currency: &badCurrency}), "currency")
}

func TestValidate_CollectsEveryFailingField(t *testing.T) {
	err := Validate(UserCreate{})
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected *schema.Error, got %v", err)
	}
	if len(serr.Fields) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(serr.Fields), serr.Fields)
	}
	if !strings.Contains(serr.Error(), "first_name") {
		t.Errorf("expected message to name the fields: %q", serr.Error())
	}
}

func TestDecodeStrict(t *testing.T) {
	var in UserCreate
	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`
	if err := DecodeStrict(strings.NewReader(body), &in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Email != "ada@example.com" {
		t.Errorf("unexpected decode: %+v", in)
	}
}

func TestDecodeStrict_RejectsUnknownFields(t *testing.T) {
	var in UserCreate
	body := `{"first_name":"Ada","last_name":"Lovelace","email":"a@b.com","role":"admin"}`
	fieldFor(t, DecodeStrict(strings.NewReader(body), &in), "body")
}

func TestDecodeStrict_RejectsTrailingData(t *testing.T) {
	var in UserCreate
	body := `{"first_name":"Ada","last_name":"Lovelace","email":"a@b.com"}{"extra":true}`
	fieldFor(t, DecodeStrict(strings.NewReader(body), &in), "body")
}

func TestDecodeStrict_RejectsGarbage(t *testing.T) {
	var in UserCreate
	fieldFor(t, DecodeStrict(strings.NewReader("not json"), &in), "body")
}
