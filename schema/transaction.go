package schema

import "github.com/shopspring/decimal"

// Transaction is a dated record scoped to exactly one user. The amount
// is a signed decimal: negative for outflow, positive for inflow. The
// record is mirrored into the owner's date index keyed by
// (user, date, id).
type Transaction struct {
	ID       string          `json:"id" validate:"required,ulid"`
	UserID   string          `json:"user_id" validate:"required,ulid"`
	Date     string          `json:"date" validate:"required,isodate"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,currency"`
	Comment  string          `json:"comment,omitempty"`
}

// TransactionCreate is the input for creating a transaction under an
// owner; identity and owner come from the store and the call.
type TransactionCreate struct {
	Date     string          `json:"date" validate:"required,isodate"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,currency"`
	Comment  string          `json:"comment,omitempty"`
}

// TransactionUpdate is a partial update keyed by id; nil fields are left
// untouched.
type TransactionUpdate struct {
	ID       string           `json:"id" validate:"required,ulid"`
	Date     *string          `json:"date,omitempty" validate:"omitempty,isodate"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency *string          `json:"currency,omitempty" validate:"omitempty,currency"`
	Comment  *string          `json:"comment,omitempty"`
}
