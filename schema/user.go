package schema

// User is the authoritative account record. The id is server-assigned
// and immutable; email is unique across all users and mirrored into the
// email index.
type User struct {
	ID        string `json:"id" validate:"required,ulid"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// UserCreate is the input for creating a user; the identity is assigned
// by the store.
type UserCreate struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// UserUpdate is a partial update keyed by id. Nil fields are left
// untouched. Email is deliberately absent: it is not updatable through
// the record store.
type UserUpdate struct {
	ID        string  `json:"id" validate:"required,ulid"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1"`
}
