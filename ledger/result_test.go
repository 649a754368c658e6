package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacentio/tally/schema"
)

func TestSuccessEnvelope(t *testing.T) {
	user := &schema.User{ID: newID(), FirstName: "Ada", LastName: "Lovelace", Email: "a@b.com"}
	res := Success(user, "17")
	require.True(t, res.OK)
	require.Equal(t, user, res.Value)
	require.Empty(t, res.Code)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"code"`, "failure fields stay absent on success")
}

func TestSuccessEnvelope_EmptyLookup(t *testing.T) {
	res := Success(nil, "")
	require.True(t, res.OK)
	require.Nil(t, res.Value)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestFailureEnvelope(t *testing.T) {
	err := invalidInput(&schema.Error{Fields: []schema.FieldError{
		{Field: "email", Message: "must be a valid email address"},
	}})
	res := Failure(err)
	require.False(t, res.OK)
	require.Equal(t, CodeInvalidInput, res.Code)
	require.Len(t, res.Details, 1)
	require.Equal(t, "email", res.Details[0].Field)
}

func TestFailureEnvelope_UnknownError(t *testing.T) {
	res := Failure(errors.New("connection reset"))
	require.False(t, res.OK)
	require.Equal(t, CodeStore, res.Code)
	require.Equal(t, "connection reset", res.Message)
}

func TestCapture(t *testing.T) {
	res := Capture("value", "3", nil)
	require.True(t, res.OK)

	res = Capture(nil, "", notFound("no user found for id %s", "x"))
	require.False(t, res.OK)
	require.Equal(t, CodeRecordNotFound, res.Code)
	require.Contains(t, res.Message, "x")
}

func TestErrorUnwrap(t *testing.T) {
	cause := &schema.Error{Fields: []schema.FieldError{{Field: "date", Message: "bad"}}}
	err := invalidInput(cause)

	var serr *schema.Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, cause, serr)
	require.Contains(t, err.Error(), "INVALID_INPUT")
}
