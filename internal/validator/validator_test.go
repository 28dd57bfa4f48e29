package validator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorKeepsFirstError(t *testing.T) {
	v := New()
	v.Check(false, "email", "Email is required")
	v.Check(false, "email", "Email is invalid")
	v.Check(true, "password", "never recorded")

	assert.False(t, v.Valid())
	assert.Equal(t, map[string]string{"email": "Email is required"}, v.Errors)
}

func TestErrIsNilWhenValid(t *testing.T) {
	assert.NoError(t, New().Err())
}

func TestErrorMessageSortedAndWrappable(t *testing.T) {
	v := New()
	v.AddError("zip", "required")
	v.AddError("city", "required")

	err := fmt.Errorf("checkout: %w", v.Err())
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "checkout: validation failed: city: required; zip: required", err.Error())
}

func TestEmailRX(t *testing.T) {
	assert.True(t, Matches("reader@example.com", EmailRX))
	assert.False(t, Matches("reader@example", EmailRX))
	assert.False(t, Matches("no at sign.com", EmailRX))
}
