package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator_JSONNames(t *testing.T) {
	type request struct {
		ClientID string `json:"client_id,omitempty" validate:"required"`
		Internal string `json:"-" validate:"required"`
		Plain    string `validate:"required"`
	}

	err := NewValidator().Struct(request{})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 3)
	assert.Equal(t, "client_id", verrs[0].Field())
	assert.Equal(t, "Internal", verrs[1].Field())
	assert.Equal(t, "Plain", verrs[2].Field())
}
