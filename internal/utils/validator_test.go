package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sanitizeTarget struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" sanitize:"-"`
	Count    int    `json:"count"`
}

func TestSanitizeData(t *testing.T) {
	payload := &sanitizeTarget{
		Name:     "  <script>alert(1)</script>Ada ",
		Email:    "ada@example.com",
		Password: "<Secret>!1",
		Count:    3,
	}

	require.NoError(t, GetValidator().SanitizeData(payload))
	assert.Equal(t, "Ada", payload.Name)
	assert.Equal(t, "ada@example.com", payload.Email)
	assert.Equal(t, "<Secret>!1", payload.Password, "opted out fields keep their value")
	assert.Equal(t, 3, payload.Count)
}

func TestSanitizeDataRejectsNonStructs(t *testing.T) {
	assert.Error(t, GetValidator().SanitizeData("text"))
	assert.Error(t, GetValidator().SanitizeData(sanitizeTarget{}))
}

func TestValidateStruct(t *testing.T) {
	v := GetValidator()

	assert.NoError(t, v.Validate.Struct(&sanitizeTarget{Name: "Ada", Email: "ada@example.com"}))
	assert.Error(t, v.Validate.Struct(&sanitizeTarget{Name: "Ada", Email: "test@example@.com"}))
	assert.Error(t, v.Validate.Struct(&sanitizeTarget{Email: "ada@example.com"}))
}

func TestVerifyEmailRegex(t *testing.T) {
	v, err := NewValidator("regex")
	require.NoError(t, err)

	assert.True(t, v.VerifyEmail("ada@example.com"))
	assert.False(t, v.VerifyEmail("not-an-email"))
}
