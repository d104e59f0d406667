package auth_test

import (
	"errors"
	"testing"

	auth "github.com/avelhart/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationCreatePayloadValidate(t *testing.T) {
	valid := auth.RegistrationCreatePayload{
		Name:            "Pat Example",
		Email:           "pat@example.com",
		Password:        "password123",
		ConfirmPassword: "password123",
	}
	assert.NoError(t, valid.Validate())

	t.Run("Short password", func(t *testing.T) {
		payload := valid
		payload.Password = "short"
		payload.ConfirmPassword = "short"
		assert.Error(t, payload.Validate())
	})

	t.Run("Mismatched confirmation", func(t *testing.T) {
		payload := valid
		payload.ConfirmPassword = "password456"
		err := payload.Validate()
		require.Error(t, err)

		fields := auth.FormatValidationErrorToMap(err)
		assert.Contains(t, fields, "confirm_password")
	})

	t.Run("Invalid email", func(t *testing.T) {
		payload := valid
		payload.Email = "not-an-email"
		assert.Error(t, payload.Validate())
	})
}

func TestLoginRequestValidate(t *testing.T) {
	valid := auth.LoginRequest{Email: "pat@example.com", Password: "password123"}
	assert.NoError(t, valid.Validate())

	assert.Error(t, auth.LoginRequest{Email: "pat@example.com"}.Validate())
	assert.Error(t, auth.LoginRequest{Password: "password123"}.Validate())
}

func TestRefreshRequestValidate(t *testing.T) {
	assert.NoError(t, auth.RefreshRequest{RefreshToken: "some-token"}.Validate())
	assert.Error(t, auth.RefreshRequest{}.Validate())
}

func TestValidateStringEquals(t *testing.T) {
	rule := auth.ValidateStringEquals("expected")
	assert.NoError(t, rule("expected"))
	assert.Error(t, rule("other"))
	assert.Error(t, rule(42))
}

func TestFormatValidationErrorToMap(t *testing.T) {
	fields := auth.FormatValidationErrorToMap(errors.New("plain failure"))
	assert.Equal(t, map[string]any{"error": "plain failure"}, fields)
}
