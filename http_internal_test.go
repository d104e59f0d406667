package auth

import (
	"net/http"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		name string
		err  *errors.Error
		want int
	}{
		{"auth maps to 401", ErrInvalidCredentials, http.StatusUnauthorized},
		{"revoked session maps to 401", ErrSessionRevoked, http.StatusUnauthorized},
		{"authz maps to 403", ErrAccountInactive, http.StatusForbidden},
		{"not found maps to 404", ErrIdentityNotFound, http.StatusNotFound},
		{"conflict maps to 409", ErrEmailTaken, http.StatusConflict},
		{"bad input maps to 400", ErrNoEmptyString, http.StatusBadRequest},
		{"store outage maps to 503", ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"plain operation maps to 500", errors.New("boom", errors.CategoryOperation), http.StatusInternalServerError},
		{"internal maps to 500", errors.New("boom", errors.CategoryInternal), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusForError(tc.err))
		})
	}
}
