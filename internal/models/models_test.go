package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patric-chuzhbe/authsrv/internal/password"
)

func TestCredentialsRequestValidate(t *testing.T) {
	type tTestCase struct {
		name        string
		request     CredentialsRequest
		expectedErr error
	}
	testCases := []tTestCase{
		{name: "valid", request: CredentialsRequest{Username: "alice", Password: "pw1"}},
		{name: "max_length_password", request: CredentialsRequest{Username: "alice", Password: strings.Repeat("p", password.MaxLength)}},
		{name: "max_length_username", request: CredentialsRequest{Username: strings.Repeat("u", MaxUsernameLength), Password: "pw1"}},
		{name: "multibyte_username_counts_characters", request: CredentialsRequest{Username: strings.Repeat("ü", MaxUsernameLength), Password: "pw1"}},
		{name: "too_long_username", request: CredentialsRequest{Username: strings.Repeat("u", MaxUsernameLength+1), Password: "pw1"}, expectedErr: ErrUsernameTooLong},
		{name: "missing_username", request: CredentialsRequest{Password: "pw1"}, expectedErr: ErrInvalidCredentials},
		{name: "missing_password", request: CredentialsRequest{Username: "alice"}, expectedErr: ErrInvalidCredentials},
		{name: "too_long_password", request: CredentialsRequest{Username: "alice", Password: strings.Repeat("p", password.MaxLength+1)}, expectedErr: ErrPasswordTooLong},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := testCase.request.Validate()
			if testCase.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, testCase.expectedErr)
		})
	}
}
