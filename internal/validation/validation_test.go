package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		errMsg   string
		wantErr  bool
	}{
		{
			name:     "valid username",
			username: "alice",
			password: "secret",
		},
		{
			name:     "valid email",
			username: "alice@example.com",
			password: "secret",
		},
		{
			name:     "invalid - empty username",
			username: "",
			password: "secret",
			wantErr:  true,
			errMsg:   "username cannot be empty",
		},
		{
			name:     "invalid - whitespace username",
			username: "   ",
			password: "secret",
			wantErr:  true,
			errMsg:   "username cannot be empty",
		},
		{
			name:     "invalid - too long",
			username: strings.Repeat("a", MaxUsernameLen+1),
			password: "secret",
			wantErr:  true,
			errMsg:   "must not exceed",
		},
		{
			name:     "invalid - empty password",
			username: "alice",
			password: "\t",
			wantErr:  true,
			errMsg:   "password cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCredentials(tt.username, tt.password)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNormalizeCVEID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "canonical", input: "CVE-2024-3094", want: "CVE-2024-3094"},
		{name: "lowercase and spaces", input: "  cve-2021-44228 ", want: "CVE-2021-44228"},
		{name: "five digit number", input: "CVE-2023-12345", want: "CVE-2023-12345"},
		{name: "empty", input: "", wantErr: true},
		{name: "short number", input: "CVE-2024-12", wantErr: true},
		{name: "garbage", input: "log4shell", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCVEID(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
