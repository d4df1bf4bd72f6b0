package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/teachkit/internal/model"
)

func TestValidateRegisterOrder(t *testing.T) {
	tests := []struct {
		name   string
		fields RegisterFields
		want   error
	}{
		{
			name:   "missing field wins over everything",
			fields: RegisterFields{Username: "x", Email: "bad", Password: "a", PasswordConfirm: ""},
			want:   model.ErrRegisterFieldsRequired,
		},
		{
			name:   "mismatch before length",
			fields: RegisterFields{Username: "x", Email: "bad", Password: "a", PasswordConfirm: "b"},
			want:   model.ErrPasswordMismatch,
		},
		{
			name:   "seven characters is too short",
			fields: RegisterFields{Username: "x", Email: "bad", Password: "abc1234", PasswordConfirm: "abc1234"},
			want:   model.ErrPasswordTooShort,
		},
		{
			name:   "username length before email",
			fields: RegisterFields{Username: "xy", Email: "bad", Password: "abc12345", PasswordConfirm: "abc12345"},
			want:   model.ErrUsernameTooShort,
		},
		{
			name:   "email pattern",
			fields: RegisterFields{Username: "xyz", Email: "a@b", Password: "abc12345", PasswordConfirm: "abc12345"},
			want:   model.ErrInvalidEmail,
		},
		{
			name:   "valid",
			fields: RegisterFields{Username: "xyz", Email: "a@b.de", Password: "abc12345", PasswordConfirm: "abc12345"},
			want:   nil,
		},
		{
			name:   "lengths count characters not bytes",
			fields: RegisterFields{Username: "äöü", Email: "ü@b.de", Password: "äöüäöüäö", PasswordConfirm: "äöüäöüäö"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRegister(tt.fields)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.ErrorIs(t, validateLogin("", "pw"), model.ErrLoginFieldsRequired)
	assert.ErrorIs(t, validateLogin("  ", "pw"), model.ErrLoginFieldsRequired)
	assert.ErrorIs(t, validateLogin("alice", ""), model.ErrLoginFieldsRequired)
	assert.NoError(t, validateLogin("alice", "pw"))
}

func TestValidateCode(t *testing.T) {
	assert.NoError(t, validateCode("123456"))
	assert.NoError(t, validateCode(" 123456 "))
	assert.ErrorIs(t, validateCode("12345"), model.ErrCodeLength)
}
