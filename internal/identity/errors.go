package identity

import (
	"errors"
	"strings"
)

var (
	ErrNotFound             = errors.New("identity not found")
	ErrResetRecordNotFound  = errors.New("password reset record not found")
	ErrDuplicateRequest     = errors.New("password reset mail is already sent")
	ErrPasswordReuse        = errors.New("new password matches the current password")
	ErrEmailTaken           = errors.New("email is already taken")
	ErrEmailNotAllowed      = errors.New("email address is not accepted")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotVerified      = errors.New("identity is not verified")
	ErrUserInactive         = errors.New("identity is not active")
	ErrIncorrectOldPassword = errors.New("old password is incorrect")
	ErrSamePassword         = errors.New("old and new password are identical")
	ErrSessionRevoked       = errors.New("session was revoked")
	ErrUnauthorized         = errors.New("unauthorized")
)

// WeakPasswordError lists every password policy rule the password violates.
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return "weak password: " + strings.Join(e.Reasons, " ")
}

// PasswordExpiredError is returned by Login when the password is older than the grace period.
// ResetToken is a freshly issued ledger token the client redeems to set a new password.
type PasswordExpiredError struct {
	ResetToken string
	GraceDays  int
}

func (e *PasswordExpiredError) Error() string {
	return "password has expired"
}
