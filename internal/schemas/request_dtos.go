// Package schemas defines the request structures for various operations in the application.
package schemas

// RegistrationRequest is a struct that represents a registration request
// Email is required and must be a valid email
// Password is required and checked against the password policy
type RegistrationRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,max=128" sanitize:"-"`
	FirstName string `json:"firstName" validate:"required,max=150"`
	LastName  string `json:"lastName" validate:"max=150"`
}

// LoginRequest is a struct that represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required" sanitize:"-"`
}

// RefreshTokenRequest is a struct that represents a RefreshToken request
// RefreshToken is required and must be a valid refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required" sanitize:"-"`
}

// TokenRequest carries a token from a mail link
type TokenRequest struct {
	Token string `json:"token" validate:"required,max=10000" sanitize:"-"`
}

// EmailRequest is used for forgotten passwords and resending verification mails
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// CompletePasswordResetRequest completes a forgotten password flow
type CompletePasswordResetRequest struct {
	Token    string `json:"token" validate:"required,max=10000" sanitize:"-"`
	Password string `json:"password" validate:"required,max=128" sanitize:"-"`
}

// ChangePasswordRequest is a struct that represents a PasswordChange request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required" sanitize:"-"`
	NewPassword string `json:"newPassword" validate:"required,max=128" sanitize:"-"`
}

// EmailChangeRequest starts an email change, confirmed with the current password
type EmailChangeRequest struct {
	Password string `json:"password" validate:"required" sanitize:"-"`
	Email    string `json:"email" validate:"required,email,max=254"`
}

// UpdateProfileRequest replaces the names of the authenticated user
type UpdateProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,max=150"`
	LastName  string `json:"lastName" validate:"max=150"`
}
