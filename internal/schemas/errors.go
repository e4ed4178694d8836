package schemas

// CustomError is the error body returned to clients.
type CustomError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// WithDetails returns a copy of the error carrying itemized details.
func (e *CustomError) WithDetails(details []string) *CustomError {
	return &CustomError{Code: e.Code, Message: e.Message, Details: details}
}

var (
	BadRequest = &CustomError{
		Code:    "ERR-001",
		Message: "The request body is invalid. Please check the request body and try again.",
	}
	EmailTaken = &CustomError{
		Code:    "ERR-002",
		Message: "The email is already taken. Please try another email.",
	}
	InvalidToken = &CustomError{
		Code:    "ERR-003",
		Message: "The token is invalid or has expired. Please request a new one.",
	}
	UserNotFound = &CustomError{
		Code:    "ERR-004",
		Message: "The user was not found. Please check the email and try again.",
	}
	ResetRecordNotFound = &CustomError{
		Code:    "ERR-005",
		Message: "Invalid token. The password reset record doesn't exist.",
	}
	DuplicateRequest = &CustomError{
		Code:    "ERR-006",
		Message: "Password reset mail is already sent.",
	}
	PasswordReuse = &CustomError{
		Code:    "ERR-007",
		Message: "Similar password as current password. Please enter a new password.",
	}
	WeakPassword = &CustomError{
		Code:    "ERR-008",
		Message: "The password does not satisfy the password policy.",
	}
	InvalidCredentials = &CustomError{
		Code:    "ERR-009",
		Message: "Credentials (email or password) are incorrect, please contact support.",
	}
	UserNotVerified = &CustomError{
		Code:    "ERR-010",
		Message: "The user is not yet verified. Please check your mails.",
	}
	UserInactive = &CustomError{
		Code:    "ERR-011",
		Message: "The user is not active, please contact support.",
	}
	IncorrectOldPassword = &CustomError{
		Code:    "ERR-012",
		Message: "The old password field is incorrect.",
	}
	SamePassword = &CustomError{
		Code:    "ERR-013",
		Message: "Old password and new password must be different.",
	}
	Unauthorized = &CustomError{
		Code:    "ERR-014",
		Message: "The request is unauthorized. Please login to your account.",
	}
	TokenExpired = &CustomError{
		Code:    "ERR-015",
		Message: "The token is expired. Please request a new one.",
	}
	InvalidSignature = &CustomError{
		Code:    "ERR-016",
		Message: "The token signature is invalid.",
	}
	PasswordExpired = &CustomError{
		Code:    "ERR-017",
		Message: "The password has expired and must be changed.",
	}
	EmailNotAllowed = &CustomError{
		Code:    "ERR-018",
		Message: "The email address or its provider is not accepted.",
	}
	SessionRevoked = &CustomError{
		Code:    "ERR-019",
		Message: "The session was signed out. Please login again.",
	}
	DatabaseError = &CustomError{
		Code:    "ERR-500",
		Message: "A database error occurred. Please try again later.",
	}
	InternalServerError = &CustomError{
		Code:    "ERR-501",
		Message: "An internal server error occurred. Please try again later.",
	}
)
