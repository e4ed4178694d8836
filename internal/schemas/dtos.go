package schemas

// ErrorDTO is a struct that represents an error response
// Error is the custom error, see CustomError
type ErrorDTO struct {
	Error CustomError `json:"error"`
}

// MessageDTO is a struct that represents a plain confirmation response
type MessageDTO struct {
	Message string `json:"message"`
}

// UserDTO is a struct that represents the private profile of a user
type UserDTO struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	FullName  string   `json:"fullName"`
	UserType  UserType `json:"userType"`
}

// TokenPairDTO is a struct that represents a token response
// Token is the main JWT token used for auth
// RefreshToken is the refresh token used to get a new token
type TokenPairDTO struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// LoginDTO is returned after a successful login
type LoginDTO struct {
	TokenPairDTO
	User UserDTO `json:"user"`
}

// PasswordExpiredDTO is returned instead of a token pair when the password must be renewed
type PasswordExpiredDTO struct {
	Error      CustomError `json:"error"`
	ResetToken string      `json:"resetToken"`
}

// MetadataDTO describes the running service
type MetadataDTO struct {
	ApiVersion string `json:"apiVersion"`
	ApiName    string `json:"apiName"`
}

// NewUserDTO maps a user to its private profile.
func NewUserDTO(user *User) UserDTO {
	return UserDTO{
		ID:        user.ID.String(),
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		FullName:  user.FullName(),
		UserType:  user.UserType,
	}
}
