// Package handlers contains the gin handlers of the user endpoints.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"server-identity/internal/identity"
	"server-identity/internal/managers"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

type UserHdl interface {
	RegisterUser(ctx *gin.Context)
	VerifyEmail(ctx *gin.Context)
	ResendVerificationMail(ctx *gin.Context)
	LoginUser(ctx *gin.Context)
	RefreshToken(ctx *gin.Context)
	InitiatePasswordReset(ctx *gin.Context)
	CompletePasswordReset(ctx *gin.Context)
	CompleteEmailChange(ctx *gin.Context)
	GetProfile(ctx *gin.Context)
	UpdateProfile(ctx *gin.Context)
	ChangePassword(ctx *gin.Context)
	InitiateEmailChange(ctx *gin.Context)
	Logout(ctx *gin.Context)
	DeleteAccount(ctx *gin.Context)
}

type UserHandler struct {
	IdentityService *identity.Service
}

func NewUserHandler(identityService *identity.Service) UserHdl {
	return &UserHandler{
		IdentityService: identityService,
	}
}

// RegisterUser registers a new user and sends a verification link to the user's email.
func (handler *UserHandler) RegisterUser(ctx *gin.Context) {
	registrationRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.RegistrationRequest)

	user, err := handler.IdentityService.Register(ctx, identity.RegistrationInput{
		Email:     registrationRequest.Email,
		Password:  registrationRequest.Password,
		FirstName: registrationRequest.FirstName,
		LastName:  registrationRequest.LastName,
	})
	if err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, schemas.NewUserDTO(user), http.StatusCreated)
}

// VerifyEmail confirms the email address with the token from the verification link.
func (handler *UserHandler) VerifyEmail(ctx *gin.Context) {
	tokenRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.TokenRequest)

	if _, err := handler.IdentityService.ConfirmEmail(ctx, tokenRequest.Token); err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Email Verification successful"}, http.StatusOK)
}

// ResendVerificationMail sends a new verification link. The response never reveals whether the account exists.
func (handler *UserHandler) ResendVerificationMail(ctx *gin.Context) {
	emailRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.EmailRequest)

	if err := handler.IdentityService.ResendVerificationMail(ctx, emailRequest.Email); err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Verification mail has been sent to the email provided"}, http.StatusOK)
}

// LoginUser authenticates the user and returns a token pair.
func (handler *UserHandler) LoginUser(ctx *gin.Context) {
	loginRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.LoginRequest)

	session, err := handler.IdentityService.Login(ctx, loginRequest.Email, loginRequest.Password)
	if err != nil {
		var expired *identity.PasswordExpiredError
		if errors.As(err, &expired) {
			utils.LogMessageWithFields(ctx, "info", "Returning "+schemas.PasswordExpired.Code)
			ctx.AbortWithStatusJSON(http.StatusForbidden, &schemas.PasswordExpiredDTO{
				Error:      *schemas.PasswordExpired,
				ResetToken: expired.ResetToken,
			})
			return
		}
		WriteIdentityError(ctx, err)
		return
	}

	loginDto := &schemas.LoginDTO{
		TokenPairDTO: schemas.TokenPairDTO{
			Token:        session.AccessToken,
			RefreshToken: session.RefreshToken,
		},
		User: schemas.NewUserDTO(session.User),
	}
	utils.WriteAndLogResponse(ctx, loginDto, http.StatusOK)
}

// RefreshToken exchanges a refresh token for a new token pair.
func (handler *UserHandler) RefreshToken(ctx *gin.Context) {
	refreshTokenRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.RefreshTokenRequest)

	session, err := handler.IdentityService.Refresh(ctx, refreshTokenRequest.RefreshToken)
	if err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	tokenDto := &schemas.TokenPairDTO{
		Token:        session.AccessToken,
		RefreshToken: session.RefreshToken,
	}
	utils.WriteAndLogResponse(ctx, tokenDto, http.StatusOK)
}

// InitiatePasswordReset always answers with the same message, whether or not the email is known.
func (handler *UserHandler) InitiatePasswordReset(ctx *gin.Context) {
	emailRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.EmailRequest)

	if err := handler.IdentityService.IssuePasswordReset(ctx, emailRequest.Email); err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Email Has Been sent to the email provided"}, http.StatusOK)
}

// CompletePasswordReset sets a new password using the token from the reset link.
func (handler *UserHandler) CompletePasswordReset(ctx *gin.Context) {
	resetRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.CompletePasswordResetRequest)

	if _, err := handler.IdentityService.RedeemPasswordReset(ctx, resetRequest.Token, resetRequest.Password); err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Password Reset Completed"}, http.StatusOK)
}

// CompleteEmailChange applies the email change confirmed through the link sent to the new address.
func (handler *UserHandler) CompleteEmailChange(ctx *gin.Context) {
	tokenRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.TokenRequest)

	if _, err := handler.IdentityService.CompleteEmailChange(ctx, tokenRequest.Token); err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Email Change Completed"}, http.StatusOK)
}

// GetProfile returns the profile of the authenticated user.
func (handler *UserHandler) GetProfile(ctx *gin.Context) {
	user := currentUser(ctx)
	utils.WriteAndLogResponse(ctx, schemas.NewUserDTO(user), http.StatusOK)
}

// UpdateProfile changes the names of the authenticated user.
func (handler *UserHandler) UpdateProfile(ctx *gin.Context) {
	updateProfileRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.UpdateProfileRequest)

	user, err := handler.IdentityService.UpdateProfile(ctx, currentUser(ctx), updateProfileRequest.FirstName, updateProfileRequest.LastName)
	if err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, schemas.NewUserDTO(user), http.StatusOK)
}

// ChangePassword changes the password of the authenticated user and signs out every session.
func (handler *UserHandler) ChangePassword(ctx *gin.Context) {
	changePasswordRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.ChangePasswordRequest)

	err := handler.IdentityService.ChangePassword(ctx, currentUser(ctx), changePasswordRequest.OldPassword, changePasswordRequest.NewPassword)
	if err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Password changed"}, http.StatusOK)
}

// InitiateEmailChange sends a confirmation link to the requested address.
func (handler *UserHandler) InitiateEmailChange(ctx *gin.Context) {
	emailChangeRequest := ctx.Value(utils.SanitizedPayloadKey.String()).(*schemas.EmailChangeRequest)

	err := handler.IdentityService.InitiateEmailChange(ctx, currentUser(ctx), emailChangeRequest.Password, emailChangeRequest.Email)
	if err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "Check your email"}, http.StatusOK)
}

// Logout signs the authenticated user out of every session.
func (handler *UserHandler) Logout(ctx *gin.Context) {
	if err := handler.IdentityService.Logout(ctx, currentUser(ctx)); err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.WriteAndLogResponse(ctx, &schemas.MessageDTO{Message: "User logged out successfully"}, http.StatusOK)
}

// DeleteAccount soft deletes the authenticated user.
func (handler *UserHandler) DeleteAccount(ctx *gin.Context) {
	if err := handler.IdentityService.DeleteAccount(ctx, currentUser(ctx)); err != nil {
		WriteIdentityError(ctx, err)
		return
	}

	utils.LogMessageWithFields(ctx, "info", "Returning 204")
	ctx.Status(http.StatusNoContent)
}

func currentUser(ctx *gin.Context) *schemas.User {
	return ctx.Value(utils.IdentityKey.String()).(*schemas.User)
}

// WriteIdentityError maps identity, token and store errors to the error catalog.
func WriteIdentityError(ctx *gin.Context, err error) {
	var weakPassword *identity.WeakPasswordError

	switch {
	case errors.As(err, &weakPassword):
		utils.WriteAndLogError(ctx, schemas.WeakPassword.WithDetails(weakPassword.Reasons), http.StatusBadRequest, err)
	case errors.Is(err, managers.ErrInvalidToken):
		utils.WriteAndLogError(ctx, schemas.InvalidToken, http.StatusBadRequest, err)
	case errors.Is(err, managers.ErrExpiredToken):
		utils.WriteAndLogError(ctx, schemas.TokenExpired, http.StatusBadRequest, err)
	case errors.Is(err, managers.ErrInvalidSignature):
		utils.WriteAndLogError(ctx, schemas.InvalidSignature, http.StatusBadRequest, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		utils.WriteAndLogError(ctx, schemas.TokenExpired, http.StatusUnauthorized, err)
	case errors.Is(err, identity.ErrUnauthorized):
		utils.WriteAndLogError(ctx, schemas.Unauthorized, http.StatusUnauthorized, err)
	case errors.Is(err, identity.ErrSessionRevoked):
		utils.WriteAndLogError(ctx, schemas.SessionRevoked, http.StatusUnauthorized, err)
	case errors.Is(err, identity.ErrInvalidCredentials):
		utils.WriteAndLogError(ctx, schemas.InvalidCredentials, http.StatusUnauthorized, err)
	case errors.Is(err, identity.ErrUserNotVerified):
		utils.WriteAndLogError(ctx, schemas.UserNotVerified, http.StatusForbidden, err)
	case errors.Is(err, identity.ErrUserInactive):
		utils.WriteAndLogError(ctx, schemas.UserInactive, http.StatusForbidden, err)
	case errors.Is(err, identity.ErrNotFound):
		utils.WriteAndLogError(ctx, schemas.UserNotFound, http.StatusNotFound, err)
	case errors.Is(err, identity.ErrResetRecordNotFound):
		utils.WriteAndLogError(ctx, schemas.ResetRecordNotFound, http.StatusNotFound, err)
	case errors.Is(err, identity.ErrDuplicateRequest):
		utils.WriteAndLogError(ctx, schemas.DuplicateRequest, http.StatusConflict, err)
	case errors.Is(err, identity.ErrEmailTaken):
		utils.WriteAndLogError(ctx, schemas.EmailTaken, http.StatusConflict, err)
	case errors.Is(err, identity.ErrEmailNotAllowed):
		utils.WriteAndLogError(ctx, schemas.EmailNotAllowed, http.StatusUnprocessableEntity, err)
	case errors.Is(err, identity.ErrPasswordReuse):
		utils.WriteAndLogError(ctx, schemas.PasswordReuse, http.StatusBadRequest, err)
	case errors.Is(err, identity.ErrIncorrectOldPassword):
		utils.WriteAndLogError(ctx, schemas.IncorrectOldPassword, http.StatusBadRequest, err)
	case errors.Is(err, identity.ErrSamePassword):
		utils.WriteAndLogError(ctx, schemas.SamePassword, http.StatusBadRequest, err)
	default:
		utils.WriteAndLogError(ctx, schemas.InternalServerError, http.StatusInternalServerError, err)
	}
}
