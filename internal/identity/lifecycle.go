package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"server-identity/internal/managers"
	"server-identity/internal/repositories"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

// RegistrationInput holds the fields of a new identity.
type RegistrationInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is a bearer token pair issued for a user.
type Session struct {
	User         *schemas.User
	AccessToken  string
	RefreshToken string
}

// Register creates an unverified identity and mails the verification link.
func (s *Service) Register(ctx context.Context, input RegistrationInput) (*schemas.User, error) {
	if err := s.checkEmail(input.Email); err != nil {
		return nil, err
	}

	now := s.now()
	user := &schemas.User{
		ID:                 uuid.New(),
		Email:              input.Email,
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		UserType:           schemas.UserTypeMember,
		LastPasswordUpdate: now,
		CreatedAt:          now,
	}
	if err := s.policy.Validate(input.Password, user); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashedPassword

	if err := rotateLoginToken(ctx, s.store, user, false); err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	utils.LogMessageWithFields(ctx, "info", "Registered user "+user.ID.String())

	if err := s.sendVerificationMail(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) sendVerificationMail(ctx context.Context, user *schemas.User) error {
	token, err := s.activation.GenerateToken(user.Email)
	if err != nil {
		return err
	}

	link := s.link(verificationPath, token)
	s.dispatch(ctx, "verification", func() error {
		return s.mail.SendVerificationMail(user.Email, user.FullName(), link)
	})
	return nil
}

// ConfirmEmail verifies and activates the identity named by a verification token.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*schemas.User, error) {
	email, err := s.activation.GetTokenValue(token)
	if err != nil {
		return nil, err
	}

	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return user, nil
	}

	user.IsVerified = true
	user.IsActive = true
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	utils.LogMessageWithFields(ctx, "info", "Verified user "+user.ID.String())
	return user, nil
}

// ResendVerificationMail mails a new verification link to unverified identities. Every other
// email succeeds silently.
func (s *Service) ResendVerificationMail(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsVerified {
		return nil
	}
	return s.sendVerificationMail(ctx, user)
}

// Login authenticates with email and password, rotates the session epoch and issues a token
// pair. When the password is older than the grace period a *PasswordExpiredError carrying a
// reset token is returned instead.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !checkPassword(user, password) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, ErrUserNotVerified
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if grace := s.cfg.PasswordGracePeriod; grace > 0 && s.now().After(user.LastPasswordUpdate.Add(grace)) {
		token, err := s.issueResetEntry(ctx, s.store, user.Email)
		if err != nil {
			return nil, err
		}
		utils.LogMessageWithFields(ctx, "info", "Password of user "+user.ID.String()+" has expired")
		return nil, &PasswordExpiredError{ResetToken: token, GraceDays: int(grace / (24 * time.Hour))}
	}

	if err := rotateLoginToken(ctx, s.store, user, true); err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

// Refresh exchanges a refresh token for a new pair within the same session epoch.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.jwt.ValidateJWT(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if refresh, _ := claims["refresh"].(string); refresh != "true" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrUnauthorized)
	}

	user, err := s.ResolveIdentity(ctx, claims)
	if err != nil {
		return nil, err
	}
	return s.issueSession(user)
}

func (s *Service) issueSession(user *schemas.User) (*Session, error) {
	subject := managers.BearerSubject{
		UserId:     user.ID.String(),
		Email:      user.Email,
		LoginToken: user.LoginToken,
	}

	accessToken, err := s.jwt.GenerateJWT(subject, false)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwt.GenerateJWT(subject, true)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Logout signs the user out of every session.
func (s *Service) Logout(ctx context.Context, user *schemas.User) error {
	return rotateLoginToken(ctx, s.store, user, true)
}

// UpdateProfile replaces the first and last name of the user.
func (s *Service) UpdateProfile(ctx context.Context, user *schemas.User, firstName, lastName string) (*schemas.User, error) {
	updated := *user
	updated.FirstName = firstName
	updated.LastName = lastName

	if err := s.store.UpdateUser(ctx, &updated); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	*user = updated
	utils.LogMessageWithFields(ctx, "info", "Updated profile of user "+user.ID.String())
	return user, nil
}

// ChangePassword replaces the password of a signed in user, signs out every session and
// records the change in the ledger.
func (s *Service) ChangePassword(ctx context.Context, user *schemas.User, oldPassword, newPassword string) error {
	if !checkPassword(user, oldPassword) {
		return ErrIncorrectOldPassword
	}
	if oldPassword == newPassword {
		return ErrSamePassword
	}
	if err := s.policy.Validate(newPassword, user); err != nil {
		return err
	}

	changed := *user
	err := s.store.RunInTx(ctx, func(tx repositories.Store) error {
		if err := s.setPassword(ctx, tx, &changed, newPassword); err != nil {
			return err
		}
		return s.recordPasswordChange(ctx, tx, changed.Email)
	})
	if err != nil {
		return err
	}
	*user = changed

	s.dispatch(ctx, "password changed", func() error {
		return s.mail.SendPasswordChangedMail(user.Email, user.FullName())
	})
	return nil
}

// InitiateEmailChange mails a confirmation link to the new address.
func (s *Service) InitiateEmailChange(ctx context.Context, user *schemas.User, password, newEmail string) error {
	if !checkPassword(user, password) {
		return ErrInvalidCredentials
	}
	if err := s.checkEmail(newEmail); err != nil {
		return err
	}
	if newEmail == user.Email {
		return ErrEmailTaken
	}
	if _, err := s.store.GetUserByEmail(ctx, newEmail); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	token, err := s.claims.EncodeClaims(map[string]interface{}{
		claimUserID: user.ID.String(),
		claimEmail:  newEmail,
	}, 0)
	if err != nil {
		return err
	}

	link := s.link(emailChangePath, token)
	s.dispatch(ctx, "email change", func() error {
		return s.mail.SendEmailChangeMail(newEmail, user.FullName(), link)
	})
	return nil
}

// CompleteEmailChange applies a confirmed email change and signs out every session.
func (s *Service) CompleteEmailChange(ctx context.Context, token string) (*schemas.User, error) {
	claims, err := s.claims.DecodeClaims(token)
	if err != nil {
		return nil, err
	}

	rawID, _ := claims[claimUserID].(string)
	newEmail, _ := claims[claimEmail].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil || newEmail == "" {
		return nil, managers.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	user.Email = newEmail
	if err := rotateLoginToken(ctx, s.store, user, true); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	utils.LogMessageWithFields(ctx, "info", "Changed email of user "+user.ID.String())
	return user, nil
}

// DeleteAccount soft deletes the user and signs out every session.
func (s *Service) DeleteAccount(ctx context.Context, user *schemas.User) error {
	deletedAt := s.now()
	user.IsDeleted = true
	user.IsActive = false
	user.DeletedAt = &deletedAt

	if err := rotateLoginToken(ctx, s.store, user, true); err != nil {
		return err
	}
	utils.LogMessageWithFields(ctx, "info", "Deleted user "+user.ID.String())
	return nil
}

func (s *Service) getUserByEmail(ctx context.Context, email string) (*schemas.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}
