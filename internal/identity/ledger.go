package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"server-identity/internal/managers"
	"server-identity/internal/repositories"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

const changePasswordTokenPrefix = "CHANGE_PASSWORD__"

// IssuePasswordReset records a reset token for the email and mails the reset link. Unknown
// emails succeed without sending anything so callers cannot tell whether an account exists.
func (s *Service) IssuePasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		utils.LogMessageWithFields(ctx, "debug", "Password reset requested for an unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.issueResetEntry(ctx, s.store, user.Email)
	if errors.Is(err, ErrDuplicateRequest) {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Password reset entry already exists", err)
		return nil
	}
	if err != nil {
		return err
	}

	link := s.link(passwordResetPath, token)
	s.dispatch(ctx, "password reset", func() error {
		return s.mail.SendPasswordResetMail(user.Email, user.FullName(), link)
	})
	return nil
}

func (s *Service) issueResetEntry(ctx context.Context, store repositories.Store, email string) (string, error) {
	token, err := s.activation.GenerateToken(email)
	if err != nil {
		return "", err
	}

	entry := &schemas.PasswordResetEntry{
		ID:        uuid.New(),
		Email:     email,
		Token:     token,
		Status:    schemas.PasswordResetPending,
		CreatedAt: s.now(),
	}
	if err := store.CreateResetEntry(ctx, entry); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return "", ErrDuplicateRequest
		}
		return "", err
	}
	return token, nil
}

// RedeemPasswordReset sets a new password using a ledger token. The entry is consumed in the
// same transaction as the password update, so a token succeeds at most once and a rejected
// attempt leaves it pending.
func (s *Service) RedeemPasswordReset(ctx context.Context, token, newPassword string) (*schemas.User, error) {
	var user *schemas.User

	err := s.store.RunInTx(ctx, func(tx repositories.Store) error {
		entry, err := tx.DeleteResetEntry(ctx, token)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrResetRecordNotFound
			}
			return err
		}

		email, err := s.activation.GetTokenValue(token)
		if err != nil {
			return err
		}
		if email != entry.Email {
			return managers.ErrInvalidToken
		}

		found, err := tx.GetUserByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		if checkPassword(found, newPassword) {
			return ErrPasswordReuse
		}
		if err := s.policy.Validate(newPassword, found); err != nil {
			return err
		}

		if err := s.setPassword(ctx, tx, found, newPassword); err != nil {
			return err
		}
		user = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.LogMessageWithFields(ctx, "info", "Password reset completed")
	s.dispatch(ctx, "password changed", func() error {
		return s.mail.SendPasswordChangedMail(user.Email, user.FullName())
	})
	return user, nil
}

// setPassword stores the new hash and rotates the session epoch in one update.
func (s *Service) setPassword(ctx context.Context, store repositories.Store, user *schemas.User, password string) error {
	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	user.LastPasswordUpdate = s.now()
	if err := rotateLoginToken(ctx, store, user, false); err != nil {
		return err
	}
	return store.UpdateUser(ctx, user)
}

// recordPasswordChange appends the audit entry of a password change. The entry is never redeemable.
func (s *Service) recordPasswordChange(ctx context.Context, store repositories.Store, email string) error {
	return store.CreateResetEntry(ctx, &schemas.PasswordResetEntry{
		ID:        uuid.New(),
		Email:     email,
		Token:     changePasswordTokenPrefix + uuid.NewString(),
		Status:    schemas.PasswordResetChangePassword,
		CreatedAt: s.now(),
	})
}
