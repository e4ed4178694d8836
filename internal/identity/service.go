// Package identity implements the identity lifecycle: registration and email verification,
// login with session epochs, the password reset ledger, password and email changes and
// soft deletion.
package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"server-identity/internal/config"
	"server-identity/internal/managers"
	"server-identity/internal/repositories"
	"server-identity/internal/schemas"
	"server-identity/internal/utils"
)

const (
	verificationPath  = "/email-verification"
	passwordResetPath = "/account/recovery/reset"
	emailChangePath   = "/complete/email"

	claimUserID = "user_id"
	claimEmail  = "email"
)

// Service coordinates the store, the token codecs, bearer token signing and outgoing mail.
type Service struct {
	cfg        *config.Config
	store      repositories.Store
	mail       managers.MailMgr
	activation managers.ActivationTokenMgr
	claims     managers.ClaimsMgr
	jwt        managers.JWTMgr
	validator  *utils.Validator
	policy     *PasswordPolicy
	now        func() time.Time
}

// NewService wires the identity service.
func NewService(cfg *config.Config, store repositories.Store, mailMgr managers.MailMgr,
	activationMgr managers.ActivationTokenMgr, claimsMgr managers.ClaimsMgr, jwtMgr managers.JWTMgr,
	validator *utils.Validator) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		mail:       mailMgr,
		activation: activationMgr,
		claims:     claimsMgr,
		jwt:        jwtMgr,
		validator:  validator,
		policy:     NewPasswordPolicy(),
		now:        time.Now,
	}
}

// WithClock replaces the time source used for timestamps and the password grace period.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GenerateActivationToken mints an expiring token for the subject.
func (s *Service) GenerateActivationToken(subject string) (string, error) {
	return s.activation.GenerateToken(subject)
}

// ValidateActivationToken returns the subject of a valid expiring token or managers.ErrInvalidToken.
func (s *Service) ValidateActivationToken(token string) (string, error) {
	return s.activation.GetTokenValue(token)
}

// EncodeClaims signs the claims; a ttl of zero uses the configured default.
func (s *Service) EncodeClaims(claims map[string]interface{}, ttl time.Duration) (string, error) {
	return s.claims.EncodeClaims(claims, ttl)
}

// DecodeClaims verifies a claims token and returns its payload.
func (s *Service) DecodeClaims(token string) (map[string]interface{}, error) {
	return s.claims.DecodeClaims(token)
}

// NewLoginToken returns a fresh session epoch for the email.
func NewLoginToken(email string) string {
	return email + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// RotateLoginToken replaces the session epoch of the user, invalidating every bearer token
// issued before. Without persist the caller saves the user itself.
func (s *Service) RotateLoginToken(ctx context.Context, user *schemas.User, persist bool) error {
	return rotateLoginToken(ctx, s.store, user, persist)
}

func rotateLoginToken(ctx context.Context, store repositories.Store, user *schemas.User, persist bool) error {
	user.LoginToken = NewLoginToken(user.Email)
	if !persist {
		return nil
	}
	return store.UpdateUser(ctx, user)
}

// ResolveIdentity loads the user a verified bearer token was issued for. Tokens carrying a
// session epoch other than the current one are rejected with ErrSessionRevoked.
func (s *Service) ResolveIdentity(ctx context.Context, claims map[string]interface{}) (*schemas.User, error) {
	subject, _ := claims["sub"].(string)
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrUnauthorized)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	loginToken, _ := claims["login_token"].(string)
	if loginToken == "" || subtle.ConstantTimeCompare([]byte(loginToken), []byte(user.LoginToken)) != 1 {
		return nil, ErrSessionRevoked
	}
	return user, nil
}

// checkEmail verifies the address with truemail and against the allowed providers.
func (s *Service) checkEmail(email string) error {
	if s.validator != nil && !s.validator.VerifyEmail(email) {
		return ErrEmailNotAllowed
	}
	if len(s.cfg.AllowedMailProviders) == 0 {
		return nil
	}

	_, domain, found := strings.Cut(email, "@")
	if !found {
		return ErrEmailNotAllowed
	}
	for _, provider := range s.cfg.AllowedMailProviders {
		if strings.EqualFold(domain, provider) {
			return nil
		}
	}
	return ErrEmailNotAllowed
}

func (s *Service) hashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

func checkPassword(user *schemas.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) == nil
}

func (s *Service) link(path, token string) string {
	return s.cfg.FrontendURL + path + "?token=" + url.QueryEscape(token)
}

// dispatch sends a notification. Delivery is best effort: failures are logged, never returned.
func (s *Service) dispatch(ctx context.Context, kind string, send func() error) {
	if err := send(); err != nil {
		utils.LogMessageWithFieldsAndError(ctx, "warn", "Failed to send "+kind+" mail", err)
		return
	}
	utils.LogMessageWithFields(ctx, "debug", "Sent "+kind+" mail")
}
