package managers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimsMgr signs and verifies self expiring claim sets, e.g. the email change confirmation.
type ClaimsMgr interface {
	EncodeClaims(claims map[string]interface{}, ttl time.Duration) (string, error)
	DecodeClaims(token string) (map[string]interface{}, error)
}

// ClaimsManager is an HS256 JWT codec keyed by the server secret.
type ClaimsManager struct {
	secret     []byte
	defaultTTL time.Duration
	leeway     time.Duration
	now        func() time.Time
}

// NewClaimsManager creates the codec. defaultTTL is used when EncodeClaims is given a ttl <= 0.
func NewClaimsManager(secret string, defaultTTL, leeway time.Duration) *ClaimsManager {
	return &ClaimsManager{
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
		leeway:     leeway,
		now:        time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating tokens.
func (cm *ClaimsManager) WithClock(now func() time.Time) *ClaimsManager {
	cm.now = now
	return cm
}

// EncodeClaims copies the claims, adds the exp claim and signs them.
func (cm *ClaimsManager) EncodeClaims(claims map[string]interface{}, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = cm.defaultTTL
	}

	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}
	mapClaims["exp"] = jwt.NewNumericDate(cm.now().Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString(cm.secret)
}

// DecodeClaims verifies signature and expiry. Unlike the activation codec it tells an
// expired token apart from a forged one.
func (cm *ClaimsManager) DecodeClaims(token string) (map[string]interface{}, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cm.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cm.now),
	)

	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return cm.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidSignature
	}

	return claims, nil
}
