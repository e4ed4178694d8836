package managers

import (
	"encoding/base64"
	"strings"
	"time"
)

const (
	tokenSeparator  = "|"
	tokenTimeFormat = "2006-01-02 15-04-05"
)

// ActivationTokenMgr mints and reads expiring subject tokens, used for email verification
// links and password reset links.
type ActivationTokenMgr interface {
	GenerateToken(subject string) (string, error)
	GetTokenValue(token string) (string, error)
}

// ActivationTokenManager encrypts "subject|issued-at" with the cipher key ring.
// The issue time travels inside the ciphertext, so expiry needs no server side state.
type ActivationTokenManager struct {
	cipher CipherMgr
	ttl    time.Duration
	now    func() time.Time
}

// NewActivationTokenManager creates a codec whose tokens are valid for ttl after issuance.
func NewActivationTokenManager(cipher CipherMgr, ttl time.Duration) *ActivationTokenManager {
	return &ActivationTokenManager{
		cipher: cipher,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source; used by tests to pin issuance and decoding times.
func (am *ActivationTokenManager) WithClock(now func() time.Time) *ActivationTokenManager {
	am.now = now
	return am
}

// GenerateToken returns a URL safe token for the subject.
func (am *ActivationTokenManager) GenerateToken(subject string) (string, error) {
	payload := subject + tokenSeparator + am.now().UTC().Format(tokenTimeFormat)

	sealed, err := am.cipher.Encrypt([]byte(payload))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// GetTokenValue returns the subject of a valid token. Every failure is reported as
// ErrInvalidToken so callers cannot learn which check rejected the token.
func (am *ActivationTokenManager) GetTokenValue(token string) (string, error) {
	sealed, err := base64.RawURLEncoding.Strict().DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	plaintext, err := am.cipher.Decrypt(sealed)
	if err != nil {
		return "", ErrInvalidToken
	}

	// The subject may itself contain the separator, the timestamp never does.
	payload := string(plaintext)
	pos := strings.LastIndex(payload, tokenSeparator)
	if pos < 0 {
		return "", ErrInvalidToken
	}

	issuedAt, err := time.ParseInLocation(tokenTimeFormat, payload[pos+1:], time.UTC)
	if err != nil {
		return "", ErrInvalidToken
	}

	if issuedAt.Add(am.ttl).Before(am.now().UTC()) {
		return "", ErrInvalidToken
	}

	return payload[:pos], nil
}
