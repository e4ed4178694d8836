package managers

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

const (
	issuer = "server-identity.tech"

	defaultAccessTokenTTL  = 24 * time.Hour
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// BearerSubject is what gets embedded into an access or refresh token.
type BearerSubject struct {
	UserId     string
	Email      string
	LoginToken string
}

type JWTMgr interface {
	GenerateJWT(subject BearerSubject, isRefreshToken bool) (string, error)
	ValidateJWT(tokenString string) (jwt.MapClaims, error)
}

// JWTManager handles bearer JWT generation, signing, and validation.
type JWTManager struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTManager creates a new JWTManager for the given key pair.
func NewJWTManager(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey) *JWTManager {
	return &JWTManager{
		privateKey: privateKey,
		publicKey:  publicKey,
		accessTTL:  defaultAccessTokenTTL,
		refreshTTL: defaultRefreshTokenTTL,
	}
}

// NewJWTManagerFromFile loads the key pair from path, generating and persisting one if none exists yet.
func NewJWTManagerFromFile(path string, accessTTL, refreshTTL time.Duration) (JWTMgr, error) {
	privateKey, publicKey, err := loadKeyPair(path)
	if err != nil {
		log.Info("No key pair found, generating a new one")
		// No key yet for initial setup, generate a new key pair
		privateKey, publicKey, err = generateKeyPair(path)
		if err != nil {
			return nil, err
		}
	}

	return NewJWTManager(privateKey, publicKey).WithLifetimes(accessTTL, refreshTTL), nil
}

// WithLifetimes overrides the access and refresh token lifetimes.
func (jm *JWTManager) WithLifetimes(accessTTL, refreshTTL time.Duration) *JWTManager {
	if accessTTL > 0 {
		jm.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		jm.refreshTTL = refreshTTL
	}
	return jm
}

// GenerateJWT signs an access or refresh token. Both carry the login token of the
// identity, which the resolver compares against the current value on every use.
func (jm *JWTManager) GenerateJWT(subject BearerSubject, isRefreshToken bool) (string, error) {
	ttl := jm.accessTTL
	refresh := "false"
	if isRefreshToken {
		ttl = jm.refreshTTL
		refresh = "true"
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":         issuer,
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
		"sub":         subject.UserId,
		"email":       subject.Email,
		"login_token": subject.LoginToken,
		"refresh":     refresh,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(jm.privateKey)
}

// ValidateJWT validates the given JWT and returns the claims if valid.
func (jm *JWTManager) ValidateJWT(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify the signing method
		if token.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("invalid signing method")
		}

		return jm.publicKey, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}

// generateKeyPair generates a new key pair and saves it to a file.
func generateKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	// Save the new key pair to a file for persistence
	if err = saveKeyPair(privateKey, publicKey, path); err != nil {
		return nil, nil, err
	}

	return privateKey, publicKey, nil
}

// saveKeyPair saves the key pair to the specified file.
func saveKeyPair(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	keyPairBytes := append(append([]byte{}, privateKey...), publicKey...)
	return os.WriteFile(path, keyPairBytes, 0o600)
}

// loadKeyPair loads the key pair from the specified file.
func loadKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	keyPairBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	// The key pair is the concatenation of private and public keys
	if len(keyPairBytes) != ed25519.PrivateKeySize+ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("invalid key pair format")
	}

	privateKey := ed25519.PrivateKey(keyPairBytes[:ed25519.PrivateKeySize])
	publicKey := ed25519.PublicKey(keyPairBytes[ed25519.PrivateKeySize:])
	return privateKey, publicKey, nil
}
