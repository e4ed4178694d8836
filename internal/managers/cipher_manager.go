package managers

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherMgr encrypts and decrypts opaque payloads with a rotating set of symmetric keys.
type CipherMgr interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// CipherManager is a key ring of XChaCha20-Poly1305 keys, newest first.
// New payloads are always sealed with the first key; every key is tried on decryption
// so tokens sealed under a retired key stay readable until they expire on their own.
type CipherManager struct {
	aeads []cipher.AEAD
}

// NewCipherManager builds the key ring from base64url encoded 32 byte keys.
func NewCipherManager(keys []string) (CipherMgr, error) {
	if len(keys) == 0 {
		return nil, errors.New("at least one token key is required")
	}

	aeads := make([]cipher.AEAD, 0, len(keys))
	for i, encoded := range keys {
		key, err := decodeKey(encoded)
		if err != nil {
			return nil, fmt.Errorf("token key %d: %w", i, err)
		}

		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("token key %d: %w", i, err)
		}
		aeads = append(aeads, aead)
	}

	log.Infof("Initialized cipher manager with %d key(s)", len(aeads))
	return &CipherManager{aeads: aeads}, nil
}

// Encrypt seals the plaintext with the newest key. The output is nonce || ciphertext.
func (cm *CipherManager) Encrypt(plaintext []byte) ([]byte, error) {
	aead := cm.aeads[0]

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens the ciphertext with the first key that authenticates it.
func (cm *CipherManager) Decrypt(ciphertext []byte) ([]byte, error) {
	for _, aead := range cm.aeads {
		if len(ciphertext) < aead.NonceSize()+aead.Overhead() {
			return nil, ErrInvalidToken
		}

		nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
		plaintext, err := aead.Open(nil, nonce, sealed, nil)
		if err == nil {
			return plaintext, nil
		}
	}

	return nil, ErrInvalidToken
}

// GenerateKey returns a fresh random key in the format expected by NewCipherManager.
func GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}

func decodeKey(encoded string) ([]byte, error) {
	encoded = strings.TrimRight(strings.TrimSpace(encoded), "=")
	key, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("key is not base64url: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}
