package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
)

// Service handles 256-bit AES-GCM encryption of PII columns. One instance is
// constructed at startup from the configured key file and passed to the
// components that need it; no package-level cipher state exists.
type Service struct {
	key []byte
}

// NewService creates an encryption service from raw key material
func NewService(key []byte) (*Service, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("encryption key must not be empty")
	}
	// Derive a 32-byte key for AES-256
	keyBytes := sha256.Sum256(key)

	return &Service{key: keyBytes[:]}, nil
}

// NewServiceFromKeyFile loads the key file at path, generating one on first
// run so a fresh install starts without manual key provisioning.
func NewServiceFromKeyFile(path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = generateKeyFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption key %s: %w", path, err)
	}

	key := []byte(strings.TrimSpace(string(data)))
	return NewService(key)
}

func generateKeyFile(path string) ([]byte, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	encoded := []byte(base64.StdEncoding.EncodeToString(raw))
	if err := os.WriteFile(path, encoded, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return encoded, nil
}

// Encrypt encrypts plaintext using AES-256-GCM
func (s *Service) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt decrypts ciphertext using AES-256-GCM
func (s *Service) Decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// EncryptString encrypts a string and returns a base64 encoded result.
// Empty strings pass through unchanged so optional columns stay NULL-ish.
func (s *Service) EncryptString(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	encrypted, err := s.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// DecryptString decrypts a base64 encoded string
func (s *Service) DecryptString(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	encrypted, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	decrypted, err := s.Decrypt(encrypted)
	if err != nil {
		return "", err
	}

	return string(decrypted), nil
}

// DecryptField decrypts a stored PII column into a DecryptedField. Cipher
// failures are captured as a typed state instead of an error so display
// paths keep rendering while callers that care can still escalate.
func (s *Service) DecryptField(ciphertext string) DecryptedField {
	value, err := s.DecryptString(ciphertext)
	if err != nil {
		return DecryptedField{Failed: true}
	}
	return DecryptedField{Value: value}
}

// HashData generates a SHA-256 hash of data for integrity checks
func HashData(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}
