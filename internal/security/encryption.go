package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// Encryption parameters. SCRYPT cost values follow the OWASP
// recommended minimums for interactive use; AES-256-GCM seals the
// payload with a 96-bit nonce.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltSize     = 32
	nonceSize    = 12

	payloadVersion = 1
)

// ErrPayloadTampered is returned when an encrypted payload fails
// authentication or carries an unknown format version.
var ErrPayloadTampered = errors.New("encrypted payload is corrupt or tampered")

// encryptedPayload is the on-disk form of a sealed blob.
type encryptedPayload struct {
	Version    uint8  `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext with a key derived from the passphrase and
// returns the serialized payload.
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	payload := encryptedPayload{
		Version:    payloadVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}

	return json.Marshal(payload)
}

// Open decrypts a payload produced by Seal with the same passphrase.
func Open(sealed, passphrase []byte) ([]byte, error) {
	var payload encryptedPayload
	if err := json.Unmarshal(sealed, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadTampered, err)
	}

	if payload.Version != payloadVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrPayloadTampered, payload.Version)
	}
	if len(payload.Nonce) != nonceSize {
		return nil, fmt.Errorf("%w: bad nonce length", ErrPayloadTampered)
	}

	key, err := deriveKey(passphrase, payload.Salt)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, payload.Nonce, payload.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadTampered, err)
	}

	return plaintext, nil
}

func deriveKey(passphrase, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead, nil
}
