package security

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"licenser/pkg/contracts/domain"
)

// CredentialStore persists user credentials as a single encrypted blob
// at a configured file path. The blob is written after a successful
// authentication and read at startup; an absent file is not an error.
type CredentialStore struct {
	path       string
	passphrase []byte
}

// NewCredentialStore creates a credential store bound to the given
// file path. When passphrase is empty, a machine-derived default is
// used so the blob is at least bound to the device that wrote it.
func NewCredentialStore(path string, passphrase []byte) *CredentialStore {
	if len(passphrase) == 0 {
		passphrase = defaultPassphrase()
	}
	return &CredentialStore{path: path, passphrase: passphrase}
}

// Load reads and decrypts the stored credentials. A missing file
// yields (nil, nil).
func (s *CredentialStore) Load() (*domain.Credentials, error) {
	sealed, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	plaintext, err := Open(sealed, s.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &creds, nil
}

// Save encrypts and writes the credentials with restricted permissions.
func (s *CredentialStore) Save(creds *domain.Credentials) error {
	if creds == nil {
		return fmt.Errorf("credentials must not be nil")
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	sealed, err := Seal(plaintext, s.passphrase)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}

	return nil
}

// Clear removes the stored blob. Clearing an absent file is not an
// error.
func (s *CredentialStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// defaultPassphrase derives a device-bound passphrase from the machine
// fingerprint factors.
func defaultPassphrase() []byte {
	fm := NewFingerprintManager()
	id, err := fm.MachineID()
	if err != nil || id == "" {
		id = "licenser-local-credentials"
	}
	return []byte(id)
}
