package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licenser/pkg/contracts/domain"
)

func TestCredentialStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "ClientCredentials.dat")
	store := NewCredentialStore(path, []byte("test-passphrase"))

	creds := &domain.Credentials{
		ID:       "u-1",
		UserName: "alice",
		Email:    "alice@example.com",
		Password: "s3cret",
	}
	require.NoError(t, store.Save(creds))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, creds, loaded)

	// Blob on disk must not carry the password in clear.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")
}

func TestCredentialStoreLoadAbsentFile(t *testing.T) {
	store := NewCredentialStore(filepath.Join(t.TempDir(), "missing.dat"), []byte("p"))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCredentialStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.dat")

	require.NoError(t, NewCredentialStore(path, []byte("right")).Save(&domain.Credentials{UserName: "alice"}))

	_, err := NewCredentialStore(path, []byte("wrong")).Load()
	assert.Error(t, err)
}

func TestCredentialStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.dat")
	store := NewCredentialStore(path, []byte("p"))

	require.NoError(t, store.Save(&domain.Credentials{UserName: "alice"}))
	require.NoError(t, store.Clear())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Clearing again is not an error.
	require.NoError(t, store.Clear())
}

func TestCredentialStoreFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	path := filepath.Join(t.TempDir(), "creds.dat")
	store := NewCredentialStore(path, []byte("p"))
	require.NoError(t, store.Save(&domain.Credentials{UserName: "alice"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
