package security

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestMachineIDShape(t *testing.T) {
	fm := NewFingerprintManager()

	id, err := fm.MachineID()
	require.NoError(t, err)
	assert.Regexp(t, sha256Hex, id)
}

func TestMachineIDStable(t *testing.T) {
	fm := NewFingerprintManager()

	first, err := fm.MachineID()
	require.NoError(t, err)

	second, err := fm.MachineID()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Still stable after a cache clear: the inputs have not changed.
	fm.ClearCache()
	third, err := fm.MachineID()
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestValidateFingerprint(t *testing.T) {
	fm := NewFingerprintManager()

	id, err := fm.MachineID()
	require.NoError(t, err)

	ok, err := fm.ValidateFingerprint(id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fm.ValidateFingerprint("0000000000000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, ok)
}
