package encryption

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := NewService([]byte("unit-test-key"))
	require.NoError(t, err)

	ciphertext, err := svc.EncryptString("Asha Nair")
	require.NoError(t, err)
	assert.NotEqual(t, "Asha Nair", ciphertext)

	plaintext, err := svc.DecryptString(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "Asha Nair", plaintext)
}

func TestEncryptStringEmptyPassesThrough(t *testing.T) {
	svc, err := NewService([]byte("unit-test-key"))
	require.NoError(t, err)

	ciphertext, err := svc.EncryptString("")
	require.NoError(t, err)
	assert.Equal(t, "", ciphertext)

	plaintext, err := svc.DecryptString("")
	require.NoError(t, err)
	assert.Equal(t, "", plaintext)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	svc1, err := NewService([]byte("key-one"))
	require.NoError(t, err)
	svc2, err := NewService([]byte("key-two"))
	require.NoError(t, err)

	ciphertext, err := svc1.EncryptString("confidential")
	require.NoError(t, err)

	_, err = svc2.DecryptString(ciphertext)
	assert.Error(t, err)
}

func TestDecryptFieldCapturesFailureState(t *testing.T) {
	svc, err := NewService([]byte("unit-test-key"))
	require.NoError(t, err)

	field := svc.DecryptField("not-even-base64!!")
	assert.True(t, field.Failed)
	assert.Equal(t, FailedDisplay, field.String())

	ciphertext, err := svc.EncryptString("readable")
	require.NoError(t, err)
	field = svc.DecryptField(ciphertext)
	assert.False(t, field.Failed)
	assert.Equal(t, "readable", field.String())
}

func TestNewServiceFromKeyFileGeneratesKeyOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encryption_key.key")

	first, err := NewServiceFromKeyFile(path)
	require.NoError(t, err)

	ciphertext, err := first.EncryptString("persisted")
	require.NoError(t, err)

	// A second load must reuse the generated key, not mint a new one.
	second, err := NewServiceFromKeyFile(path)
	require.NoError(t, err)

	plaintext, err := second.DecryptString(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "persisted", plaintext)
}
