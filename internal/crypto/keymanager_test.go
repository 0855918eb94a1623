package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKey, "hunter2", 1000)
	require.NoError(t, err)
	assert.Contains(t, string(blob), testAddress)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptKey_Validation(t *testing.T) {
	_, err := EncryptKey(testKey, "", 1000)
	assert.Error(t, err)
	_, err = EncryptKey("abcd", "pw", 1000)
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	got, err := LoadKey(KeySource{RawPrivateKey: "0x" + testKey, EncryptedKeyPath: "/does/not/exist"})
	require.NoError(t, err)
	assert.Equal(t, testKey, got)

	_, err = LoadKey(KeySource{})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	blob, err := EncryptKey(testKey, "pw", 1000)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err = LoadKey(KeySource{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKey, got)
}
