package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "nested", "wallet.json")

	require.NoError(t, SaveToKeystore(path, key, "pass", LightScrypt()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadFromKeystore(path, "pass")
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), loaded.Bytes())
	require.Equal(t, key.PubKey().Address().String(), loaded.PubKey().Address().String())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}

func TestKeystoreOverwritesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	first, err := GeneratePrivateKey()
	require.NoError(t, err)
	second, err := GeneratePrivateKey()
	require.NoError(t, err)

	require.NoError(t, SaveToKeystore(path, first, "", LightScrypt()))
	require.NoError(t, SaveToKeystore(path, second, "", LightScrypt()))

	loaded, err := LoadFromKeystore(path, "")
	require.NoError(t, err)
	require.Equal(t, second.Bytes(), loaded.Bytes())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestKeystoreRejectsBadInput(t *testing.T) {
	require.Error(t, SaveToKeystore("", nil, ""))
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.Error(t, SaveToKeystore("", key, ""))
	_, err = LoadFromKeystore(filepath.Join(t.TempDir(), "missing.json"), "")
	require.Error(t, err)
}
