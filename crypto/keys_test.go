package crypto

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAddressAcceptsBech32AndHex(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().Address()

	fromBech32, err := ParseAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Array(), fromBech32)

	fromHex, err := ParseAddress("0x" + hex.EncodeToString(addr.Bytes()))
	require.NoError(t, err)
	require.Equal(t, fromBech32, fromHex)

	require.Equal(t, addr.String(), FormatAddress(fromHex))
	require.Empty(t, FormatAddress([20]byte{}))
}

func TestParseAddressRejectsInvalidInput(t *testing.T) {
	foreign := MustNewAddress("cosmos", make([]byte, 20)).String()
	for _, raw := range []string{"", "0x1234", "0xzz", "plk1notanaddress", foreign} {
		_, err := ParseAddress(raw)
		require.Error(t, err, raw)
	}
}

func TestModuleAddressIsStable(t *testing.T) {
	vault := ModuleAddress("market/vault")
	require.Equal(t, vault, ModuleAddress("market/vault"))
	require.NotEqual(t, vault, ModuleAddress("market/treasury"))
	require.True(t, strings.HasPrefix(FormatAddress(vault), "plk1"))
}

func TestPrivateKeyFromHex(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	parsed, err := PrivateKeyFromHex("0x" + hex.EncodeToString(key.Bytes()))
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), parsed.Bytes())

	_, err = PrivateKeyFromHex("not-hex")
	require.Error(t, err)
}
