package chain

import (
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	devPrivateKey = "5KQwrPbwdL6PhXujxW37FSSQZ1JiwsST4cqQzDeyXtP79zkvFD3"
	devPublicKey  = "EOS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV"
)

func TestParsePrivateKeyWIF(t *testing.T) {
	priv, err := ParsePrivateKey(devPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, devPublicKey, FormatLegacyPublicKey(priv.PubKey()))
}

func TestPrivateKeyK1RoundTrip(t *testing.T) {
	priv, err := ParsePrivateKey(devPrivateKey)
	require.NoError(t, err)

	text := FormatPrivateKey(priv)
	require.True(t, strings.HasPrefix(text, "PVT_K1_"))

	again, err := ParsePrivateKey(text)
	require.NoError(t, err)
	assert.Equal(t, priv.Serialize(), again.Serialize())
}

func TestPublicKeyEncodings(t *testing.T) {
	legacy, err := ParsePublicKey(devPublicKey)
	require.NoError(t, err)

	k1 := FormatPublicKey(legacy)
	require.True(t, strings.HasPrefix(k1, "PUB_K1_"))

	parsed, err := ParsePublicKey(k1)
	require.NoError(t, err)
	assert.True(t, parsed.IsEqual(legacy))
	assert.True(t, SamePublicKey(k1, devPublicKey))
	assert.Equal(t, devPublicKey, FormatLegacyPublicKey(parsed))
}

func TestParsePublicKeyRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"no prefix":      "6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CV",
		"bad checksum":   "EOS6MRyAjQq8ud7hVNYcfnVPJqcVpscN5So8BhtHuGYqET5GDW5CW",
		"not base58":     "PUB_K1_0OIl",
		"wrong length":   "PUB_K1_abc",
		"empty":          "",
		"k1 wrong check": "PUB_K1_" + strings.TrimPrefix(devPublicKey, "EOS"),
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePublicKey(in)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
	assert.False(t, SamePublicKey("garbage", devPublicKey))
}

func TestParsePrivateKeyRejectsBadChecksum(t *testing.T) {
	bad := devPrivateKey[:len(devPrivateKey)-1] + "4"
	_, err := ParsePrivateKey(bad)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func privFromBytes(b []byte) *secp256k1.PrivateKey {
	return secp256k1.PrivKeyFromBytes(b)
}
