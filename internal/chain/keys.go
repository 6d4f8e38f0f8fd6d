package chain

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // ledger checksums are RIPEMD-160
)

const (
	pubKeyPrefix       = "PUB_K1_"
	legacyPubKeyPrefix = "EOS"
	privKeyPrefix      = "PVT_K1_"
	signaturePrefix    = "SIG_K1_"
	k1Suffix           = "K1"

	checksumLen  = 4
	pubKeyLen    = 33
	privKeyLen   = 32
	signatureLen = 65
	wifVersion   = 0x80
)

var (
	ErrInvalidKey       = errors.New("invalid key encoding")
	ErrInvalidSignature = errors.New("invalid signature encoding")
	errBadChecksum      = errors.New("checksum mismatch")
)

// ParsePublicKey decodes a PUB_K1_ or legacy EOS public key.
func ParsePublicKey(s string) (*secp256k1.PublicKey, error) {
	var raw []byte
	var err error
	switch {
	case strings.HasPrefix(s, pubKeyPrefix):
		raw, err = decodeK1(strings.TrimPrefix(s, pubKeyPrefix), pubKeyLen)
	case strings.HasPrefix(s, legacyPubKeyPrefix):
		raw, err = decodeRipemd(strings.TrimPrefix(s, legacyPubKeyPrefix), pubKeyLen)
	default:
		return nil, fmt.Errorf("%w: unknown public key prefix", ErrInvalidKey)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return pub, nil
}

// FormatPublicKey renders a key in the PUB_K1_ form.
func FormatPublicKey(pub *secp256k1.PublicKey) string {
	return pubKeyPrefix + encodeK1(pub.SerializeCompressed())
}

// FormatLegacyPublicKey renders a key in the EOS-prefixed form.
func FormatLegacyPublicKey(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeCompressed()
	sum := ripemd(raw)
	return legacyPubKeyPrefix + base58.Encode(append(raw, sum[:checksumLen]...))
}

// SamePublicKey reports whether two textual keys denote the same point,
// whatever their encoding.
func SamePublicKey(a, b string) bool {
	if a == b {
		return true
	}
	pa, err := ParsePublicKey(a)
	if err != nil {
		return false
	}
	pb, err := ParsePublicKey(b)
	if err != nil {
		return false
	}
	return pa.IsEqual(pb)
}

// ParsePrivateKey decodes a PVT_K1_ key or a legacy WIF key.
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	if strings.HasPrefix(s, privKeyPrefix) {
		raw, err := decodeK1(strings.TrimPrefix(s, privKeyPrefix), privKeyLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		return secp256k1.PrivKeyFromBytes(raw), nil
	}

	data, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(data) != 1+privKeyLen+checksumLen || data[0] != wifVersion {
		return nil, fmt.Errorf("%w: not a WIF key", ErrInvalidKey)
	}
	body := data[:1+privKeyLen]
	first := sha256.Sum256(body)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:checksumLen], data[1+privKeyLen:]) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, errBadChecksum)
	}
	return secp256k1.PrivKeyFromBytes(body[1:]), nil
}

// FormatPrivateKey renders a key in the PVT_K1_ form.
func FormatPrivateKey(priv *secp256k1.PrivateKey) string {
	return privKeyPrefix + encodeK1(priv.Serialize())
}

func parseSignature(s string) ([]byte, error) {
	if !strings.HasPrefix(s, signaturePrefix) {
		return nil, fmt.Errorf("%w: unknown signature prefix", ErrInvalidSignature)
	}
	raw, err := decodeK1(strings.TrimPrefix(s, signaturePrefix), signatureLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return raw, nil
}

func formatSignature(sig []byte) string {
	return signaturePrefix + encodeK1(sig)
}

func encodeK1(raw []byte) string {
	sum := ripemd(raw, []byte(k1Suffix))
	out := make([]byte, 0, len(raw)+checksumLen)
	out = append(out, raw...)
	out = append(out, sum[:checksumLen]...)
	return base58.Encode(out)
}

func decodeK1(s string, size int) ([]byte, error) {
	data, err := decodeSized(s, size)
	if err != nil {
		return nil, err
	}
	raw := data[:size]
	sum := ripemd(raw, []byte(k1Suffix))
	if !bytes.Equal(sum[:checksumLen], data[size:]) {
		return nil, errBadChecksum
	}
	return raw, nil
}

func decodeRipemd(s string, size int) ([]byte, error) {
	data, err := decodeSized(s, size)
	if err != nil {
		return nil, err
	}
	raw := data[:size]
	sum := ripemd(raw)
	if !bytes.Equal(sum[:checksumLen], data[size:]) {
		return nil, errBadChecksum
	}
	return raw, nil
}

func decodeSized(s string, size int) ([]byte, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(data) != size+checksumLen {
		return nil, fmt.Errorf("decoded length %d, want %d", len(data), size+checksumLen)
	}
	return data, nil
}

func ripemd(parts ...[]byte) []byte {
	h := ripemd160.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
