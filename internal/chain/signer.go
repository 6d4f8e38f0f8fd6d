package chain

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const maxSignAttempts = 1024

var errNoCanonicalSignature = errors.New("no canonical signature found")

// Signer produces SIG_K1_ signatures over a packed transaction.
type Signer interface {
	Sign(chainID, payload []byte) ([]string, error)
	PublicKeys() []string
}

// KeySigner signs with in-memory private keys.
type KeySigner struct {
	keys []*secp256k1.PrivateKey
}

// NewKeySigner parses each key in PVT_K1_ or WIF form.
func NewKeySigner(privateKeys ...string) (*KeySigner, error) {
	if len(privateKeys) == 0 {
		return nil, errors.New("at least one private key required")
	}
	s := &KeySigner{}
	for i, k := range privateKeys {
		priv, err := ParsePrivateKey(k)
		if err != nil {
			return nil, fmt.Errorf("private key %d: %w", i, err)
		}
		s.keys = append(s.keys, priv)
	}
	return s, nil
}

func (s *KeySigner) Sign(chainID, payload []byte) ([]string, error) {
	digest := SigningDigest(chainID, payload)
	out := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		sig, err := signCanonical(k, digest)
		if err != nil {
			return nil, err
		}
		out = append(out, formatSignature(sig))
	}
	return out, nil
}

func (s *KeySigner) PublicKeys() []string {
	out := make([]string, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, FormatPublicKey(k.PubKey()))
	}
	return out
}

// signCanonical walks RFC 6979 nonces until the compact signature satisfies
// the ledger's canonical form.
func signCanonical(priv *secp256k1.PrivateKey, hash []byte) ([]byte, error) {
	privBytes := priv.Serialize()
	for attempt := uint32(0); attempt < maxSignAttempts; attempt++ {
		k := secp256k1.NonceRFC6979(privBytes, hash, nil, nil, attempt)
		sig, ok := signWithNonce(&priv.Key, k, hash)
		k.Zero()
		if ok && isCanonical(sig) {
			return sig, nil
		}
	}
	return nil, errNoCanonicalSignature
}

func signWithNonce(d, k *secp256k1.ModNScalar, hash []byte) ([]byte, bool) {
	var point secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &point)
	point.ToAffine()

	var r secp256k1.ModNScalar
	overflow := r.SetByteSlice(point.X.Bytes()[:])
	if r.IsZero() {
		return nil, false
	}
	recovery := byte(point.Y.IsOddBit())
	if overflow {
		recovery |= 0x02
	}

	var e secp256k1.ModNScalar
	e.SetByteSlice(hash)
	kInv := new(secp256k1.ModNScalar).Set(k).InverseNonConst()
	s := new(secp256k1.ModNScalar).Mul2(d, &r).Add(&e).Mul(kInv)
	if s.IsZero() {
		return nil, false
	}
	if s.IsOverHalfOrder() {
		s.Negate()
		recovery ^= 0x01
	}

	sig := make([]byte, signatureLen)
	sig[0] = 27 + 4 + recovery
	r.PutBytesUnchecked(sig[1:33])
	s.PutBytesUnchecked(sig[33:65])
	return sig, true
}

func isCanonical(sig []byte) bool {
	return sig[1]&0x80 == 0 &&
		!(sig[1] == 0 && sig[2]&0x80 == 0) &&
		sig[33]&0x80 == 0 &&
		!(sig[33] == 0 && sig[34]&0x80 == 0)
}
