package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SigningDigest is the hash a transaction signature commits to: the chain id,
// the packed transaction and an empty context-free-data hash.
func SigningDigest(chainID, payload []byte) []byte {
	h := sha256.New()
	h.Write(chainID)
	h.Write(payload)
	h.Write(make([]byte, sha256.Size))
	return h.Sum(nil)
}

// RecoverPublicKeys returns, in order, the public key that produced each
// signature over payload on the given chain. It only fails on malformed
// signature text; a valid signature by an unexpected key still recovers.
func RecoverPublicKeys(signatures []string, payload, chainID []byte) ([]string, error) {
	digest := SigningDigest(chainID, payload)
	keys := make([]string, 0, len(signatures))
	for i, s := range signatures {
		raw, err := parseSignature(s)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		pub, _, err := ecdsa.RecoverCompact(raw, digest)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w: %v", i, ErrInvalidSignature, err)
		}
		keys = append(keys, FormatPublicKey(pub))
	}
	return keys, nil
}

// Recoverer binds RecoverPublicKeys to one chain.
type Recoverer struct {
	chainID []byte
}

// NewRecoverer parses the hex chain id reported by get_info.
func NewRecoverer(chainIDHex string) (*Recoverer, error) {
	id, err := hex.DecodeString(chainIDHex)
	if err != nil {
		return nil, fmt.Errorf("decode chain id: %w", err)
	}
	return &Recoverer{chainID: id}, nil
}

func (r *Recoverer) RecoverPublicKeys(signatures []string, payload []byte) ([]string, error) {
	return RecoverPublicKeys(signatures, payload, r.chainID)
}

// ChainID returns the raw chain id.
func (r *Recoverer) ChainID() []byte {
	return r.chainID
}
