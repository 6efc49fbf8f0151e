// Package signature handles all lower level support for signing and
// verifying transactions with Ed25519.
package signature

import (
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"fmt"
)

// PublicKeySize and PrivateKeySize mirror the ed25519 package sizes,
// re-exported here so callers don't need to import crypto/ed25519
// directly for these constants.
const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
)

// GenerateKey creates a new random Ed25519 key pair.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating ed25519 key: %w", err)
	}
	return pub, priv, nil
}

// Sign produces an Ed25519 signature over msg with priv.
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify reports whether sig is a valid Ed25519 signature over msg by
// the owner of pub. A malformed public key or signature is treated as
// a verification failure, not an error.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
