package verifier

import (
	"golang.org/x/crypto/nacl/sign"

	"github.com/layer-3/keygate/ports"
)

// Ed25519PublicKeySize is the length of a registered ed25519 public key
const Ed25519PublicKeySize = 32

// Ed25519Verifier verifies detached NaCl (ed25519) signatures
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new ed25519 verifier
func NewEd25519Verifier() ports.SignatureVerifier {
	return Ed25519Verifier{}
}

// Verify checks a 64-byte detached signature over message
func (Ed25519Verifier) Verify(message, signature, publicKey []byte) bool {
	if len(publicKey) != Ed25519PublicKeySize || len(signature) != sign.Overhead {
		return false
	}

	var key [Ed25519PublicKeySize]byte
	copy(key[:], publicKey)

	// nacl/sign only opens attached signatures: signature || message
	signed := make([]byte, 0, len(signature)+len(message))
	signed = append(signed, signature...)
	signed = append(signed, message...)

	_, ok := sign.Open(nil, signed, &key)
	return ok
}
