package verifier

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/keygate/ports"
)

// Secp256k1Verifier verifies Ethereum personal_sign (EIP-191) signatures.
// Registered keys are compressed (33 bytes) or uncompressed (65 bytes) secp256k1 public keys.
type Secp256k1Verifier struct{}

// NewSecp256k1Verifier creates a new secp256k1 verifier
func NewSecp256k1Verifier() ports.SignatureVerifier {
	return Secp256k1Verifier{}
}

// Verify checks an [R || S] or [R || S || V] signature over the EIP-191 hash of message
func (Secp256k1Verifier) Verify(message, signature, publicKey []byte) bool {
	if len(signature) != crypto.SignatureLength && len(signature) != crypto.SignatureLength-1 {
		return false
	}
	if len(publicKey) != 33 && len(publicKey) != 65 {
		return false
	}

	hash := accounts.TextHash(message)
	return crypto.VerifySignature(publicKey, hash, signature[:crypto.SignatureLength-1])
}
