// Package verifier provides the signature oracles a connection checks
// challenge responses with.
package verifier

import (
	"fmt"

	"github.com/layer-3/keygate/ports"
)

const (
	SchemeEd25519   = "ed25519"
	SchemeSecp256k1 = "secp256k1"
)

// New returns the verifier for a configured signature scheme
func New(scheme string) (ports.SignatureVerifier, error) {
	switch scheme {
	case SchemeEd25519:
		return NewEd25519Verifier(), nil
	case SchemeSecp256k1:
		return NewSecp256k1Verifier(), nil
	default:
		return nil, fmt.Errorf("unknown signature scheme %q", scheme)
	}
}
