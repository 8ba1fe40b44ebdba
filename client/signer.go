package client

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/nacl/sign"
)

// Signer signs the challenge payload with a client's private key
type Signer interface {
	Sign(payload []byte) ([]byte, error)
	PublicKey() []byte
}

// Ed25519Signer produces detached NaCl signatures
type Ed25519Signer struct {
	secret [64]byte
	public [32]byte
}

// GenerateEd25519Signer creates a signer with a fresh key pair
func GenerateEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := sign.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Ed25519Signer{secret: *priv, public: *pub}, nil
}

// NewEd25519Signer wraps a 64-byte NaCl secret key (seed || public key)
func NewEd25519Signer(secret []byte) (*Ed25519Signer, error) {
	if len(secret) != 64 {
		return nil, fmt.Errorf("ed25519 secret key must be 64 bytes, got %d", len(secret))
	}
	s := &Ed25519Signer{}
	copy(s.secret[:], secret)
	copy(s.public[:], secret[32:])
	return s, nil
}

func (s *Ed25519Signer) Sign(payload []byte) ([]byte, error) {
	return sign.Sign(nil, payload, &s.secret)[:sign.Overhead], nil
}

func (s *Ed25519Signer) PublicKey() []byte {
	return append([]byte(nil), s.public[:]...)
}

// SecretKey returns the 64-byte secret key
func (s *Ed25519Signer) SecretKey() []byte {
	return append([]byte(nil), s.secret[:]...)
}

// Secp256k1Signer produces Ethereum personal_sign signatures
type Secp256k1Signer struct {
	key *ecdsa.PrivateKey
}

// GenerateSecp256k1Signer creates a signer with a fresh key
func GenerateSecp256k1Signer() (*Secp256k1Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Secp256k1Signer{key: key}, nil
}

// NewSecp256k1Signer wraps a 32-byte secp256k1 private key
func NewSecp256k1Signer(secret []byte) (*Secp256k1Signer, error) {
	key, err := crypto.ToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 key: %w", err)
	}
	return &Secp256k1Signer{key: key}, nil
}

func (s *Secp256k1Signer) Sign(payload []byte) ([]byte, error) {
	return crypto.Sign(accounts.TextHash(payload), s.key)
}

// PublicKey returns the compressed public key
func (s *Secp256k1Signer) PublicKey() []byte {
	return crypto.CompressPubkey(&s.key.PublicKey)
}

// SecretKey returns the 32-byte private key
func (s *Secp256k1Signer) SecretKey() []byte {
	return crypto.FromECDSA(s.key)
}
