package ports

// SignatureVerifier checks a detached signature over message against a public key.
// It reports false for malformed keys or signatures rather than failing.
type SignatureVerifier interface {
	Verify(message, signature, publicKey []byte) bool
}
