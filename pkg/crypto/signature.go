package crypto

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/schnorr"
)

// PublicKeySize is the length of a compressed secp256k1 public key. Output
// owners are identified by keys of this size.
const PublicKeySize = 33

// Signer signs 32-byte digests.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
	// PublicKey returns the compressed 33-byte public key.
	PublicKey() []byte
}

// Verifier checks that signature was produced over digest by the holder of
// owner. Implementations must return false, never panic, on malformed keys
// or signatures.
type Verifier interface {
	Verify(owner, digest, signature []byte) bool
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(owner, digest, signature []byte) bool

// Verify calls f(owner, digest, signature).
func (f VerifierFunc) Verify(owner, digest, signature []byte) bool {
	return f(owner, digest, signature)
}

// PrivateKey wraps a secp256k1 private key for Schnorr signing.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Sign produces a 64-byte Schnorr signature over a 32-byte digest.
func (pk *PrivateKey) Sign(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := schnorr.Sign(pk.key, digest)
	if err != nil {
		return nil, fmt.Errorf("schnorr sign: %w", err)
	}
	return sig.Serialize(), nil
}

// PublicKey returns the compressed 33-byte public key.
func (pk *PrivateKey) PublicKey() []byte {
	return pk.key.PubKey().SerializeCompressed()
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// ValidatePublicKey reports whether b parses as a secp256k1 public key.
func ValidatePublicKey(b []byte) error {
	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}
	return nil
}

// VerifySignature checks a Schnorr signature over digest against the
// compressed public key owner. Returns false on any error.
func VerifySignature(owner, digest, signature []byte) bool {
	pubKey, err := secp256k1.ParsePubKey(owner)
	if err != nil {
		return false
	}
	sig, err := schnorr.ParseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(digest, pubKey)
}

// SchnorrVerifier is the production Verifier.
type SchnorrVerifier struct{}

// Verify implements Verifier.
func (SchnorrVerifier) Verify(owner, digest, signature []byte) bool {
	return VerifySignature(owner, digest, signature)
}
