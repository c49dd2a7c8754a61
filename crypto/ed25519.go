package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"github.com/sirupsen/logrus"
)

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = ed25519.SignatureSize

// SeedSize is the size of the private seed backing an Ed25519 key pair.
const SeedSize = ed25519.SeedSize

// PublicKeySize is the size of an Ed25519 public key in bytes.
const PublicKeySize = ed25519.PublicKeySize

// ErrInvalidKey is returned when key bytes cannot be used as an Ed25519 key.
var ErrInvalidKey = errors.New("crypto: invalid key bytes")

// Signature is a detached Ed25519 signature.
type Signature [SignatureSize]byte

// KeyPair is an Ed25519 identity or device key pair. Private holds the
// 32-byte seed, not the expanded 64-byte signing key; Sign expands it on
// each call so the seed is the only secret that needs to be persisted or
// wiped.
type KeyPair struct {
	Public  [PublicKeySize]byte
	Private [SeedSize]byte
}

// GenerateKeyPair creates a new random Ed25519 key pair, suitable for a
// user's identity key or a device key.
func GenerateKeyPair() (*KeyPair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logrus.WithError(err).Error("crypto: key pair generation failed")
		return nil, err
	}

	kp := &KeyPair{}
	copy(kp.Public[:], public)
	copy(kp.Private[:], private.Seed())
	return kp, nil
}

// Sign produces an Ed25519 signature of message under the given seed.
// The seed must be exactly SeedSize bytes.
func Sign(seed [SeedSize]byte, message []byte) Signature {
	priv := ed25519.NewKeyFromSeed(seed[:])
	var sig Signature
	copy(sig[:], ed25519.Sign(priv, message))
	return sig
}

// Verify reports whether signature is a valid Ed25519 signature of message
// under publicKey. It never panics on malformed input, returning false
// instead; callers that need to distinguish "key decode failure" from
// "signature mismatch" should call ValidatePublicKey first.
func Verify(publicKey [PublicKeySize]byte, message []byte, signature Signature) bool {
	return ed25519.Verify(publicKey[:], message, signature[:])
}

// ValidatePublicKey reports whether b decodes to a usable Ed25519 public
// key, i.e. is exactly PublicKeySize bytes. It does not check that the
// bytes represent a point on the curve, since Ed25519 public keys are not
// validated that way; malformed keys simply fail every Verify call.
func ValidatePublicKey(b []byte) error {
	if len(b) != PublicKeySize {
		return ErrInvalidKey
	}
	return nil
}
