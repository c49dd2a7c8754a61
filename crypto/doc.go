// Package crypto implements the cryptographic primitives used by the
// rendezvous server: Ed25519 signature verification and generation over
// caller-supplied key bytes, SHA-256 hashing, cryptographically secure
// random byte generation, and constant-time comparison.
//
// The server never decrypts or interprets payload bytes produced by
// clients; every primitive here operates on opaque byte slices and keys
// supplied by the caller. Signature verification is the backbone of the
// registry's trust model — nearly every mutating request resolves to a
// call into this package.
//
// # Signatures
//
//	kp, err := crypto.GenerateKeyPair()
//	sig := crypto.Sign(kp.Private, message)
//	ok := crypto.Verify(kp.Public, message, sig)
//
// # Secure Memory Handling
//
// Private key material should be wiped after use:
//
//	defer crypto.SecureWipe(kp.Private[:])
package crypto
