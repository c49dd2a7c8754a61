package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe attempts to securely erase the contents of a byte slice
// containing sensitive data. It returns an error if the byte slice is nil.
//
// This uses subtle.XORBytes to perform a constant-time XOR operation that
// the compiler cannot optimize away: XORing data with itself (x XOR x = 0)
// zeros it while resisting dead-store elimination.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}

	subtle.XORBytes(data, data, data)
	runtime.KeepAlive(data)

	return nil
}

// ZeroBytes erases the contents of a byte slice containing sensitive data,
// ignoring the error from SecureWipe.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKeyPair securely erases the private seed in a KeyPair.
func WipeKeyPair(kp *KeyPair) error {
	if kp == nil {
		return errors.New("cannot wipe nil KeyPair")
	}
	return SecureWipe(kp.Private[:])
}

// ConstantTimeEqual reports whether a and b hold identical bytes without
// branching on their content. Unequal-length slices are rejected without
// comparing content, matching subtle.ConstantTimeCompare's contract; the
// caller is expected to size-check ahead of time when lengths must match
// (e.g. auth tokens), since a length mismatch is itself a public fact.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
