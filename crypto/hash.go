package crypto

import "crypto/sha256"

// HashSize is the size of a SHA-256 digest in bytes.
const HashSize = sha256.Size

// SHA256 hashes the concatenation of parts and returns the digest. It is
// used both for checking uploaded files against their referenced hash and
// for the per-topic hash chain, where output_i = SHA256(output_{i-1} || update_i.signature).
func SHA256(parts ...[]byte) [HashSize]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}
