package wire

// Signable is implemented by any record whose wire format carries its own
// signature field. WithZeroSignature must return a copy of the record (or
// the record itself, if the caller doesn't need the original preserved)
// with the signature field cleared, ready for canonical re-encoding.
type Signable interface {
	WithZeroSignature() Signable
	Marshal() ([]byte, error)
}

// SignableBytes returns the canonical byte sequence a record's signature
// covers: the record marshaled with its signature field zeroed. Every
// self-signed or key-signed verification in validator/ calls this single
// helper (spec.md §9's "implementers should write a single helper that
// operates on any record implementing {getSignature, withSignature}").
func SignableBytes(r Signable) ([]byte, error) {
	return r.WithZeroSignature().Marshal()
}
