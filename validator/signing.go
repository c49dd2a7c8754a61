package validator

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
)

// VerifySigned checks that signature is a valid Ed25519 signature by key
// over record's canonical zero-signature encoding (spec.md §4.4's
// "self-signed record" and "key-signed record" checks collapse to this
// one helper, per §9's "single helper" note: the only difference between
// the two is whether key comes from the record itself or from the
// caller).
func VerifySigned(record wire.Signable, signature [64]byte, key [32]byte, op string) error {
	signable, err := wire.SignableBytes(record)
	if err != nil {
		return apierr.Wrap(apierr.KindInternal, op, err)
	}
	if !crypto.Verify(key, signable, crypto.Signature(signature)) {
		return apierr.New(apierr.KindInvalidSignature, op, "signature verification failed")
	}
	return nil
}
