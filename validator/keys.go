package validator

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/wire"
)

// ValidateDevicePreKeys checks that every prekey's signature verifies
// under the owning device's key (spec.md §3 DevicePrekey invariant,
// §4.5 addDevicePreKeys/registerUserWithDeviceAndKeys).
func ValidateDevicePreKeys(keys []wire.DevicePrekey, deviceKey [32]byte, op string) error {
	for _, k := range keys {
		if err := VerifySigned(k, k.Signature, deviceKey, op); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTopicKeys checks that every topic key's signature verifies
// under the owning user's identity key (spec.md §3 TopicKey invariant,
// §4.5 registerUserWithDeviceAndKeys/addTopicKeys).
func ValidateTopicKeys(keys []wire.TopicKey, identityKey [32]byte, op string) error {
	for _, k := range keys {
		if err := VerifySigned(k, k.Signature, identityKey, op); err != nil {
			return err
		}
	}
	return nil
}
