package validator

import (
	"net/url"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
)

// MaxNameLength is the longest allowed AllowedUser/User display name
// (spec.md §3: "name (≤32 chars)").
const MaxNameLength = 32

// MaxApplicationLength is the longest allowed Device.Application id
// (spec.md §3: "application (app id, ≤10 chars)").
const MaxApplicationLength = 10

// ValidateName rejects names longer than MaxNameLength.
func ValidateName(name, op string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return apierr.New(apierr.KindInvalidRequest, op, "name length out of bounds")
	}
	return nil
}

// ValidateApplication rejects application ids longer than
// MaxApplicationLength.
func ValidateApplication(app, op string) error {
	if len(app) == 0 || len(app) > MaxApplicationLength {
		return apierr.New(apierr.KindInvalidRequest, op, "application id length out of bounds")
	}
	return nil
}

// ValidateNotificationServer accepts an empty string or a parseable URL
// (spec.md §4.5 registerUserWithDeviceAndKeys: "notification server URL
// parses or is empty").
func ValidateNotificationServer(raw, op string) error {
	if raw == "" {
		return nil
	}
	if _, err := url.Parse(raw); err != nil {
		return apierr.New(apierr.KindInvalidRequest, op, "notification server URL does not parse")
	}
	return nil
}

// SelfSignedUser verifies that info's signature is valid under its own
// identity key over the canonical zero-signature encoding (spec.md §3's
// User invariant).
func SelfSignedUser(info wire.InternalUser, op string) error {
	return VerifySigned(info, info.Signature, info.IdentityKey, op)
}

// ValidateRegistrationInfo runs the structural checks spec.md §4.5
// registerUserWithDeviceAndKeys names on a brand-new user record: exactly
// one device, a name within bounds, an application id within bounds, a
// parseable-or-empty notification server, and a valid self-signature.
func ValidateRegistrationInfo(info wire.InternalUser, op string) error {
	if len(info.Devices) != 1 {
		return apierr.New(apierr.KindInvalidRequest, op, "registration bundle must carry exactly one device")
	}
	if err := ValidateName(info.Name, op); err != nil {
		return err
	}
	if err := ValidateApplication(info.Devices[0].Application, op); err != nil {
		return err
	}
	if err := ValidateNotificationServer(info.NotificationServer, op); err != nil {
		return err
	}
	if err := crypto.ValidatePublicKey(info.IdentityKey[:]); err != nil {
		return apierr.Wrap(apierr.KindInvalidRequest, op, err)
	}
	return SelfSignedUser(info, op)
}

// mutationKind distinguishes the two shapes of user-record mutation
// spec.md §4.5 supports.
type mutationKind int

const (
	// DeviceAdd requires exactly one new device appended at the tail.
	DeviceAdd mutationKind = iota
	// DeviceRemove requires exactly one device removed.
	DeviceRemove
)

// ValidateUserMutation enforces spec.md §4.4's "structural invariants for
// user mutation": creationTime, name, and notificationServer are
// unchanged; timestamp strictly increases; and devices differ from the
// prior record by exactly one add (at the tail) or exactly one removal,
// per kind. It returns the single device that was added or removed.
//
// Both registerDevice and deleteDevice use a strictly-greater timestamp
// check here (spec.md §9's open question: the source used `≥` for
// registerDevice and `>` for deleteDevice; property 8.5 assumes `>` for
// both on any rewrite, so this implementation applies `>` uniformly).
func ValidateUserMutation(prior, next wire.InternalUser, kind mutationKind, op string) (wire.Device, error) {
	var zero wire.Device

	if next.CreationTime != prior.CreationTime {
		return zero, apierr.New(apierr.KindInvalidRequest, op, "creationTime must not change")
	}
	if next.Name != prior.Name {
		return zero, apierr.New(apierr.KindInvalidRequest, op, "name must not change")
	}
	if next.NotificationServer != prior.NotificationServer {
		return zero, apierr.New(apierr.KindInvalidRequest, op, "notificationServer must not change")
	}
	if next.Timestamp <= prior.Timestamp {
		return zero, apierr.New(apierr.KindRequestOutdated, op, "timestamp must strictly increase")
	}

	switch kind {
	case DeviceAdd:
		if len(next.Devices) != len(prior.Devices)+1 {
			return zero, apierr.New(apierr.KindInvalidRequest, op, "exactly one device must be appended")
		}
		for i, d := range prior.Devices {
			if d != next.Devices[i] {
				return zero, apierr.New(apierr.KindInvalidRequest, op, "existing devices must not change")
			}
		}
		added := next.Devices[len(next.Devices)-1]
		if err := ValidateApplication(added.Application, op); err != nil {
			return zero, err
		}
		return added, nil

	case DeviceRemove:
		if len(next.Devices) != len(prior.Devices)-1 {
			return zero, apierr.New(apierr.KindInvalidRequest, op, "exactly one device must be removed")
		}
		removed, ok := singleRemoved(prior.Devices, next.Devices)
		if !ok {
			return zero, apierr.New(apierr.KindInvalidRequest, op, "devices must differ by exactly one removal")
		}
		return removed, nil
	}

	return zero, apierr.New(apierr.KindInternal, op, "unknown mutation kind")
}

// singleRemoved reports whether next is prior with exactly one element
// removed (order preserved for the rest), returning the removed element.
func singleRemoved(prior, next []wire.Device) (wire.Device, bool) {
	i, j := 0, 0
	var removed wire.Device
	found := false
	for i < len(prior) {
		if j < len(next) && prior[i] == next[j] {
			i++
			j++
			continue
		}
		if found {
			return wire.Device{}, false
		}
		removed = prior[i]
		found = true
		i++
	}
	if j != len(next) {
		return wire.Device{}, false
	}
	return removed, found
}
