package rendezvous

import (
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/validator"
	"github.com/opd-ai/rendezvous/wire"
)

// RegisterDevice validates that newInfo appends exactly one device to its
// owner's current record, mints that device's auth token, and seeds its
// empty mailbox (spec.md §4.5 registerDevice).
func (s *Server) RegisterDevice(newInfo wire.InternalUser) ([16]byte, error) {
	const op = "registerDevice"

	prior, err := s.registry.GetUser(newInfo.IdentityKey)
	if err != nil {
		return [16]byte{}, err
	}
	if _, err := validator.ValidateUserMutation(prior, newInfo, validator.DeviceAdd, op); err != nil {
		return [16]byte{}, err
	}
	if err := validator.CheckFreshness(s.time, newInfo.Timestamp, op); err != nil {
		return [16]byte{}, err
	}
	if err := validator.SelfSignedUser(newInfo, op); err != nil {
		return [16]byte{}, err
	}

	rawToken, err := crypto.RandomBytes(16)
	if err != nil {
		return [16]byte{}, internalErr(op, err)
	}
	var authToken [16]byte
	copy(authToken[:], rawToken)

	if err := s.registry.RegisterDevice(newInfo.IdentityKey, newInfo, authToken); err != nil {
		return [16]byte{}, err
	}

	s.snapshot(op)
	return authToken, nil
}

// DeleteDevice validates that newInfo removes exactly one device from its
// owner's current record and drops that device's token, mailbox, and
// prekey pool (spec.md §4.5 deleteDevice).
func (s *Server) DeleteDevice(newInfo wire.InternalUser) error {
	const op = "deleteDevice"

	prior, err := s.registry.GetUser(newInfo.IdentityKey)
	if err != nil {
		return err
	}
	removed, err := validator.ValidateUserMutation(prior, newInfo, validator.DeviceRemove, op)
	if err != nil {
		return err
	}
	if err := validator.CheckFreshness(s.time, newInfo.Timestamp, op); err != nil {
		return err
	}
	if err := validator.SelfSignedUser(newInfo, op); err != nil {
		return err
	}

	if err := s.registry.DeleteDevice(newInfo.IdentityKey, newInfo, removed.DeviceKey); err != nil {
		return err
	}

	s.snapshot(op)
	return nil
}

// SetPushToken authenticates a device and stores its push-notification
// token (spec.md §4.5 setPushToken).
func (s *Server) SetPushToken(userKey, deviceKey [32]byte, token [16]byte, pushToken [16]byte) error {
	const op = "setPushToken"
	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return err
	}
	if err := s.registry.SetPushToken(deviceKey, pushToken); err != nil {
		return err
	}
	return nil
}
