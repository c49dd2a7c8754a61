package rendezvous

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/validator"
	"github.com/opd-ai/rendezvous/wire"
)

// RegisterUserWithDeviceAndKeys admits a pending registration into a full
// User record with its one device, mints a device auth token, and seeds
// the device's prekey and topic-key pools (spec.md §4.5
// registerUserWithDeviceAndKeys).
func (s *Server) RegisterUserWithDeviceAndKeys(bundle wire.RegistrationBundle) ([16]byte, error) {
	const op = "registerUserWithDeviceAndKeys"

	if !s.registry.CanRegister(bundle.Info.Name, bundle.Pin) {
		return [16]byte{}, apierr.New(apierr.KindAuthenticationFailed, op, "unknown name or incorrect pin")
	}
	if err := validator.ValidateRegistrationInfo(bundle.Info, op); err != nil {
		return [16]byte{}, err
	}
	if err := validator.CheckFreshness(s.time, bundle.Info.Timestamp, op); err != nil {
		return [16]byte{}, err
	}
	deviceKey := bundle.Info.Devices[0].DeviceKey
	if err := validator.ValidateDevicePreKeys(bundle.PreKeys, deviceKey, op); err != nil {
		return [16]byte{}, err
	}
	if err := validator.ValidateTopicKeys(bundle.TopicKeys, bundle.Info.IdentityKey, op); err != nil {
		return [16]byte{}, err
	}

	rawToken, err := crypto.RandomBytes(16)
	if err != nil {
		return [16]byte{}, internalErr(op, err)
	}
	var authToken [16]byte
	copy(authToken[:], rawToken)

	if _, err := s.storage.StorePreKeys(bundle.Info.IdentityKey[:], deviceKey[:], bundle.PreKeys); err != nil {
		return [16]byte{}, internalErr(op, err)
	}
	if _, err := s.storage.StoreTopicKeys(bundle.Info.IdentityKey[:], bundle.Info.Devices[0].Application, bundle.TopicKeys); err != nil {
		return [16]byte{}, internalErr(op, err)
	}

	if err := s.registry.RegisterUser(bundle.Info, authToken, uint32(len(bundle.PreKeys)), uint32(len(bundle.TopicKeys))); err != nil {
		return [16]byte{}, err
	}

	s.snapshot(op)
	return authToken, nil
}

// GetUserInfo authenticates a device and returns the current User record
// for its owner (spec.md §4.5 getUserInfo).
func (s *Server) GetUserInfo(userKey, deviceKey [32]byte, token [16]byte) (wire.InternalUser, error) {
	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return wire.InternalUser{}, err
	}
	return s.registry.GetUser(userKey)
}

// DeleteUser validates signedInfo as a fresh self-signed record and
// removes the user, every device's token and mailbox, and the storage
// tree (spec.md §4.5 deleteUser).
func (s *Server) DeleteUser(signedInfo wire.InternalUser) error {
	const op = "deleteUser"
	if err := validator.CheckFreshness(s.time, signedInfo.Timestamp, op); err != nil {
		return err
	}
	if err := validator.SelfSignedUser(signedInfo, op); err != nil {
		return err
	}
	if _, err := s.registry.DeleteUser(signedInfo.IdentityKey); err != nil {
		return err
	}
	if err := s.storage.DeleteUserTree(signedInfo.IdentityKey[:]); err != nil {
		return internalErr(op, err)
	}
	s.snapshot(op)
	return nil
}
