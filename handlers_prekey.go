package rendezvous

import (
	"github.com/opd-ai/rendezvous/validator"
	"github.com/opd-ai/rendezvous/wire"
)

// AddDevicePreKeys authenticates the uploading (user, device) pair,
// verifies every prekey's signature under the device key, and appends
// them to the device's pool (spec.md §4.5 addDevicePreKeys).
func (s *Server) AddDevicePreKeys(request wire.DevicePrekeyUploadRequest) error {
	const op = "addDevicePreKeys"

	if _, err := s.registry.AuthenticateUser(request.UserKey, request.DeviceKey, request.AuthToken); err != nil {
		return err
	}
	if err := validator.ValidateDevicePreKeys(request.Keys, request.DeviceKey, op); err != nil {
		return err
	}

	remaining, err := s.storage.StorePreKeys(request.UserKey[:], request.DeviceKey[:], request.Keys)
	if err != nil {
		return internalErr(op, err)
	}
	count := uint32(remaining)
	if err := s.registry.SetRemainingCounts(request.DeviceKey, &count, nil); err != nil {
		return err
	}
	return nil
}

// GetDevicePreKeys authenticates the requesting (user, device) pair, then
// draws one batch per device across every device the user owns. The batch
// size is the cross-device minimum of count and each device's pool size,
// so every device's pool drains at the same rate (spec.md §4.2
// consumePreKeys, §4.5 getDevicePreKeys).
func (s *Server) GetDevicePreKeys(userKey, deviceKey [32]byte, token [16]byte, count uint32) (wire.DevicePreKeyBundle, error) {
	const op = "getDevicePreKeys"

	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return wire.DevicePreKeyBundle{}, err
	}

	user, err := s.registry.GetUser(userKey)
	if err != nil {
		return wire.DevicePreKeyBundle{}, err
	}

	devices := make([][]byte, 0, len(user.Devices))
	for _, d := range user.Devices {
		devices = append(devices, append([]byte(nil), d.DeviceKey[:]...))
	}

	available := int(count)
	for _, d := range devices {
		n, err := s.storage.PreKeyCount(userKey[:], d)
		if err != nil {
			return wire.DevicePreKeyBundle{}, internalErr(op, err)
		}
		if n < available {
			available = n
		}
	}

	results, err := s.storage.ConsumePreKeys(userKey[:], devices, available)
	if err != nil {
		return wire.DevicePreKeyBundle{}, internalErr(op, err)
	}

	entries := make([]wire.DevicePreKeyBundleEntry, 0, len(results))
	for _, result := range results {
		remaining := uint32(result.RemainingCount)
		if err := s.registry.SetRemainingCounts(result.DeviceKey, &remaining, nil); err != nil {
			return wire.DevicePreKeyBundle{}, err
		}
		entries = append(entries, wire.DevicePreKeyBundleEntry{
			DeviceKey:      result.DeviceKey,
			Keys:           result.Keys,
			RemainingCount: remaining,
		})
	}

	return wire.DevicePreKeyBundle{Devices: entries}, nil
}
