package storage

import (
	"fmt"
	"os"

	"github.com/opd-ai/rendezvous/wire"
)

func (s *Store) loadPreKeyList(userKey, deviceKey []byte) (*wire.DevicePreKeyList, error) {
	data, err := os.ReadFile(s.preKeyPath(userKey, deviceKey))
	if os.IsNotExist(err) {
		var dk [32]byte
		copy(dk[:], deviceKey)
		return &wire.DevicePreKeyList{DeviceKey: dk}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read prekey list: %w", err)
	}
	return wire.UnmarshalDevicePreKeyList(data)
}

func (s *Store) savePreKeyList(userKey []byte, list *wire.DevicePreKeyList) error {
	if len(list.Keys) == 0 {
		if err := os.Remove(s.preKeyPath(userKey, list.DeviceKey[:])); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := list.Marshal()
	if err != nil {
		return fmt.Errorf("storage: encode prekey list: %w", err)
	}
	return writeAtomic(s.preKeyPath(userKey, list.DeviceKey[:]), data)
}

// StorePreKeys appends newKeys to a device's prekey pool, returning the
// pool's new size (spec.md §4.2 storePreKeys).
func (s *Store) StorePreKeys(userKey, deviceKey []byte, newKeys []wire.DevicePrekey) (int, error) {
	list, err := s.loadPreKeyList(userKey, deviceKey)
	if err != nil {
		return 0, err
	}
	list.Keys = append(list.Keys, newKeys...)
	if err := s.savePreKeyList(userKey, list); err != nil {
		return 0, err
	}
	return len(list.Keys), nil
}

// DevicePreKeyResult is one device's consumed prekeys and its remaining
// pool size, as returned by ConsumePreKeys.
type DevicePreKeyResult struct {
	DeviceKey      [32]byte
	Keys           []wire.DevicePrekey
	RemainingCount int
}

// ConsumePreKeys removes up to nPerDevice prekeys from the head of each
// listed device's pool. The number actually removed per device is
// min(nPerDevice, that device's pool size). The cross-device minimum of
// spec.md §4.2 is applied by the caller: getDevicePreKeys computes it
// over every device of the user and passes it as nPerDevice.
func (s *Store) ConsumePreKeys(userKey []byte, devices [][]byte, nPerDevice int) ([]DevicePreKeyResult, error) {
	results := make([]DevicePreKeyResult, 0, len(devices))
	for _, deviceKey := range devices {
		list, err := s.loadPreKeyList(userKey, deviceKey)
		if err != nil {
			return nil, err
		}
		take := nPerDevice
		if take > len(list.Keys) {
			take = len(list.Keys)
		}
		taken := append([]wire.DevicePrekey(nil), list.Keys[:take]...)
		list.Keys = list.Keys[take:]
		if err := s.savePreKeyList(userKey, list); err != nil {
			return nil, err
		}
		results = append(results, DevicePreKeyResult{
			DeviceKey:      list.DeviceKey,
			Keys:           taken,
			RemainingCount: len(list.Keys),
		})
	}
	return results, nil
}

// PreKeyCount returns the current size of a device's prekey pool.
func (s *Store) PreKeyCount(userKey, deviceKey []byte) (int, error) {
	list, err := s.loadPreKeyList(userKey, deviceKey)
	if err != nil {
		return 0, err
	}
	return len(list.Keys), nil
}
