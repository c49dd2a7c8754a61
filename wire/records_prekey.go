package wire

import "fmt"

// DevicePrekey is a single one-shot prekey owned by a device (spec.md §3).
type DevicePrekey struct {
	PreKey    []byte
	Signature [64]byte
}

// Marshal encodes the record.
func (p DevicePrekey) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, p.PreKey)
	w.Bytes(2, p.Signature[:])
	return w.Finish(), nil
}

// WithZeroSignature implements wire.Signable.
func (p DevicePrekey) WithZeroSignature() Signable {
	p.Signature = [64]byte{}
	return p
}

// GetSignature returns the record's signature.
func (p DevicePrekey) GetSignature() [64]byte { return p.Signature }

// UnmarshalDevicePrekey decodes a DevicePrekey record.
func UnmarshalDevicePrekey(data []byte) (*DevicePrekey, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	p := &DevicePrekey{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			p.PreKey = append([]byte(nil), f.Bytes...)
		case 2:
			if err := PutFixed(p.Signature[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("devicePrekey.signature: %w", err)
			}
		}
	}
	return p, nil
}

// DevicePreKeyList is the on-disk pool of one device's unconsumed prekeys
// (storage's `users/<userKey>/prekeys/<deviceKey>` blob).
type DevicePreKeyList struct {
	DeviceKey [32]byte
	Keys      []DevicePrekey
}

// Marshal encodes the record.
func (l DevicePreKeyList) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, l.DeviceKey[:])
	for _, k := range l.Keys {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(2, kb)
	}
	return w.Finish(), nil
}

// UnmarshalDevicePreKeyList decodes a DevicePreKeyList record.
func UnmarshalDevicePreKeyList(data []byte) (*DevicePreKeyList, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	l := &DevicePreKeyList{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(l.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("devicePreKeyList.deviceKey: %w", err)
			}
		case 2:
			k, err := UnmarshalDevicePrekey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("devicePreKeyList.keys: %w", err)
			}
			l.Keys = append(l.Keys, *k)
		}
	}
	return l, nil
}

// DevicePreKeyBundleEntry is one device's share of a prekey-consumption
// response: the batch drawn from that device's pool plus its new
// remaining count.
type DevicePreKeyBundleEntry struct {
	DeviceKey      [32]byte
	Keys           []DevicePrekey
	RemainingCount uint32
}

// Marshal encodes the record.
func (e DevicePreKeyBundleEntry) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, e.DeviceKey[:])
	for _, k := range e.Keys {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(2, kb)
	}
	w.Uint(3, uint64(e.RemainingCount))
	return w.Finish(), nil
}

// UnmarshalDevicePreKeyBundleEntry decodes a DevicePreKeyBundleEntry record.
func UnmarshalDevicePreKeyBundleEntry(data []byte) (*DevicePreKeyBundleEntry, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	e := &DevicePreKeyBundleEntry{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(e.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("devicePreKeyBundleEntry.deviceKey: %w", err)
			}
		case 2:
			k, err := UnmarshalDevicePrekey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("devicePreKeyBundleEntry.keys: %w", err)
			}
			e.Keys = append(e.Keys, *k)
		case 3:
			e.RemainingCount = uint32(f.Varint)
		}
	}
	return e, nil
}

// DevicePreKeyBundle is the response to a prekey-consumption request: one
// batch per device across every device of the authenticated user, drawn
// at the cross-device minimum pool size (spec.md §4.2 consumePreKeys,
// §4.5 getDevicePreKeys).
type DevicePreKeyBundle struct {
	Devices []DevicePreKeyBundleEntry
}

// Marshal encodes the record.
func (b DevicePreKeyBundle) Marshal() ([]byte, error) {
	w := NewWriter()
	for _, d := range b.Devices {
		db, err := d.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(1, db)
	}
	return w.Finish(), nil
}

// UnmarshalDevicePreKeyBundle decodes a DevicePreKeyBundle record.
func UnmarshalDevicePreKeyBundle(data []byte) (*DevicePreKeyBundle, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	b := &DevicePreKeyBundle{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			e, err := UnmarshalDevicePreKeyBundleEntry(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("devicePreKeyBundle.devices: %w", err)
			}
			b.Devices = append(b.Devices, *e)
		}
	}
	return b, nil
}

// DevicePrekeyUploadRequest is the body of POST /device/prekeys: the
// uploading device authenticates itself and appends to its own pool.
type DevicePrekeyUploadRequest struct {
	UserKey   [32]byte
	DeviceKey [32]byte
	AuthToken [16]byte
	Keys      []DevicePrekey
}

// Marshal encodes the record.
func (r DevicePrekeyUploadRequest) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, r.UserKey[:])
	w.Bytes(2, r.DeviceKey[:])
	w.Bytes(3, r.AuthToken[:])
	for _, k := range r.Keys {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(4, kb)
	}
	return w.Finish(), nil
}

// UnmarshalDevicePrekeyUploadRequest decodes a DevicePrekeyUploadRequest.
func UnmarshalDevicePrekeyUploadRequest(data []byte) (*DevicePrekeyUploadRequest, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	r := &DevicePrekeyUploadRequest{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(r.UserKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("devicePrekeyUploadRequest.userKey: %w", err)
			}
		case 2:
			if err := PutFixed(r.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("devicePrekeyUploadRequest.deviceKey: %w", err)
			}
		case 3:
			if err := PutFixed(r.AuthToken[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("devicePrekeyUploadRequest.authToken: %w", err)
			}
		case 4:
			k, err := UnmarshalDevicePrekey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("devicePrekeyUploadRequest.keys: %w", err)
			}
			r.Keys = append(r.Keys, *k)
		}
	}
	return r, nil
}
