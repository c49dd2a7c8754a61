package wire

import "fmt"

// AllowedUser is an admin-issued registration invitation (spec.md §3).
type AllowedUser struct {
	Name           string
	Pin            uint32
	Expiry         int64
	TriesRemaining uint32
}

// Marshal encodes the record.
func (a AllowedUser) Marshal() ([]byte, error) {
	w := NewWriter()
	w.String(1, a.Name)
	w.Uint(2, uint64(a.Pin))
	w.Uint(3, uint64(a.Expiry))
	w.Uint(4, uint64(a.TriesRemaining))
	return w.Finish(), nil
}

// UnmarshalAllowedUser decodes an AllowedUser record.
func UnmarshalAllowedUser(data []byte) (*AllowedUser, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	a := &AllowedUser{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			a.Name = string(f.Bytes)
		case 2:
			a.Pin = uint32(f.Varint)
		case 3:
			a.Expiry = int64(f.Varint)
		case 4:
			a.TriesRemaining = uint32(f.Varint)
		}
	}
	return a, nil
}

// Device is one device belonging to a User (spec.md §3).
type Device struct {
	DeviceKey    [32]byte
	CreationTime int64
	IsActive     bool
	Application  string
}

// Marshal encodes the record.
func (d Device) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, d.DeviceKey[:])
	w.Uint(2, uint64(d.CreationTime))
	w.Bool(3, d.IsActive)
	w.String(4, d.Application)
	return w.Finish(), nil
}

// UnmarshalDevice decodes a Device record.
func UnmarshalDevice(data []byte) (*Device, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	d := &Device{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(d.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("device.deviceKey: %w", err)
			}
		case 2:
			d.CreationTime = int64(f.Varint)
		case 3:
			d.IsActive = f.Varint == 1
		case 4:
			d.Application = string(f.Bytes)
		}
	}
	return d, nil
}

// InternalUser is the server's record of a registered user (spec.md §3's
// "User"). It is a signed record: Signature covers the canonical encoding
// of the record with Signature cleared.
type InternalUser struct {
	IdentityKey        [32]byte
	CreationTime       int64
	Name               string
	Devices            []Device
	NotificationServer string
	Timestamp          int64
	Signature          [64]byte
}

// Marshal encodes the record.
func (u InternalUser) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, u.IdentityKey[:])
	w.Uint(2, uint64(u.CreationTime))
	w.String(3, u.Name)
	for _, d := range u.Devices {
		db, err := d.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(4, db)
	}
	w.String(5, u.NotificationServer)
	w.Uint(6, uint64(u.Timestamp))
	w.Bytes(7, u.Signature[:])
	return w.Finish(), nil
}

// WithZeroSignature implements wire.Signable.
func (u InternalUser) WithZeroSignature() Signable {
	u.Signature = [64]byte{}
	return u
}

// GetSignature returns the record's signature.
func (u InternalUser) GetSignature() [64]byte { return u.Signature }

// UnmarshalInternalUser decodes an InternalUser record.
func UnmarshalInternalUser(data []byte) (*InternalUser, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	u := &InternalUser{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(u.IdentityKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("internalUser.identityKey: %w", err)
			}
		case 2:
			u.CreationTime = int64(f.Varint)
		case 3:
			u.Name = string(f.Bytes)
		case 4:
			d, err := UnmarshalDevice(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("internalUser.devices: %w", err)
			}
			u.Devices = append(u.Devices, *d)
		case 5:
			u.NotificationServer = string(f.Bytes)
		case 6:
			u.Timestamp = int64(f.Varint)
		case 7:
			if err := PutFixed(u.Signature[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("internalUser.signature: %w", err)
			}
		}
	}
	return u, nil
}
