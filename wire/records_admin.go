package wire

import "fmt"

// RegistrationBundle is the body of POST /user/register: the new user's
// signed info record plus the registration pin and the initial prekey and
// topic-key pools for its one device (spec.md §4.5
// registerUserWithDeviceAndKeys).
type RegistrationBundle struct {
	Info      InternalUser
	Pin       uint32
	PreKeys   []DevicePrekey
	TopicKeys []TopicKey
}

// Marshal encodes the record.
func (b RegistrationBundle) Marshal() ([]byte, error) {
	w := NewWriter()
	ib, err := b.Info.Marshal()
	if err != nil {
		return nil, err
	}
	w.Message(1, ib)
	w.Uint(2, uint64(b.Pin))
	for _, k := range b.PreKeys {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(3, kb)
	}
	for _, k := range b.TopicKeys {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(4, kb)
	}
	return w.Finish(), nil
}

// UnmarshalRegistrationBundle decodes a RegistrationBundle record.
func UnmarshalRegistrationBundle(data []byte) (*RegistrationBundle, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	b := &RegistrationBundle{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			info, err := UnmarshalInternalUser(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("registrationBundle.info: %w", err)
			}
			b.Info = *info
		case 2:
			b.Pin = uint32(f.Varint)
		case 3:
			k, err := UnmarshalDevicePrekey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("registrationBundle.preKeys: %w", err)
			}
			b.PreKeys = append(b.PreKeys, *k)
		case 4:
			k, err := UnmarshalTopicKey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("registrationBundle.topicKeys: %w", err)
			}
			b.TopicKeys = append(b.TopicKeys, *k)
		}
	}
	return b, nil
}

// ManagementData is the server's persisted registry snapshot (spec.md
// §6's "server" file): the admin token, the pending-registration table,
// and enough of the registered-user set to reconstruct in-memory state
// alongside the per-entity storage blobs.
type ManagementData struct {
	AdminToken   [16]byte
	AllowedUsers []AllowedUser
	Users        []InternalUser
}

// Marshal encodes the record.
func (m ManagementData) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, m.AdminToken[:])
	for _, a := range m.AllowedUsers {
		ab, err := a.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(2, ab)
	}
	for _, u := range m.Users {
		ub, err := u.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(3, ub)
	}
	return w.Finish(), nil
}

// UnmarshalManagementData decodes a ManagementData record.
func UnmarshalManagementData(data []byte) (*ManagementData, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	m := &ManagementData{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(m.AdminToken[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("managementData.adminToken: %w", err)
			}
		case 2:
			a, err := UnmarshalAllowedUser(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("managementData.allowedUsers: %w", err)
			}
			m.AllowedUsers = append(m.AllowedUsers, *a)
		case 3:
			u, err := UnmarshalInternalUser(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("managementData.users: %w", err)
			}
			m.Users = append(m.Users, *u)
		}
	}
	return m, nil
}
