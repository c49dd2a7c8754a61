package wire

import "fmt"

// TopicKey is a user's one-shot per-(user, appId) signature/encryption key
// pair, signed by the user's identity key over the record's canonical
// encoding with Signature cleared (the Signable convention, checked by
// validator.ValidateTopicKeys).
type TopicKey struct {
	SignatureKey  [32]byte
	EncryptionKey [32]byte
	Signature     [64]byte
}

// Marshal encodes the record.
func (k TopicKey) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, k.SignatureKey[:])
	w.Bytes(2, k.EncryptionKey[:])
	w.Bytes(3, k.Signature[:])
	return w.Finish(), nil
}

// WithZeroSignature implements wire.Signable.
func (k TopicKey) WithZeroSignature() Signable {
	k.Signature = [64]byte{}
	return k
}

// GetSignature returns the record's signature.
func (k TopicKey) GetSignature() [64]byte { return k.Signature }

// UnmarshalTopicKey decodes a TopicKey record.
func UnmarshalTopicKey(data []byte) (*TopicKey, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	k := &TopicKey{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(k.SignatureKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKey.signatureKey: %w", err)
			}
		case 2:
			if err := PutFixed(k.EncryptionKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKey.encryptionKey: %w", err)
			}
		case 3:
			if err := PutFixed(k.Signature[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKey.signature: %w", err)
			}
		}
	}
	return k, nil
}

// TopicKeyList is the on-disk queue of one (user, appId) pair's unconsumed
// topic keys.
type TopicKeyList struct {
	AppID string
	Keys  []TopicKey
}

// Marshal encodes the record.
func (l TopicKeyList) Marshal() ([]byte, error) {
	w := NewWriter()
	w.String(1, l.AppID)
	for _, k := range l.Keys {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(2, kb)
	}
	return w.Finish(), nil
}

// UnmarshalTopicKeyList decodes a TopicKeyList record.
func UnmarshalTopicKeyList(data []byte) (*TopicKeyList, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	l := &TopicKeyList{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			l.AppID = string(f.Bytes)
		case 2:
			k, err := UnmarshalTopicKey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicKeyList.keys: %w", err)
			}
			l.Keys = append(l.Keys, *k)
		}
	}
	return l, nil
}

// TopicKeyMessage is one recipient device's encrypted copy of an uploaded
// topic key (addTopicKeys fans one key out to every other device).
type TopicKeyMessage struct {
	RecipientDevice [32]byte
	SignatureKey    [32]byte
	EncryptedData   []byte
}

// Marshal encodes the record.
func (m TopicKeyMessage) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, m.RecipientDevice[:])
	w.Bytes(2, m.SignatureKey[:])
	w.Bytes(3, m.EncryptedData)
	return w.Finish(), nil
}

// UnmarshalTopicKeyMessage decodes a TopicKeyMessage record.
func UnmarshalTopicKeyMessage(data []byte) (*TopicKeyMessage, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	m := &TopicKeyMessage{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(m.RecipientDevice[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyMessage.recipientDevice: %w", err)
			}
		case 2:
			if err := PutFixed(m.SignatureKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyMessage.signatureKey: %w", err)
			}
		case 3:
			m.EncryptedData = append([]byte(nil), f.Bytes...)
		}
	}
	return m, nil
}

// TopicKeyMessageList groups the TopicKeyMessages meant for one device,
// as carried inside a TopicKeyBundle upload.
type TopicKeyMessageList struct {
	DeviceKey [32]byte
	Messages  []TopicKeyMessage
}

// Marshal encodes the record.
func (l TopicKeyMessageList) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, l.DeviceKey[:])
	for _, m := range l.Messages {
		mb, err := m.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(2, mb)
	}
	return w.Finish(), nil
}

// UnmarshalTopicKeyMessageList decodes a TopicKeyMessageList record.
func UnmarshalTopicKeyMessageList(data []byte) (*TopicKeyMessageList, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	l := &TopicKeyMessageList{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(l.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyMessageList.deviceKey: %w", err)
			}
		case 2:
			m, err := UnmarshalTopicKeyMessage(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicKeyMessageList.messages: %w", err)
			}
			l.Messages = append(l.Messages, *m)
		}
	}
	return l, nil
}

// TopicKeyBundle is the body of POST /user/topickeys: one uploading
// device's new topic keys for an application, plus the per-device
// encrypted fanout messages for every other device (spec.md §4.5
// addTopicKeys).
type TopicKeyBundle struct {
	UserKey   [32]byte
	DeviceKey [32]byte
	AuthToken [16]byte
	AppID     string
	Keys      []TopicKey
	Messages  []TopicKeyMessageList
}

// Marshal encodes the record.
func (b TopicKeyBundle) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, b.UserKey[:])
	w.Bytes(2, b.DeviceKey[:])
	w.Bytes(3, b.AuthToken[:])
	w.String(4, b.AppID)
	for _, k := range b.Keys {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(5, kb)
	}
	for _, m := range b.Messages {
		mb, err := m.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(6, mb)
	}
	return w.Finish(), nil
}

// UnmarshalTopicKeyBundle decodes a TopicKeyBundle record.
func UnmarshalTopicKeyBundle(data []byte) (*TopicKeyBundle, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	b := &TopicKeyBundle{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(b.UserKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyBundle.userKey: %w", err)
			}
		case 2:
			if err := PutFixed(b.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyBundle.deviceKey: %w", err)
			}
		case 3:
			if err := PutFixed(b.AuthToken[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyBundle.authToken: %w", err)
			}
		case 4:
			b.AppID = string(f.Bytes)
		case 5:
			k, err := UnmarshalTopicKey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicKeyBundle.keys: %w", err)
			}
			b.Keys = append(b.Keys, *k)
		case 6:
			m, err := UnmarshalTopicKeyMessageList(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicKeyBundle.messages: %w", err)
			}
			b.Messages = append(b.Messages, *m)
		}
	}
	return b, nil
}

// TopicKeyRequest is the body of POST /users/topickey: a bulk request for
// one topic key per listed user (spec.md §4.5 getTopicKeys).
type TopicKeyRequest struct {
	UserKey   [32]byte
	DeviceKey [32]byte
	AuthToken [16]byte
	AppID     string
	Receivers [][32]byte
}

// Marshal encodes the record.
func (r TopicKeyRequest) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, r.UserKey[:])
	w.Bytes(2, r.DeviceKey[:])
	w.Bytes(3, r.AuthToken[:])
	w.String(4, r.AppID)
	for _, rk := range r.Receivers {
		w.Bytes(5, rk[:])
	}
	return w.Finish(), nil
}

// UnmarshalTopicKeyRequest decodes a TopicKeyRequest record.
func UnmarshalTopicKeyRequest(data []byte) (*TopicKeyRequest, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	r := &TopicKeyRequest{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(r.UserKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyRequest.userKey: %w", err)
			}
		case 2:
			if err := PutFixed(r.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyRequest.deviceKey: %w", err)
			}
		case 3:
			if err := PutFixed(r.AuthToken[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyRequest.authToken: %w", err)
			}
		case 4:
			r.AppID = string(f.Bytes)
		case 5:
			var rk [32]byte
			if err := PutFixed(rk[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyRequest.receivers: %w", err)
			}
			r.Receivers = append(r.Receivers, rk)
		}
	}
	return r, nil
}

// TopicKeyResponse is one entry per user in a bulk topic-key request's
// response; users whose queue was empty are simply absent.
type TopicKeyResponse struct {
	Entries []TopicKeyResponseEntry
}

// TopicKeyResponseEntry pairs a user with the key consumed for them.
type TopicKeyResponseEntry struct {
	UserKey [32]byte
	Key     TopicKey
}

// Marshal encodes the record.
func (r TopicKeyResponse) Marshal() ([]byte, error) {
	w := NewWriter()
	for _, e := range r.Entries {
		eb, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(1, eb)
	}
	return w.Finish(), nil
}

// Marshal encodes one response entry.
func (e TopicKeyResponseEntry) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, e.UserKey[:])
	kb, err := e.Key.Marshal()
	if err != nil {
		return nil, err
	}
	w.Message(2, kb)
	return w.Finish(), nil
}

// UnmarshalTopicKeyResponseEntry decodes a TopicKeyResponseEntry record.
func UnmarshalTopicKeyResponseEntry(data []byte) (*TopicKeyResponseEntry, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	e := &TopicKeyResponseEntry{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(e.UserKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicKeyResponseEntry.userKey: %w", err)
			}
		case 2:
			k, err := UnmarshalTopicKey(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicKeyResponseEntry.key: %w", err)
			}
			e.Key = *k
		}
	}
	return e, nil
}

// UnmarshalTopicKeyResponse decodes a TopicKeyResponse record.
func UnmarshalTopicKeyResponse(data []byte) (*TopicKeyResponse, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	r := &TopicKeyResponse{}
	for _, f := range fields {
		if f.Number == 1 {
			e, err := UnmarshalTopicKeyResponseEntry(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicKeyResponse.entries: %w", err)
			}
			r.Entries = append(r.Entries, *e)
		}
	}
	return r, nil
}
