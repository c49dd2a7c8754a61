package wire

import "fmt"

// Role is a member's standing inside a Topic.
type Role uint32

// The three roles a topic member can hold (spec.md §3).
const (
	RoleAdmin Role = iota + 1
	RoleParticipant
	RoleObserver
)

// CreationInfo proves a member's inclusion in a topic: the member's
// identity key signs the raw concatenation signatureKey || encryptionKey
// (spec.md §4.4 topic-creation invariants).
type CreationInfo struct {
	UserKey       [32]byte
	EncryptionKey [32]byte
	Signature     [64]byte
}

// Marshal encodes the record.
func (c CreationInfo) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, c.UserKey[:])
	w.Bytes(2, c.EncryptionKey[:])
	w.Bytes(3, c.Signature[:])
	return w.Finish(), nil
}

// UnmarshalCreationInfo decodes a CreationInfo record.
func UnmarshalCreationInfo(data []byte) (*CreationInfo, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	c := &CreationInfo{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(c.UserKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("creationInfo.userKey: %w", err)
			}
		case 2:
			if err := PutFixed(c.EncryptionKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("creationInfo.encryptionKey: %w", err)
			}
		case 3:
			if err := PutFixed(c.Signature[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("creationInfo.signature: %w", err)
			}
		}
	}
	return c, nil
}

// MemberInfo is one entry in a Topic's member list.
type MemberInfo struct {
	SignatureKey        [32]byte
	Role                Role
	EncryptedMessageKey []byte
	HasCreationInfo     bool
	CreationInfo        CreationInfo
}

// Marshal encodes the record.
func (m MemberInfo) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, m.SignatureKey[:])
	w.Uint(2, uint64(m.Role))
	w.Bytes(3, m.EncryptedMessageKey)
	if m.HasCreationInfo {
		cb, err := m.CreationInfo.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(4, cb)
	}
	return w.Finish(), nil
}

// UnmarshalMemberInfo decodes a MemberInfo record.
func UnmarshalMemberInfo(data []byte) (*MemberInfo, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	m := &MemberInfo{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(m.SignatureKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("memberInfo.signatureKey: %w", err)
			}
		case 2:
			m.Role = Role(f.Varint)
		case 3:
			m.EncryptedMessageKey = append([]byte(nil), f.Bytes...)
		case 4:
			c, err := UnmarshalCreationInfo(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("memberInfo.creationInfo: %w", err)
			}
			m.HasCreationInfo = true
			m.CreationInfo = *c
		}
	}
	return m, nil
}

// Topic is the creation/update record for one topic (spec.md §3). It is a
// signed record: Signature is produced by
// members[IndexOfMessageCreator].SignatureKey over the record with
// Signature cleared.
type Topic struct {
	TopicID               [12]byte
	Application           string
	CreationTime          int64
	IndexOfMessageCreator uint32
	Members               []MemberInfo
	Timestamp             int64
	Signature             [64]byte
}

// Marshal encodes the record.
func (t Topic) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, t.TopicID[:])
	w.String(2, t.Application)
	w.Uint(3, uint64(t.CreationTime))
	w.Uint(4, uint64(t.IndexOfMessageCreator))
	for _, m := range t.Members {
		mb, err := m.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(5, mb)
	}
	w.Uint(6, uint64(t.Timestamp))
	w.Bytes(7, t.Signature[:])
	return w.Finish(), nil
}

// WithZeroSignature implements wire.Signable.
func (t Topic) WithZeroSignature() Signable {
	t.Signature = [64]byte{}
	return t
}

// GetSignature returns the record's signature.
func (t Topic) GetSignature() [64]byte { return t.Signature }

// UnmarshalTopic decodes a Topic record.
func UnmarshalTopic(data []byte) (*Topic, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	t := &Topic{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(t.TopicID[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topic.topicId: %w", err)
			}
		case 2:
			t.Application = string(f.Bytes)
		case 3:
			t.CreationTime = int64(f.Varint)
		case 4:
			t.IndexOfMessageCreator = uint32(f.Varint)
		case 5:
			m, err := UnmarshalMemberInfo(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topic.members: %w", err)
			}
			t.Members = append(t.Members, *m)
		case 6:
			t.Timestamp = int64(f.Varint)
		case 7:
			if err := PutFixed(t.Signature[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topic.signature: %w", err)
			}
		}
	}
	return t, nil
}

// FileData is one opaque file attached to a TopicUpdateUpload: the raw
// bytes accompanying a file reference whose hash must match.
type FileData struct {
	ID   [12]byte
	Data []byte
}

// Marshal encodes the record.
func (d FileData) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, d.ID[:])
	w.Bytes(2, d.Data)
	return w.Finish(), nil
}

// UnmarshalFileData decodes a FileData record.
func UnmarshalFileData(data []byte) (*FileData, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	d := &FileData{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(d.ID[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("fileData.id: %w", err)
			}
		case 2:
			d.Data = append([]byte(nil), f.Bytes...)
		}
	}
	return d, nil
}

// FileRef is a reference to an opaque file attached to a TopicUpdate: its
// content address plus the authentication tag protecting it.
type FileRef struct {
	ID   [12]byte
	Hash [32]byte
	Tag  [16]byte
}

// Marshal encodes the record.
func (r FileRef) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, r.ID[:])
	w.Bytes(2, r.Hash[:])
	w.Bytes(3, r.Tag[:])
	return w.Finish(), nil
}

// UnmarshalFileRef decodes a FileRef record.
func UnmarshalFileRef(data []byte) (*FileRef, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	r := &FileRef{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(r.ID[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("fileRef.id: %w", err)
			}
		case 2:
			if err := PutFixed(r.Hash[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("fileRef.hash: %w", err)
			}
		case 3:
			if err := PutFixed(r.Tag[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("fileRef.tag: %w", err)
			}
		}
	}
	return r, nil
}

// TopicUpdate is a signed append to a topic (spec.md §3). Signature is
// produced by the author's topic signature key over the record with
// Signature cleared.
type TopicUpdate struct {
	IndexInMemberList uint32
	Files             []FileRef
	Metadata          []byte
	Signature         [64]byte
}

// Marshal encodes the record.
func (u TopicUpdate) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Uint(1, uint64(u.IndexInMemberList))
	for _, f := range u.Files {
		fb, err := f.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(2, fb)
	}
	w.Bytes(3, u.Metadata)
	w.Bytes(4, u.Signature[:])
	return w.Finish(), nil
}

// WithZeroSignature implements wire.Signable.
func (u TopicUpdate) WithZeroSignature() Signable {
	u.Signature = [64]byte{}
	return u
}

// GetSignature returns the record's signature.
func (u TopicUpdate) GetSignature() [64]byte { return u.Signature }

// UnmarshalTopicUpdate decodes a TopicUpdate record.
func UnmarshalTopicUpdate(data []byte) (*TopicUpdate, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	u := &TopicUpdate{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			u.IndexInMemberList = uint32(f.Varint)
		case 2:
			fr, err := UnmarshalFileRef(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicUpdate.files: %w", err)
			}
			u.Files = append(u.Files, *fr)
		case 3:
			u.Metadata = append([]byte(nil), f.Bytes...)
		case 4:
			if err := PutFixed(u.Signature[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicUpdate.signature: %w", err)
			}
		}
	}
	return u, nil
}

// TopicUpdateUpload is the body of POST /topic/message: a signed
// TopicUpdate plus the raw bytes of any files it references for the first
// time (spec.md §4.5 addMessage).
type TopicUpdateUpload struct {
	DeviceKey [32]byte
	AuthToken [16]byte
	TopicID   [12]byte
	Update    TopicUpdate
	Files     []FileData
}

// Marshal encodes the record.
func (u TopicUpdateUpload) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, u.DeviceKey[:])
	w.Bytes(2, u.AuthToken[:])
	w.Bytes(3, u.TopicID[:])
	ub, err := u.Update.Marshal()
	if err != nil {
		return nil, err
	}
	w.Message(4, ub)
	for _, f := range u.Files {
		fb, err := f.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(5, fb)
	}
	return w.Finish(), nil
}

// UnmarshalTopicUpdateUpload decodes a TopicUpdateUpload record.
func UnmarshalTopicUpdateUpload(data []byte) (*TopicUpdateUpload, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	u := &TopicUpdateUpload{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(u.DeviceKey[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicUpdateUpload.deviceKey: %w", err)
			}
		case 2:
			if err := PutFixed(u.AuthToken[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicUpdateUpload.authToken: %w", err)
			}
		case 3:
			if err := PutFixed(u.TopicID[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("topicUpdateUpload.topicId: %w", err)
			}
		case 4:
			up, err := UnmarshalTopicUpdate(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicUpdateUpload.update: %w", err)
			}
			u.Update = *up
		case 5:
			fd, err := UnmarshalFileData(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicUpdateUpload.files: %w", err)
			}
			u.Files = append(u.Files, *fd)
		}
	}
	return u, nil
}

// MessageChain is a contiguous slice of a topic's committed updates, as
// returned by getMessagesInRange (spec.md §4.5). StartIndex is the
// 1-based chain index of Updates[0].
type MessageChain struct {
	TopicID    [12]byte
	StartIndex uint32
	Updates    []TopicUpdate
}

// Marshal encodes the record.
func (c MessageChain) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, c.TopicID[:])
	w.Uint(2, uint64(c.StartIndex))
	for _, u := range c.Updates {
		ub, err := u.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(3, ub)
	}
	return w.Finish(), nil
}

// UnmarshalMessageChain decodes a MessageChain record.
func UnmarshalMessageChain(data []byte) (*MessageChain, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	c := &MessageChain{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(c.TopicID[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("messageChain.topicId: %w", err)
			}
		case 2:
			c.StartIndex = uint32(f.Varint)
		case 3:
			u, err := UnmarshalTopicUpdate(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("messageChain.updates: %w", err)
			}
			c.Updates = append(c.Updates, *u)
		}
	}
	return c, nil
}

// ChainState is a topic's current chain head: the index and cumulative
// hash output of the most recently committed update (spec.md §3).
type ChainState struct {
	ChainIndex uint32
	Output     [32]byte
}

// Marshal encodes the record.
func (s ChainState) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Uint(1, uint64(s.ChainIndex))
	w.Bytes(2, s.Output[:])
	return w.Finish(), nil
}

// UnmarshalChainState decodes a ChainState record.
func UnmarshalChainState(data []byte) (*ChainState, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	s := &ChainState{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			s.ChainIndex = uint32(f.Varint)
		case 2:
			if err := PutFixed(s.Output[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("chainState.output: %w", err)
			}
		}
	}
	return s, nil
}

// TopicState is the server's authoritative record of one topic: its
// creation/membership record plus the current chain head.
type TopicState struct {
	Info  Topic
	Chain ChainState
}

// Marshal encodes the record.
func (s TopicState) Marshal() ([]byte, error) {
	w := NewWriter()
	ib, err := s.Info.Marshal()
	if err != nil {
		return nil, err
	}
	w.Message(1, ib)
	cb, err := s.Chain.Marshal()
	if err != nil {
		return nil, err
	}
	w.Message(2, cb)
	return w.Finish(), nil
}

// UnmarshalTopicState decodes a TopicState record.
func UnmarshalTopicState(data []byte) (*TopicState, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	s := &TopicState{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			info, err := UnmarshalTopic(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicState.info: %w", err)
			}
			s.Info = *info
		case 2:
			chain, err := UnmarshalChainState(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("topicState.chain: %w", err)
			}
			s.Chain = *chain
		}
	}
	return s, nil
}
