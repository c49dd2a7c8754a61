package wire

import "fmt"

// Message is one delivered chain update, as queued in a device's mailbox
// (spec.md §3's Mailbox `messages[]`).
type Message struct {
	TopicID [12]byte
	Chain   ChainState
	Content TopicUpdate
}

// Marshal encodes the record.
func (m Message) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, m.TopicID[:])
	cb, err := m.Chain.Marshal()
	if err != nil {
		return nil, err
	}
	w.Message(2, cb)
	tb, err := m.Content.Marshal()
	if err != nil {
		return nil, err
	}
	w.Message(3, tb)
	return w.Finish(), nil
}

// UnmarshalMessage decodes a Message record.
func UnmarshalMessage(data []byte) (*Message, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	m := &Message{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(m.TopicID[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("message.topicId: %w", err)
			}
		case 2:
			c, err := UnmarshalChainState(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("message.chain: %w", err)
			}
			m.Chain = *c
		case 3:
			u, err := UnmarshalTopicUpdate(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("message.content: %w", err)
			}
			m.Content = *u
		}
	}
	return m, nil
}

// Receipt is one sender's maximum delivered chain index for one topic,
// advertised to a device on drain (spec.md §3's Mailbox `receipts[]`).
type Receipt struct {
	Sender        [32]byte
	TopicID       [12]byte
	MaxChainIndex uint32
}

// Marshal encodes the record.
func (r Receipt) Marshal() ([]byte, error) {
	w := NewWriter()
	w.Bytes(1, r.Sender[:])
	w.Bytes(2, r.TopicID[:])
	w.Uint(3, uint64(r.MaxChainIndex))
	return w.Finish(), nil
}

// UnmarshalReceipt decodes a Receipt record.
func UnmarshalReceipt(data []byte) (*Receipt, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	r := &Receipt{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			if err := PutFixed(r.Sender[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("receipt.sender: %w", err)
			}
		case 2:
			if err := PutFixed(r.TopicID[:], f.Bytes); err != nil {
				return nil, fmt.Errorf("receipt.topicId: %w", err)
			}
		case 3:
			r.MaxChainIndex = uint32(f.Varint)
		}
	}
	return r, nil
}

// DeviceDownload is a device's drained mailbox (spec.md §3's Mailbox,
// returned by GET /device/messages).
type DeviceDownload struct {
	TopicUpdates       []Topic
	TopicKeyMessages   []TopicKeyMessage
	Messages           []Message
	Receipts           []Receipt
	RemainingTopicKeys uint32
	RemainingPreKeys   uint32
}

// Marshal encodes the record.
func (d DeviceDownload) Marshal() ([]byte, error) {
	w := NewWriter()
	for _, t := range d.TopicUpdates {
		tb, err := t.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(1, tb)
	}
	for _, k := range d.TopicKeyMessages {
		kb, err := k.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(2, kb)
	}
	for _, m := range d.Messages {
		mb, err := m.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(3, mb)
	}
	for _, r := range d.Receipts {
		rb, err := r.Marshal()
		if err != nil {
			return nil, err
		}
		w.Message(4, rb)
	}
	w.Uint(5, uint64(d.RemainingTopicKeys))
	w.Uint(6, uint64(d.RemainingPreKeys))
	return w.Finish(), nil
}

// UnmarshalDeviceDownload decodes a DeviceDownload record.
func UnmarshalDeviceDownload(data []byte) (*DeviceDownload, error) {
	fields, err := ReadFields(data)
	if err != nil {
		return nil, err
	}
	d := &DeviceDownload{}
	for _, f := range fields {
		switch f.Number {
		case 1:
			t, err := UnmarshalTopic(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("deviceDownload.topicUpdates: %w", err)
			}
			d.TopicUpdates = append(d.TopicUpdates, *t)
		case 2:
			k, err := UnmarshalTopicKeyMessage(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("deviceDownload.topicKeyMessages: %w", err)
			}
			d.TopicKeyMessages = append(d.TopicKeyMessages, *k)
		case 3:
			m, err := UnmarshalMessage(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("deviceDownload.messages: %w", err)
			}
			d.Messages = append(d.Messages, *m)
		case 4:
			r, err := UnmarshalReceipt(f.Bytes)
			if err != nil {
				return nil, fmt.Errorf("deviceDownload.receipts: %w", err)
			}
			d.Receipts = append(d.Receipts, *r)
		case 5:
			d.RemainingTopicKeys = uint32(f.Varint)
		case 6:
			d.RemainingPreKeys = uint32(f.Varint)
		}
	}
	return d, nil
}
