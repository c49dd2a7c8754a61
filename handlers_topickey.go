package rendezvous

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/validator"
	"github.com/opd-ai/rendezvous/wire"
)

func deviceSet(keys [][32]byte) map[[32]byte]bool {
	set := make(map[[32]byte]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func sameDeviceSet(a, b map[[32]byte]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// AddTopicKeys authenticates the uploading device, verifies every new
// topic key's signature under the user's identity key, checks that the
// fanout covers exactly the user's other devices with exactly one
// encrypted copy of every uploaded key, then appends the keys to the
// (user, app) queue and delivers the fanout messages (spec.md §4.5
// addTopicKeys).
func (s *Server) AddTopicKeys(bundle wire.TopicKeyBundle) error {
	const op = "addTopicKeys"

	if _, err := s.registry.AuthenticateUser(bundle.UserKey, bundle.DeviceKey, bundle.AuthToken); err != nil {
		return err
	}
	if err := validator.ValidateTopicKeys(bundle.Keys, bundle.UserKey, op); err != nil {
		return err
	}

	allDevices, err := s.registry.DevicesForUserApp(bundle.UserKey, bundle.AppID)
	if err != nil {
		return err
	}
	var expectedRecipients [][32]byte
	for _, d := range allDevices {
		if d != bundle.DeviceKey {
			expectedRecipients = append(expectedRecipients, d)
		}
	}

	gotRecipients := make([][32]byte, 0, len(bundle.Messages))
	for _, l := range bundle.Messages {
		gotRecipients = append(gotRecipients, l.DeviceKey)
	}
	if !sameDeviceSet(deviceSet(expectedRecipients), deviceSet(gotRecipients)) {
		return apierr.New(apierr.KindInvalidKeyUpload, op, "recipient device set does not match the user's other devices")
	}

	uploadedSigKeys := make(map[[32]byte]bool, len(bundle.Keys))
	for _, k := range bundle.Keys {
		uploadedSigKeys[k.SignatureKey] = true
	}
	for _, l := range bundle.Messages {
		gotSigKeys := make(map[[32]byte]bool, len(l.Messages))
		for _, m := range l.Messages {
			gotSigKeys[m.SignatureKey] = true
		}
		if len(gotSigKeys) != len(uploadedSigKeys) {
			return apierr.New(apierr.KindInvalidKeyUpload, op, "recipient key-message set size mismatch")
		}
		for k := range uploadedSigKeys {
			if !gotSigKeys[k] {
				return apierr.New(apierr.KindInvalidKeyUpload, op, "recipient missing an encrypted copy of an uploaded key")
			}
		}
	}

	remaining, err := s.storage.StoreTopicKeys(bundle.UserKey[:], bundle.AppID, bundle.Keys)
	if err != nil {
		return internalErr(op, err)
	}

	for _, l := range bundle.Messages {
		for _, m := range l.Messages {
			if err := s.registry.EnqueueTopicKeyMessage(l.DeviceKey, m); err != nil {
				return err
			}
		}
	}

	count := uint32(remaining)
	for _, d := range allDevices {
		if err := s.registry.SetRemainingCounts(d, nil, &count); err != nil {
			return err
		}
	}

	return nil
}

// GetTopicKey authenticates the requester, consumes one topic key from
// the receiver's (app) queue, and decrements the receiver's devices'
// remaining-key counters (spec.md §4.5 getTopicKey).
func (s *Server) GetTopicKey(userKey, deviceKey [32]byte, token [16]byte, receiver [32]byte, appID string) (wire.TopicKey, error) {
	const op = "getTopicKey"

	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return wire.TopicKey{}, err
	}

	key, err := s.storage.ConsumeTopicKey(receiver[:], appID)
	if err != nil {
		return wire.TopicKey{}, err
	}
	if err := s.decrementTopicKeyCounters(receiver, appID); err != nil {
		return wire.TopicKey{}, err
	}
	return *key, nil
}

// GetTopicKeys is the bulk form of GetTopicKey: it consumes one topic key
// per listed user, silently skipping users whose queue is empty (spec.md
// §4.5 getTopicKeys).
func (s *Server) GetTopicKeys(request wire.TopicKeyRequest) (wire.TopicKeyResponse, error) {
	if _, err := s.registry.AuthenticateUser(request.UserKey, request.DeviceKey, request.AuthToken); err != nil {
		return wire.TopicKeyResponse{}, err
	}

	var response wire.TopicKeyResponse
	for _, receiver := range request.Receivers {
		key, err := s.storage.ConsumeTopicKey(receiver[:], request.AppID)
		if err != nil {
			if apierr.KindOf(err) == apierr.KindResourceNotAvailable {
				continue
			}
			return wire.TopicKeyResponse{}, err
		}
		if err := s.decrementTopicKeyCounters(receiver, request.AppID); err != nil {
			return wire.TopicKeyResponse{}, err
		}
		response.Entries = append(response.Entries, wire.TopicKeyResponseEntry{UserKey: receiver, Key: *key})
	}
	return response, nil
}

// decrementTopicKeyCounters refreshes every one of receiver's devices'
// remainingTopicKeys counter to the (app) queue's post-consumption size.
func (s *Server) decrementTopicKeyCounters(receiver [32]byte, appID string) error {
	newCount, err := s.storage.TopicKeyCount(receiver[:], appID)
	if err != nil {
		return internalErr("getTopicKey", err)
	}
	devices, err := s.registry.DevicesForUserApp(receiver, appID)
	if err != nil {
		return err
	}
	count := uint32(newCount)
	for _, d := range devices {
		if err := s.registry.SetRemainingCounts(d, nil, &count); err != nil {
			return err
		}
	}
	return nil
}
