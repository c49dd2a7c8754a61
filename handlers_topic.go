package rendezvous

import (
	"context"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/validator"
	"github.com/opd-ai/rendezvous/wire"
)

// CreateTopic authenticates the creating device, runs every
// topic-creation invariant, seeds the topic's chain state at
// {chainIndex: 0, output: topicId}, and fans the creation record out to
// every member's other active devices (spec.md §4.5 createTopic).
func (s *Server) CreateTopic(ctx context.Context, userKey, deviceKey [32]byte, token [16]byte, topic wire.Topic) error {
	const op = "createTopic"

	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return err
	}

	exists := func(k [32]byte) bool {
		_, err := s.registry.GetUser(k)
		return err == nil
	}
	if err := validator.ValidateTopicCreation(topic, userKey, exists, op); err != nil {
		return err
	}
	if err := validator.CheckFreshness(s.time, topic.Timestamp, op); err != nil {
		return err
	}
	creator := topic.Members[topic.IndexOfMessageCreator]
	if err := validator.VerifySigned(topic, topic.Signature, creator.SignatureKey, op); err != nil {
		return err
	}

	if s.registry.TopicExists(topic.TopicID) || s.storage.TopicDirExists(topic.TopicID[:]) {
		return apierr.New(apierr.KindResourceAlreadyExists, op, "topic already exists")
	}
	if err := s.storage.CreateTopicDir(topic.TopicID[:]); err != nil {
		return internalErr(op, err)
	}
	if err := s.registry.CreateTopic(topic); err != nil {
		return err
	}

	s.registry.EnqueueTopicUpdate(ctx, topic, deviceKey)
	s.snapshot(op)
	return nil
}

// AddMessage authenticates the sending device, validates the update and
// its file references, commits the update to the topic's hash chain, and
// fans the delivered message out to every other member device (spec.md
// §4.5 addMessage).
func (s *Server) AddMessage(ctx context.Context, upload wire.TopicUpdateUpload) (wire.ChainState, error) {
	const op = "addMessage"

	senderKey, err := s.registry.AuthenticateDevice(upload.DeviceKey, upload.AuthToken)
	if err != nil {
		return wire.ChainState{}, err
	}
	_ = senderKey

	state, err := s.registry.GetTopic(upload.TopicID)
	if err != nil {
		return wire.ChainState{}, err
	}

	author, err := validator.ValidateTopicUpdate(upload.Update, state.Info.Members, op)
	if err != nil {
		return wire.ChainState{}, err
	}
	if err := validator.VerifySigned(upload.Update, upload.Update.Signature, author.SignatureKey, op); err != nil {
		return wire.ChainState{}, err
	}

	uploaded := make(map[[12]byte][]byte, len(upload.Files))
	for _, f := range upload.Files {
		uploaded[f.ID] = f.Data
	}
	alreadyStored := func(id [12]byte) bool {
		_, err := s.storage.GetFile(upload.TopicID[:], id[:])
		return err == nil
	}
	for _, ref := range upload.Update.Files {
		if err := validator.ValidateFileRef(ref, uploaded, alreadyStored, op); err != nil {
			return wire.ChainState{}, err
		}
	}

	for _, f := range upload.Files {
		if err := s.storage.StoreFile(upload.TopicID[:], f.ID[:], f.Data); err != nil {
			if apierr.KindOf(err) != apierr.KindResourceAlreadyExists {
				return wire.ChainState{}, internalErr(op, err)
			}
		}
	}

	newIndex := state.Chain.ChainIndex + 1
	newOutput, err := s.storage.AppendUpdate(upload.TopicID[:], upload.Update, newIndex, state.Chain.Output)
	if err != nil {
		return wire.ChainState{}, internalErr(op, err)
	}
	newChain := wire.ChainState{ChainIndex: newIndex, Output: newOutput}

	if err := s.registry.EnqueueMessage(ctx, upload.TopicID, newChain, upload.Update, upload.DeviceKey); err != nil {
		return wire.ChainState{}, err
	}

	s.snapshot(op)
	return newChain, nil
}

// GetMessagesForDevice authenticates a user-bound device, drains its
// mailbox, and emits delivery receipts back to every topic the drained
// messages touched (spec.md §4.5 getMessagesForDevice).
func (s *Server) GetMessagesForDevice(ctx context.Context, userKey, deviceKey [32]byte, token [16]byte) (wire.DeviceDownload, error) {
	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return wire.DeviceDownload{}, err
	}

	drained, err := s.registry.Drain(deviceKey)
	if err != nil {
		return wire.DeviceDownload{}, err
	}

	type receiptBucket struct {
		recipients  map[[32]byte]bool
		perTopicMax map[[12]byte]uint32
	}
	byApp := make(map[string]*receiptBucket)

	for _, msg := range drained.Messages {
		state, err := s.registry.GetTopic(msg.TopicID)
		if err != nil {
			continue
		}
		bucket, ok := byApp[state.Info.Application]
		if !ok {
			bucket = &receiptBucket{recipients: make(map[[32]byte]bool), perTopicMax: make(map[[12]byte]uint32)}
			byApp[state.Info.Application] = bucket
		}
		if cur, ok := bucket.perTopicMax[msg.TopicID]; !ok || msg.Chain.ChainIndex > cur {
			bucket.perTopicMax[msg.TopicID] = msg.Chain.ChainIndex
		}
		for _, m := range state.Info.Members {
			if m.HasCreationInfo {
				bucket.recipients[m.CreationInfo.UserKey] = true
			}
		}
	}

	for appID, bucket := range byApp {
		recipients := make([][32]byte, 0, len(bucket.recipients))
		for k := range bucket.recipients {
			recipients = append(recipients, k)
		}
		s.registry.EnqueueDeliveryReceipts(ctx, recipients, userKey, bucket.perTopicMax, appID)
	}

	return drained, nil
}

// GetMessagesInRange authenticates the requesting device and returns the
// contiguous slice of a topic's committed updates bounded by its current
// chain head (spec.md §4.5 getMessagesInRange).
func (s *Server) GetMessagesInRange(userKey, deviceKey [32]byte, token [16]byte, topicID [12]byte, start, count uint32) (wire.MessageChain, error) {
	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return wire.MessageChain{}, err
	}

	state, err := s.registry.GetTopic(topicID)
	if err != nil {
		return wire.MessageChain{}, err
	}

	end := start + count
	if limit := state.Chain.ChainIndex + 1; end > limit {
		end = limit
	}
	if end <= start {
		return wire.MessageChain{TopicID: topicID, StartIndex: start}, nil
	}

	updates, err := s.storage.ReadUpdates(topicID[:], start, end-start)
	if err != nil {
		return wire.MessageChain{}, internalErr("getMessagesInRange", err)
	}
	return wire.MessageChain{TopicID: topicID, StartIndex: start, Updates: updates}, nil
}

// GetFile authenticates the requester, requires that they hold any role
// in the topic, and returns the opaque file blob (spec.md §4.5 getFile).
func (s *Server) GetFile(userKey, deviceKey [32]byte, token [16]byte, topicID [12]byte, messageID [12]byte) ([]byte, error) {
	const op = "getFile"

	if _, err := s.registry.AuthenticateUser(userKey, deviceKey, token); err != nil {
		return nil, err
	}
	isMember, err := s.registry.IsTopicMember(topicID, userKey)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, apierr.New(apierr.KindResourceNotAvailable, op, "not a member of this topic")
	}
	return s.storage.GetFile(topicID[:], messageID[:])
}
