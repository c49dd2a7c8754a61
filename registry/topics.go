package registry

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/wire"
)

// CreateTopic seeds a new topic's state at chainIndex 0 with
// output = topicId, provided no topic with that id already exists
// (spec.md §4.5 createTopic). Callers must have already run the
// topic-creation validator.
func (r *Registry) CreateTopic(topicRecord wire.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.topics[topicRecord.TopicID]; exists {
		return apierr.New(apierr.KindResourceAlreadyExists, "createTopic", "topic already exists")
	}

	var output [32]byte
	copy(output[:], topicRecord.TopicID[:])
	r.topics[topicRecord.TopicID] = wire.TopicState{
		Info:  topicRecord,
		Chain: wire.ChainState{ChainIndex: 0, Output: output},
	}
	return nil
}

// GetTopic returns a topic's current authoritative state.
func (r *Registry) GetTopic(topicID [12]byte) (wire.TopicState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.topics[topicID]
	if !ok {
		return wire.TopicState{}, apierr.New(apierr.KindResourceNotAvailable, "getTopic", "unknown topic")
	}
	return s, nil
}

// TopicExists reports whether topicID has been created, without the
// overhead of copying the full state (createTopic's in-memory absence
// check, used alongside the storage-level one).
func (r *Registry) TopicExists(topicID [12]byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.topics[topicID]
	return ok
}

// IsTopicMember reports whether userKey holds any role in topicID,
// used by getFile's "any role" membership check (spec.md §4.5 getFile).
func (r *Registry) IsTopicMember(topicID [12]byte, userKey [32]byte) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.topics[topicID]
	if !ok {
		return false, apierr.New(apierr.KindResourceNotAvailable, "isTopicMember", "unknown topic")
	}
	for _, m := range s.Info.Members {
		if m.HasCreationInfo && m.CreationInfo.UserKey == userKey {
			return true, nil
		}
	}
	return false, nil
}
