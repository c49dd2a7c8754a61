package storage

import (
	"fmt"
	"os"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/wire"
)

func (s *Store) loadTopicKeyList(userKey []byte, appID string) (*wire.TopicKeyList, error) {
	data, err := os.ReadFile(s.topicKeyPath(userKey, appID))
	if os.IsNotExist(err) {
		return &wire.TopicKeyList{AppID: appID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read topic key list: %w", err)
	}
	return wire.UnmarshalTopicKeyList(data)
}

func (s *Store) saveTopicKeyList(userKey []byte, list *wire.TopicKeyList) error {
	if len(list.Keys) == 0 {
		if err := os.Remove(s.topicKeyPath(userKey, list.AppID)); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	data, err := list.Marshal()
	if err != nil {
		return fmt.Errorf("storage: encode topic key list: %w", err)
	}
	return writeAtomic(s.topicKeyPath(userKey, list.AppID), data)
}

// StoreTopicKeys appends newKeys to a (user, app) topic-key queue,
// returning the queue's new size (spec.md §4.2 storeTopicKeys).
func (s *Store) StoreTopicKeys(userKey []byte, appID string, newKeys []wire.TopicKey) (int, error) {
	list, err := s.loadTopicKeyList(userKey, appID)
	if err != nil {
		return 0, err
	}
	list.Keys = append(list.Keys, newKeys...)
	if err := s.saveTopicKeyList(userKey, list); err != nil {
		return 0, err
	}
	return len(list.Keys), nil
}

// ConsumeTopicKey removes and returns one key from the tail of a (user,
// app) queue, failing ResourceNotAvailable when empty (spec.md §4.2
// consumeTopicKey).
func (s *Store) ConsumeTopicKey(userKey []byte, appID string) (*wire.TopicKey, error) {
	list, err := s.loadTopicKeyList(userKey, appID)
	if err != nil {
		return nil, err
	}
	if len(list.Keys) == 0 {
		return nil, apierr.New(apierr.KindResourceNotAvailable, "consumeTopicKey", "no topic keys remaining")
	}
	last := len(list.Keys) - 1
	key := list.Keys[last]
	list.Keys = list.Keys[:last]
	if err := s.saveTopicKeyList(userKey, list); err != nil {
		return nil, err
	}
	return &key, nil
}

// TopicKeyCount returns the current size of a (user, app) topic-key
// queue.
func (s *Store) TopicKeyCount(userKey []byte, appID string) (int, error) {
	list, err := s.loadTopicKeyList(userKey, appID)
	if err != nil {
		return 0, err
	}
	return len(list.Keys), nil
}
