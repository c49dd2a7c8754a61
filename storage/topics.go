package storage

import "os"

// CreateTopicDir pre-creates a topic's chain-segment and file directories
// at topic-creation time (spec.md §4.5 createTopic: "create topic
// directories"). Later writes would create them lazily anyway; this just
// makes topic creation's on-disk effect observable immediately.
func (s *Store) CreateTopicDir(topicID []byte) error {
	if err := os.MkdirAll(s.topicDir(topicID), 0o700); err != nil {
		return err
	}
	return os.MkdirAll(s.fileDir(topicID), 0o700)
}

// TopicDirExists reports whether a topic's chain directory has already
// been created, the storage-level half of createTopic's "topic absent"
// check (spec.md §4.5: "require topics[topicId] absent and
// storage-level absence").
func (s *Store) TopicDirExists(topicID []byte) bool {
	_, err := os.Stat(s.topicDir(topicID))
	return err == nil
}
