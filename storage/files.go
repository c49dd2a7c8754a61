package storage

import (
	"fmt"
	"os"

	"github.com/opd-ai/rendezvous/apierr"
)

// StoreFile writes an opaque file blob, failing if one already exists at
// that (topicId, messageId) — callers that need idempotent re-upload
// must check existence themselves first (spec.md §4.2 storeFile).
func (s *Store) StoreFile(topicID, messageID []byte, data []byte) error {
	path := s.filePath(topicID, messageID)
	if _, err := os.Stat(path); err == nil {
		return apierr.New(apierr.KindResourceAlreadyExists, "storeFile", "file already exists")
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("storage: stat file: %w", err)
	}
	return writeAtomic(path, data)
}

// GetFile reads an opaque file blob, failing ResourceNotAvailable if
// missing (spec.md §4.2 getFile).
func (s *Store) GetFile(topicID, messageID []byte) ([]byte, error) {
	data, err := os.ReadFile(s.filePath(topicID, messageID))
	if os.IsNotExist(err) {
		return nil, apierr.New(apierr.KindResourceNotAvailable, "getFile", "file not found")
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}
