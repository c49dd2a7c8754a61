package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Store is the content-addressed directory tree rooted at Base (spec.md
// §4.2). All writes are atomic (temp file plus rename), grounded on the
// teacher's crypto/keystore.go WriteEncrypted pattern, minus the
// encryption step: the server never holds key material of its own to
// protect, only client-opaque blobs.
type Store struct {
	base string
}

// New creates a Store rooted at base, creating the directory tree if
// necessary, then self-tests a write/read/delete cycle on the base
// directory and fails loudly if any step doesn't round-trip (spec.md
// §4.2: "on initialization, it self-tests ... and aborts if any
// fails").
func New(base string) (*Store, error) {
	if err := os.MkdirAll(base, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create base dir: %w", err)
	}
	s := &Store{base: base}
	if err := s.selfTest(); err != nil {
		return nil, fmt.Errorf("storage: self-test failed: %w", err)
	}
	logrus.WithField("base", base).Info("storage initialized")
	return s, nil
}

func (s *Store) selfTest() error {
	probe := filepath.Join(s.base, ".selftest")
	payload := []byte("rendezvous-selftest")
	if err := writeAtomic(probe, payload); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	got, err := os.ReadFile(probe)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if string(got) != string(payload) {
		return fmt.Errorf("read back mismatched bytes")
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// writeAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partial write.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// DeleteAll removes the entire storage tree, recreating the empty base
// directory (spec.md §4.5 resetAll).
func (s *Store) DeleteAll() error {
	entries, err := os.ReadDir(s.base)
	if err != nil {
		return fmt.Errorf("storage: read base dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.base, e.Name())); err != nil {
			return fmt.Errorf("storage: remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

// DeleteUserTree removes everything under a user's directory (prekeys,
// topic-key queues) as part of account deletion (spec.md §4.5
// deleteUser/deleteUserAsAdmin).
func (s *Store) DeleteUserTree(userKey []byte) error {
	if err := os.RemoveAll(s.userDir(userKey)); err != nil {
		return fmt.Errorf("storage: remove user tree: %w", err)
	}
	return nil
}

// DeleteTopicTree removes a topic's chain segments and file blobs.
func (s *Store) DeleteTopicTree(topicID []byte) error {
	if err := os.RemoveAll(s.topicDir(topicID)); err != nil {
		return fmt.Errorf("storage: remove topic dir: %w", err)
	}
	if err := os.RemoveAll(s.fileDir(topicID)); err != nil {
		return fmt.Errorf("storage: remove topic files: %w", err)
	}
	return nil
}
