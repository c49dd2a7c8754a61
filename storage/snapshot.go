package storage

import (
	"fmt"
	"os"
)

// WriteSnapshot persists the serialized registry state to the `server`
// file (spec.md §4.2 writeSnapshot / §5's post-commit snapshot step).
func (s *Store) WriteSnapshot(data []byte) error {
	return writeAtomic(s.serverPath(), data)
}

// ReadSnapshot returns the persisted registry snapshot, or ok == false if
// none has been written yet (spec.md §4.2 readSnapshot).
func (s *Store) ReadSnapshot() (data []byte, ok bool, err error) {
	data, err = os.ReadFile(s.serverPath())
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: read snapshot: %w", err)
	}
	return data, true, nil
}
