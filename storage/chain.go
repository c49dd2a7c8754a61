package storage

import (
	"fmt"
	"os"

	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
)

func (s *Store) loadSegment(topicID []byte, baseIndex uint32) (*wire.MessageChain, error) {
	data, err := os.ReadFile(s.segmentPath(topicID, baseIndex))
	if os.IsNotExist(err) {
		var tid [12]byte
		copy(tid[:], topicID)
		return &wire.MessageChain{TopicID: tid, StartIndex: baseIndex + 1}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read chain segment: %w", err)
	}
	return wire.UnmarshalMessageChain(data)
}

func (s *Store) saveSegment(topicID []byte, baseIndex uint32, segment *wire.MessageChain) error {
	data, err := segment.Marshal()
	if err != nil {
		return fmt.Errorf("storage: encode chain segment: %w", err)
	}
	return writeAtomic(s.segmentPath(topicID, baseIndex), data)
}

// AppendUpdate commits one update to a topic's hash chain: it loads the
// segment that newChainIndex belongs to (creating a fresh one when
// newChainIndex starts a new 1000-update window), appends the update,
// computes newOutput = SHA256(priorOutput || update.signature), persists
// the segment, and returns newOutput (spec.md §4.2 appendUpdate, §4.5's
// central chain-integrity property).
func (s *Store) AppendUpdate(topicID []byte, update wire.TopicUpdate, newChainIndex uint32, priorOutput [32]byte) ([32]byte, error) {
	baseIndex := baseIndexFor(newChainIndex)
	segment, err := s.loadSegment(topicID, baseIndex)
	if err != nil {
		return [32]byte{}, err
	}
	segment.Updates = append(segment.Updates, update)
	if err := s.saveSegment(topicID, baseIndex, segment); err != nil {
		return [32]byte{}, err
	}
	return crypto.SHA256(priorOutput[:], update.Signature[:]), nil
}

// ReadUpdates returns the contiguous slice of updates [start, start+count)
// (1-based chain indices), reading across as many segments as necessary
// (spec.md §4.2 readUpdates).
func (s *Store) ReadUpdates(topicID []byte, start, count uint32) ([]wire.TopicUpdate, error) {
	if count == 0 {
		return nil, nil
	}
	out := make([]wire.TopicUpdate, 0, count)
	index := start
	end := start + count
	for index < end {
		baseIndex := baseIndexFor(index)
		segment, err := s.loadSegment(topicID, baseIndex)
		if err != nil {
			return nil, err
		}
		segmentEnd := baseIndex + segmentsPerFile
		for index < end && index <= segmentEnd {
			offset := index - segment.StartIndex
			if int(offset) >= len(segment.Updates) {
				return out, nil
			}
			out = append(out, segment.Updates[offset])
			index++
		}
	}
	return out, nil
}
