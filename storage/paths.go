package storage

import (
	"encoding/base32"
	"encoding/base64"
	"path/filepath"
	"strconv"
)

var binaryIDEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func encodeID(id []byte) string {
	return binaryIDEncoding.EncodeToString(id)
}

func encodeAppID(appID string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(appID))
}

func (s *Store) serverPath() string {
	return filepath.Join(s.base, "server")
}

func (s *Store) userDir(userKey []byte) string {
	return filepath.Join(s.base, "users", encodeID(userKey))
}

func (s *Store) preKeyPath(userKey, deviceKey []byte) string {
	return filepath.Join(s.userDir(userKey), "prekeys", encodeID(deviceKey))
}

func (s *Store) topicKeyPath(userKey []byte, appID string) string {
	return filepath.Join(s.userDir(userKey), "topickeys", encodeAppID(appID))
}

func (s *Store) topicDir(topicID []byte) string {
	return filepath.Join(s.base, "topics", encodeID(topicID))
}

func (s *Store) segmentPath(topicID []byte, baseIndex uint32) string {
	return filepath.Join(s.topicDir(topicID), segmentName(baseIndex))
}

func (s *Store) fileDir(topicID []byte) string {
	return filepath.Join(s.base, "files", encodeID(topicID))
}

func (s *Store) filePath(topicID, messageID []byte) string {
	return filepath.Join(s.fileDir(topicID), encodeID(messageID))
}

// segmentsPerFile is the number of updates stored in each chain segment
// file (spec.md §4.2).
const segmentsPerFile = 1000

func baseIndexFor(chainIndex uint32) uint32 {
	if chainIndex == 0 {
		return 0
	}
	return ((chainIndex - 1) / segmentsPerFile) * segmentsPerFile
}

func segmentName(baseIndex uint32) string {
	return strconv.FormatUint(uint64(baseIndex), 10)
}
