package validator

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
)

// TopicIDSize is the fixed length of a topic id in bytes (spec.md §3).
const TopicIDSize = 12

// VerifyCreationInfo checks a member's creation-info signature: the
// member's own identity key (creationInfo.UserKey) must sign the
// concatenation of the member's topic signature key and the creation
// info's encryption key (spec.md §4.4: "creation-info whose signature by
// the member's identity key covers signatureKey ‖ encryptionKey"). This
// spans two structs (MemberInfo.SignatureKey, CreationInfo.EncryptionKey)
// and so is verified directly over the raw concatenation rather than
// through the generic Signable helper, which only covers a single
// record's own canonical encoding.
func VerifyCreationInfo(signatureKey [32]byte, info wire.CreationInfo, op string) error {
	signed := append(append([]byte(nil), signatureKey[:]...), info.EncryptionKey[:]...)
	if !crypto.Verify(info.UserKey, signed, crypto.Signature(info.Signature)) {
		return apierr.New(apierr.KindInvalidSignature, op, "creation-info signature verification failed")
	}
	return nil
}

// UserExists is the registry lookup topic-creation validation needs to
// confirm every listed member is a registered server user (spec.md §4.4:
// "all listed users exist on the server").
type UserExists func(userKey [32]byte) bool

// ValidateTopicCreation runs every invariant spec.md §4.4 names for
// createTopic: creationTime == timestamp, a 12-byte topic id, the
// creator index in range with role ADMIN and matching creation-info, a
// valid creation-info signature for every member, and every listed user
// existing on the server. It does not verify the record's own signature
// (members[indexOfMessageCreator].signatureKey over the record) — callers
// do that with VerifySigned once the creator's signature key is known.
func ValidateTopicCreation(topic wire.Topic, authenticatedUser [32]byte, exists UserExists, op string) error {
	if topic.CreationTime != topic.Timestamp {
		return apierr.New(apierr.KindInvalidRequest, op, "creationTime must equal timestamp")
	}
	if len(topic.TopicID) != TopicIDSize {
		return apierr.New(apierr.KindInvalidRequest, op, "topicId must be 12 bytes")
	}
	if int(topic.IndexOfMessageCreator) >= len(topic.Members) {
		return apierr.New(apierr.KindInvalidRequest, op, "creator index out of range")
	}

	creator := topic.Members[topic.IndexOfMessageCreator]
	if creator.Role != wire.RoleAdmin {
		return apierr.New(apierr.KindInvalidRequest, op, "creator must hold role ADMIN")
	}
	if !creator.HasCreationInfo || creator.CreationInfo.UserKey != authenticatedUser {
		return apierr.New(apierr.KindInvalidRequest, op, "creator creation-info must match the authenticated user")
	}

	for _, m := range topic.Members {
		if m.Role != wire.RoleAdmin && m.Role != wire.RoleParticipant && m.Role != wire.RoleObserver {
			return apierr.New(apierr.KindInvalidRequest, op, "member role invalid")
		}
		if !m.HasCreationInfo {
			return apierr.New(apierr.KindInvalidRequest, op, "member missing creation-info")
		}
		if err := VerifyCreationInfo(m.SignatureKey, m.CreationInfo, op); err != nil {
			return err
		}
		if !exists(m.CreationInfo.UserKey) {
			return apierr.New(apierr.KindInvalidRequest, op, "member is not a registered user")
		}
	}
	return nil
}

// MaxMetadataLength bounds the opaque metadata payload on a TopicUpdate:
// metadata must be shorter than this (spec.md §4.4: "metadata.count <
// 100"), so 99 bytes is the largest accepted payload.
const MaxMetadataLength = 100

// ValidateFileRef checks a single file reference's fixed-size fields and,
// if the file was uploaded in the same request, that its hash matches
// the uploaded bytes (spec.md §4.4 update invariants).
func ValidateFileRef(ref wire.FileRef, uploaded map[[12]byte][]byte, alreadyStored func(id [12]byte) bool, op string) error {
	data, isNew := uploaded[ref.ID]
	if isNew {
		sum := crypto.SHA256(data)
		if sum != ref.Hash {
			return apierr.New(apierr.KindInvalidRequest, op, "uploaded file hash does not match reference")
		}
		return nil
	}
	if alreadyStored != nil && alreadyStored(ref.ID) {
		return nil
	}
	return apierr.New(apierr.KindInvalidRequest, op, "referenced file was neither uploaded nor previously stored")
}

// ValidateTopicUpdate runs the invariants spec.md §4.4 names for an
// update's author and payload: author index in range, role in {ADMIN,
// PARTICIPANT}, and metadata shorter than MaxMetadataLength. File references are
// checked separately by ValidateFileRef since they need upload context.
func ValidateTopicUpdate(update wire.TopicUpdate, members []wire.MemberInfo, op string) (wire.MemberInfo, error) {
	var zero wire.MemberInfo
	if int(update.IndexInMemberList) >= len(members) {
		return zero, apierr.New(apierr.KindInvalidRequest, op, "author index out of range")
	}
	author := members[update.IndexInMemberList]
	if author.Role != wire.RoleAdmin && author.Role != wire.RoleParticipant {
		return zero, apierr.New(apierr.KindInvalidRequest, op, "author role must be ADMIN or PARTICIPANT")
	}
	if len(update.Metadata) >= MaxMetadataLength {
		return zero, apierr.New(apierr.KindInvalidRequest, op, "metadata too large")
	}
	return author, nil
}
