package validator

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
	"github.com/stretchr/testify/require"
)

type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time                  { return f.now }
func (f fixedTime) Since(t time.Time) time.Duration { return f.now.Sub(t) }

func genKey(t *testing.T) (pub [32]byte, seed [32]byte) {
	t.Helper()
	p, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	copy(pub[:], p)
	copy(seed[:], priv.Seed())
	return pub, seed
}

func TestCheckFreshness(t *testing.T) {
	tp := fixedTime{now: time.Unix(1_700_000_000, 0)}
	require.NoError(t, CheckFreshness(tp, 1_700_000_000-59, "op"))
	require.NoError(t, CheckFreshness(tp, 1_700_000_000+59, "op"))

	err := CheckFreshness(tp, 1_700_000_000-61, "op")
	require.Error(t, err)
	require.Equal(t, apierr.KindRequestOutdated, apierr.KindOf(err))
}

func TestSelfSignedUser(t *testing.T) {
	pub, seed := genKey(t)
	u := wire.InternalUser{
		IdentityKey: pub,
		Name:        "alice",
		Devices:     []wire.Device{{DeviceKey: pub, Application: "chat"}},
		Timestamp:   1700,
	}
	signable, err := wire.SignableBytes(u)
	require.NoError(t, err)
	u.Signature = crypto.Sign(seed, signable)

	require.NoError(t, SelfSignedUser(u, "op"))

	u.Name = "mallory"
	err = SelfSignedUser(u, "op")
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidSignature, apierr.KindOf(err))
}

func TestValidateUserMutationDeviceAdd(t *testing.T) {
	pub, _ := genKey(t)
	d1 := wire.Device{DeviceKey: pub, Application: "chat"}
	prior := wire.InternalUser{Name: "alice", CreationTime: 10, Timestamp: 20, Devices: []wire.Device{d1}}

	d2Pub, _ := genKey(t)
	d2 := wire.Device{DeviceKey: d2Pub, Application: "chat"}
	next := prior
	next.Timestamp = 21
	next.Devices = []wire.Device{d1, d2}

	added, err := ValidateUserMutation(prior, next, DeviceAdd, "registerDevice")
	require.NoError(t, err)
	require.Equal(t, d2, added)

	// Non-strictly-increasing timestamp is rejected.
	next.Timestamp = 20
	_, err = ValidateUserMutation(prior, next, DeviceAdd, "registerDevice")
	require.Error(t, err)
	require.Equal(t, apierr.KindRequestOutdated, apierr.KindOf(err))
}

func TestValidateUserMutationDeviceRemove(t *testing.T) {
	d1Pub, _ := genKey(t)
	d2Pub, _ := genKey(t)
	d1 := wire.Device{DeviceKey: d1Pub, Application: "chat"}
	d2 := wire.Device{DeviceKey: d2Pub, Application: "chat"}
	prior := wire.InternalUser{Name: "alice", CreationTime: 10, Timestamp: 20, Devices: []wire.Device{d1, d2}}

	next := prior
	next.Timestamp = 21
	next.Devices = []wire.Device{d1}

	removed, err := ValidateUserMutation(prior, next, DeviceRemove, "deleteDevice")
	require.NoError(t, err)
	require.Equal(t, d2, removed)

	// Changing a surviving device's field alongside removal is rejected.
	mutated := d1
	mutated.IsActive = true
	next.Devices = []wire.Device{mutated}
	_, err = ValidateUserMutation(prior, next, DeviceRemove, "deleteDevice")
	require.Error(t, err)
}

func TestVerifyCreationInfo(t *testing.T) {
	sigKey, _ := genKey(t)
	userPub, userSeed := genKey(t)
	encKey, _ := genKey(t)

	signed := append(append([]byte(nil), sigKey[:]...), encKey[:]...)
	sig := crypto.Sign(userSeed, signed)

	info := wire.CreationInfo{UserKey: userPub, EncryptionKey: encKey, Signature: [64]byte(sig)}
	require.NoError(t, VerifyCreationInfo(sigKey, info, "op"))

	info.EncryptionKey[0] ^= 0xFF
	err := VerifyCreationInfo(sigKey, info, "op")
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidSignature, apierr.KindOf(err))
}

func TestValidateTopicCreation(t *testing.T) {
	adminSigKey, _ := genKey(t)
	adminUserPub, adminUserSeed := genKey(t)
	adminEnc, _ := genKey(t)
	adminSigned := append(append([]byte(nil), adminSigKey[:]...), adminEnc[:]...)
	adminInfo := wire.CreationInfo{UserKey: adminUserPub, EncryptionKey: adminEnc, Signature: crypto.Sign(adminUserSeed, adminSigned)}

	topic := wire.Topic{
		TopicID:               [12]byte{1},
		Application:           "chat",
		CreationTime:          100,
		Timestamp:             100,
		IndexOfMessageCreator: 0,
		Members: []wire.MemberInfo{
			{SignatureKey: adminSigKey, Role: wire.RoleAdmin, HasCreationInfo: true, CreationInfo: adminInfo},
		},
	}

	exists := func([32]byte) bool { return true }
	require.NoError(t, ValidateTopicCreation(topic, adminUserPub, exists, "createTopic"))

	// Mismatched creationTime/timestamp rejected.
	bad := topic
	bad.Timestamp = 101
	err := ValidateTopicCreation(bad, adminUserPub, exists, "createTopic")
	require.Error(t, err)

	// Unknown member user rejected.
	err = ValidateTopicCreation(topic, adminUserPub, func([32]byte) bool { return false }, "createTopic")
	require.Error(t, err)
}

func TestValidateTopicUpdate(t *testing.T) {
	members := []wire.MemberInfo{
		{Role: wire.RoleAdmin},
		{Role: wire.RoleObserver},
	}
	update := wire.TopicUpdate{IndexInMemberList: 0, Metadata: []byte("hi")}
	author, err := ValidateTopicUpdate(update, members, "addMessage")
	require.NoError(t, err)
	require.Equal(t, wire.RoleAdmin, author.Role)

	update.IndexInMemberList = 1
	_, err = ValidateTopicUpdate(update, members, "addMessage")
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidRequest, apierr.KindOf(err))
}

func TestValidateFileRef(t *testing.T) {
	data := []byte("file contents")
	sum := crypto.SHA256(data)
	ref := wire.FileRef{ID: [12]byte{9}, Hash: sum}

	uploaded := map[[12]byte][]byte{ref.ID: data}
	require.NoError(t, ValidateFileRef(ref, uploaded, nil, "op"))

	ref.Hash[0] ^= 0xFF
	err := ValidateFileRef(ref, uploaded, nil, "op")
	require.Error(t, err)

	// Previously-stored files pass without upload context.
	ref2 := wire.FileRef{ID: [12]byte{10}}
	require.NoError(t, ValidateFileRef(ref2, nil, func([12]byte) bool { return true }, "op"))

	// Neither uploaded nor previously stored.
	err = ValidateFileRef(ref2, nil, func([12]byte) bool { return false }, "op")
	require.Error(t, err)
}

func TestValidateDevicePreKeys(t *testing.T) {
	devicePub, deviceSeed := genKey(t)
	preKeyBytes, _ := genKey(t)
	pk := wire.DevicePrekey{PreKey: preKeyBytes[:]}
	signable, err := wire.SignableBytes(pk)
	require.NoError(t, err)
	pk.Signature = crypto.Sign(deviceSeed, signable)

	require.NoError(t, ValidateDevicePreKeys([]wire.DevicePrekey{pk}, devicePub, "op"))

	pk.Signature[0] ^= 0xFF
	err = ValidateDevicePreKeys([]wire.DevicePrekey{pk}, devicePub, "op")
	require.Error(t, err)
}

func TestValidateRegistrationInfo(t *testing.T) {
	pub, seed := genKey(t)
	info := wire.InternalUser{
		IdentityKey: pub,
		Name:        "alice",
		Devices:     []wire.Device{{DeviceKey: pub, Application: "chat"}},
		Timestamp:   100,
	}
	signable, err := wire.SignableBytes(info)
	require.NoError(t, err)
	info.Signature = crypto.Sign(seed, signable)

	require.NoError(t, ValidateRegistrationInfo(info, "register"))

	info.Devices = append(info.Devices, wire.Device{})
	err = ValidateRegistrationInfo(info, "register")
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidRequest, apierr.KindOf(err))
}
