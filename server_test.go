package rendezvous

import (
	"context"
	"testing"
	"time"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/config"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/push"
	"github.com/opd-ai/rendezvous/wire"
	"github.com/stretchr/testify/require"
)

// fixedTime is a crypto.TimeProvider returning a fixed instant, so
// freshness and pin-expiry math in these tests is deterministic.
type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time                  { return f.now }
func (f fixedTime) Since(t time.Time) time.Duration { return f.now.Sub(t) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{DataFolder: t.TempDir()}
	s, err := New(cfg, push.NoopNotifier{})
	require.NoError(t, err)
	s.time = fixedTime{now: time.Unix(1_700_000_000, 0)}
	return s
}

// signed signs a wire.Signable record under seed and returns a copy with
// Signature populated, mirroring how a client would finalize a record
// before upload.
func signed[T wire.Signable](t *testing.T, record T, seed [crypto.SeedSize]byte) T {
	t.Helper()
	bytes, err := wire.SignableBytes(record)
	require.NoError(t, err)
	sig := crypto.Sign(seed, bytes)

	switch r := any(record).(type) {
	case wire.InternalUser:
		r.Signature = [64]byte(sig)
		return any(r).(T)
	case wire.DevicePrekey:
		r.Signature = [64]byte(sig)
		return any(r).(T)
	case wire.TopicKey:
		r.Signature = [64]byte(sig)
		return any(r).(T)
	case wire.Topic:
		r.Signature = [64]byte(sig)
		return any(r).(T)
	case wire.TopicUpdate:
		r.Signature = [64]byte(sig)
		return any(r).(T)
	default:
		t.Fatalf("signed: unsupported record type %T", record)
		var zero T
		return zero
	}
}

type testIdentity struct {
	keys   *crypto.KeyPair
	device *crypto.KeyPair
}

func newTestIdentity(t *testing.T) testIdentity {
	t.Helper()
	id, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	dev, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return testIdentity{keys: id, device: dev}
}

func registerTestUser(t *testing.T, s *Server, name, app string, id testIdentity) [16]byte {
	t.Helper()
	entry, err := s.registry.AllowUser(name)
	require.NoError(t, err)

	now := s.time.Now().Unix()
	info := wire.InternalUser{
		IdentityKey:  id.keys.Public,
		CreationTime: now,
		Name:         name,
		Devices: []wire.Device{{
			DeviceKey:    id.device.Public,
			CreationTime: now,
			IsActive:     true,
			Application:  app,
		}},
		Timestamp: now,
	}
	info = signed(t, info, id.keys.Private)

	prekey := signed(t, wire.DevicePrekey{PreKey: []byte("one-shot-prekey")}, id.device.Private)
	topicKey := signed(t, wire.TopicKey{SignatureKey: id.keys.Public, EncryptionKey: id.keys.Public}, id.keys.Private)

	token, err := s.RegisterUserWithDeviceAndKeys(wire.RegistrationBundle{
		Info:      info,
		Pin:       entry.Pin,
		PreKeys:   []wire.DevicePrekey{prekey},
		TopicKeys: []wire.TopicKey{topicKey},
	})
	require.NoError(t, err)
	return token
}

func TestRegisterUserWithDeviceAndKeysHappyPath(t *testing.T) {
	s := newTestServer(t)
	alice := newTestIdentity(t)

	token := registerTestUser(t, s, "alice", "chat", alice)

	got, err := s.GetUserInfo(alice.keys.Public, alice.device.Public, token)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)
	require.Len(t, got.Devices, 1)
}

func TestRegisterUserWithDeviceAndKeysWrongPinRejected(t *testing.T) {
	s := newTestServer(t)
	alice := newTestIdentity(t)
	_, err := s.registry.AllowUser("alice")
	require.NoError(t, err)

	now := s.time.Now().Unix()
	info := wire.InternalUser{
		IdentityKey:  alice.keys.Public,
		CreationTime: now,
		Name:         "alice",
		Devices:      []wire.Device{{DeviceKey: alice.device.Public, CreationTime: now, IsActive: true, Application: "chat"}},
		Timestamp:    now,
	}
	info = signed(t, info, alice.keys.Private)

	_, err = s.RegisterUserWithDeviceAndKeys(wire.RegistrationBundle{Info: info, Pin: 0})
	require.Error(t, err)
	require.Equal(t, apierr.KindAuthenticationFailed, apierr.KindOf(err))
}

func TestRegisterDeviceAppendsThenRejectsAlteredName(t *testing.T) {
	s := newTestServer(t)
	alice := newTestIdentity(t)
	registerTestUser(t, s, "alice", "chat", alice)

	prior, err := s.registry.GetUser(alice.keys.Public)
	require.NoError(t, err)

	secondDevice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	now := s.time.Now().Unix() + 1
	withSecond := prior
	withSecond.Devices = append(append([]wire.Device(nil), prior.Devices...), wire.Device{
		DeviceKey:    secondDevice.Public,
		CreationTime: now,
		IsActive:     true,
		Application:  "chat",
	})
	withSecond.Timestamp = now
	withSecond = signed(t, withSecond, alice.keys.Private)

	newToken, err := s.RegisterDevice(withSecond)
	require.NoError(t, err)

	_, err = s.GetUserInfo(alice.keys.Public, secondDevice.Public, newToken)
	require.NoError(t, err)

	// Same device diff, but with the immutable name changed: rejected.
	alteredName := withSecond
	alteredName.Name = "mallory"
	alteredName.Timestamp = now + 1
	alteredName = signed(t, alteredName, alice.keys.Private)

	_, err = s.RegisterDevice(alteredName)
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidRequest, apierr.KindOf(err))
}

func buildSignedTopic(t *testing.T, creator, other testIdentity, app string, timestamp int64) wire.Topic {
	t.Helper()
	creatorInfo := wire.CreationInfo{UserKey: creator.keys.Public, EncryptionKey: creator.keys.Public}
	creatorInfo.Signature = [64]byte(crypto.Sign(creator.keys.Private, append(append([]byte(nil), creator.keys.Public[:]...), creatorInfo.EncryptionKey[:]...)))

	otherInfo := wire.CreationInfo{UserKey: other.keys.Public, EncryptionKey: other.keys.Public}
	otherInfo.Signature = [64]byte(crypto.Sign(other.keys.Private, append(append([]byte(nil), other.keys.Public[:]...), otherInfo.EncryptionKey[:]...)))

	var topicID [12]byte
	topicID[0] = 0x7A

	topic := wire.Topic{
		TopicID:               topicID,
		Application:           app,
		CreationTime:          timestamp,
		IndexOfMessageCreator: 0,
		Members: []wire.MemberInfo{
			{SignatureKey: creator.keys.Public, Role: wire.RoleAdmin, HasCreationInfo: true, CreationInfo: creatorInfo},
			{SignatureKey: other.keys.Public, Role: wire.RoleParticipant, HasCreationInfo: true, CreationInfo: otherInfo},
		},
		Timestamp: timestamp,
	}
	return signed(t, topic, creator.keys.Private)
}

func TestCreateTopicAndAddMessageAdvancesChain(t *testing.T) {
	s := newTestServer(t)
	alice := newTestIdentity(t)
	bob := newTestIdentity(t)
	aliceToken := registerTestUser(t, s, "alice", "chat", alice)
	registerTestUser(t, s, "bob", "chat", bob)

	now := s.time.Now().Unix()
	topic := buildSignedTopic(t, alice, bob, "chat", now)

	err := s.CreateTopic(context.Background(), alice.keys.Public, alice.device.Public, aliceToken, topic)
	require.NoError(t, err)

	// Duplicate creation rejected.
	err = s.CreateTopic(context.Background(), alice.keys.Public, alice.device.Public, aliceToken, topic)
	require.Error(t, err)

	update := wire.TopicUpdate{IndexInMemberList: 0, Metadata: []byte("hello")}
	update = signed(t, update, alice.keys.Private)

	chain, err := s.AddMessage(context.Background(), wire.TopicUpdateUpload{
		DeviceKey: alice.device.Public,
		AuthToken: aliceToken,
		TopicID:   topic.TopicID,
		Update:    update,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, chain.ChainIndex)

	got, err := s.GetMessagesInRange(alice.keys.Public, alice.device.Public, aliceToken, topic.TopicID, 1, 10)
	require.NoError(t, err)
	require.Len(t, got.Updates, 1)
	require.Equal(t, "hello", string(got.Updates[0].Metadata))
}

func TestAddMessageRejectsForgedSignature(t *testing.T) {
	s := newTestServer(t)
	alice := newTestIdentity(t)
	bob := newTestIdentity(t)
	aliceToken := registerTestUser(t, s, "alice", "chat", alice)
	registerTestUser(t, s, "bob", "chat", bob)

	now := s.time.Now().Unix()
	topic := buildSignedTopic(t, alice, bob, "chat", now)
	require.NoError(t, s.CreateTopic(context.Background(), alice.keys.Public, alice.device.Public, aliceToken, topic))

	forged := wire.TopicUpdate{IndexInMemberList: 0, Metadata: []byte("tampered")}
	forged = signed(t, forged, bob.keys.Private)

	_, err := s.AddMessage(context.Background(), wire.TopicUpdateUpload{
		DeviceKey: alice.device.Public,
		AuthToken: aliceToken,
		TopicID:   topic.TopicID,
		Update:    forged,
	})
	require.Error(t, err)
	require.Equal(t, apierr.KindInvalidSignature, apierr.KindOf(err))
}

// bundleEntryFor returns the bundle entry for deviceKey, failing the test
// if it is absent.
func bundleEntryFor(t *testing.T, bundle wire.DevicePreKeyBundle, deviceKey [32]byte) wire.DevicePreKeyBundleEntry {
	t.Helper()
	for _, e := range bundle.Devices {
		if e.DeviceKey == deviceKey {
			return e
		}
	}
	t.Fatalf("no bundle entry for device %x", deviceKey)
	return wire.DevicePreKeyBundleEntry{}
}

// TestDevicePreKeyDepletionAcrossDevices exercises a user with two devices
// whose prekey pools start at sizes (3,5): the first getDevicePreKeys(5)
// call must draw the cross-device minimum of 3 from both, and the second
// call (now that one pool is empty) must draw 0 from both.
func TestDevicePreKeyDepletionAcrossDevices(t *testing.T) {
	s := newTestServer(t)
	alice := newTestIdentity(t)
	token := registerTestUser(t, s, "alice", "chat", alice)

	// The registration bundle already seeded device one's pool with a
	// single prekey; top it up to 3.
	for i := 0; i < 2; i++ {
		extra := signed(t, wire.DevicePrekey{PreKey: []byte("d1-extra")}, alice.device.Private)
		require.NoError(t, s.AddDevicePreKeys(wire.DevicePrekeyUploadRequest{
			UserKey:   alice.keys.Public,
			DeviceKey: alice.device.Public,
			AuthToken: token,
			Keys:      []wire.DevicePrekey{extra},
		}))
	}

	secondDevice, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	prior, err := s.registry.GetUser(alice.keys.Public)
	require.NoError(t, err)
	now := s.time.Now().Unix() + 1
	withSecond := prior
	withSecond.Devices = append(append([]wire.Device(nil), prior.Devices...), wire.Device{
		DeviceKey:    secondDevice.Public,
		CreationTime: now,
		IsActive:     true,
		Application:  "chat",
	})
	withSecond.Timestamp = now
	withSecond = signed(t, withSecond, alice.keys.Private)
	secondToken, err := s.RegisterDevice(withSecond)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		extra := signed(t, wire.DevicePrekey{PreKey: []byte("d2-extra")}, secondDevice.Private)
		require.NoError(t, s.AddDevicePreKeys(wire.DevicePrekeyUploadRequest{
			UserKey:   alice.keys.Public,
			DeviceKey: secondDevice.Public,
			AuthToken: secondToken,
			Keys:      []wire.DevicePrekey{extra},
		}))
	}

	bundle, err := s.GetDevicePreKeys(alice.keys.Public, alice.device.Public, token, 5)
	require.NoError(t, err)
	require.Len(t, bundle.Devices, 2)
	require.Len(t, bundleEntryFor(t, bundle, alice.device.Public).Keys, 3)
	require.EqualValues(t, 0, bundleEntryFor(t, bundle, alice.device.Public).RemainingCount)
	require.Len(t, bundleEntryFor(t, bundle, secondDevice.Public).Keys, 3)
	require.EqualValues(t, 2, bundleEntryFor(t, bundle, secondDevice.Public).RemainingCount)

	bundle, err = s.GetDevicePreKeys(alice.keys.Public, alice.device.Public, token, 5)
	require.NoError(t, err)
	require.Len(t, bundleEntryFor(t, bundle, alice.device.Public).Keys, 0)
	require.EqualValues(t, 0, bundleEntryFor(t, bundle, alice.device.Public).RemainingCount)
	require.Len(t, bundleEntryFor(t, bundle, secondDevice.Public).Keys, 0)
	require.EqualValues(t, 2, bundleEntryFor(t, bundle, secondDevice.Public).RemainingCount)
}
