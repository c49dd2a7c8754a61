package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
	"github.com/stretchr/testify/require"
)

// fixedTime is a crypto.TimeProvider returning a fixed instant, so
// pin-expiry and freshness math in these tests is deterministic.
type fixedTime struct{ now time.Time }

func (f fixedTime) Now() time.Time                  { return f.now }
func (f fixedTime) Since(t time.Time) time.Duration { return f.now.Sub(t) }

// recordingNotifier records every push.Notifier.Notify call.
type recordingNotifier struct {
	mu     sync.Mutex
	tokens []string
}

func (n *recordingNotifier) Notify(_ context.Context, pushToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, pushToken)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tokens)
}

func newTestRegistry(t *testing.T) (*Registry, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	r, err := New(notifier)
	require.NoError(t, err)
	r.time = fixedTime{now: time.Unix(1_700_000_000, 0)}
	return r, notifier
}

func key(b byte) [32]byte {
	var k [32]byte
	k[0] = b
	return k
}

func TestAllowUserThenCanRegister(t *testing.T) {
	r, _ := newTestRegistry(t)

	entry, err := r.AllowUser("alice")
	require.NoError(t, err)
	require.Equal(t, "alice", entry.Name)
	require.EqualValues(t, 3, entry.TriesRemaining)

	require.True(t, r.CanRegister("alice", entry.Pin))
}

func TestAllowUserRejectsDuplicateName(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.AllowUser("alice")
	require.NoError(t, err)
	_, err = r.AllowUser("alice")
	require.Error(t, err)
}

func TestCanRegisterLocksOutAfterThreeWrongPins(t *testing.T) {
	r, _ := newTestRegistry(t)

	entry, err := r.AllowUser("bob")
	require.NoError(t, err)
	wrongPin := (entry.Pin + 1) % 100000

	for i := 0; i < 3; i++ {
		require.False(t, r.CanRegister("bob", wrongPin))
	}
	// Name evicted after the third miss; even the correct pin now fails.
	require.False(t, r.CanRegister("bob", entry.Pin))
}

func TestCanRegisterEvictsExpiredEntry(t *testing.T) {
	r, _ := newTestRegistry(t)
	entry, err := r.AllowUser("carol")
	require.NoError(t, err)

	r.time = fixedTime{now: time.Unix(1_700_000_000+PinExpiryInterval+1, 0)}
	require.False(t, r.CanRegister("carol", entry.Pin))
}

func TestRegisterUserSeedsMailboxAndClearsAllowedEntry(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.AllowUser("alice")
	require.NoError(t, err)

	identity := key(1)
	device := key(2)
	info := wire.InternalUser{
		IdentityKey: identity,
		Name:        "alice",
		Devices:     []wire.Device{{DeviceKey: device, IsActive: true, Application: "chat"}},
	}
	var token [16]byte
	token[0] = 0xAA

	require.NoError(t, r.RegisterUser(info, token, 2, 1))

	got, err := r.GetUser(identity)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)

	owner, err := r.AuthenticateDevice(device, token)
	require.NoError(t, err)
	require.Equal(t, identity, owner)

	download, err := r.Drain(device)
	require.NoError(t, err)
	require.EqualValues(t, 2, download.RemainingPreKeys)
	require.EqualValues(t, 1, download.RemainingTopicKeys)

	require.False(t, r.CanRegister("alice", 0))
}

func TestRegisterUserRejectsDuplicateDeviceKey(t *testing.T) {
	r, _ := newTestRegistry(t)
	device := key(9)
	first := wire.InternalUser{IdentityKey: key(1), Devices: []wire.Device{{DeviceKey: device}}}
	second := wire.InternalUser{IdentityKey: key(2), Devices: []wire.Device{{DeviceKey: device}}}

	require.NoError(t, r.RegisterUser(first, [16]byte{}, 0, 0))
	require.Error(t, r.RegisterUser(second, [16]byte{}, 0, 0))
}

func TestRegisterAndDeleteDevice(t *testing.T) {
	r, _ := newTestRegistry(t)
	identity := key(1)
	d1 := key(2)
	d2 := key(3)

	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: identity,
		Devices:     []wire.Device{{DeviceKey: d1, IsActive: true}},
	}, [16]byte{}, 0, 0))

	withSecond := wire.InternalUser{
		IdentityKey: identity,
		Devices:     []wire.Device{{DeviceKey: d1, IsActive: true}, {DeviceKey: d2, IsActive: true}},
	}
	var tok2 [16]byte
	tok2[0] = 2
	require.NoError(t, r.RegisterDevice(identity, withSecond, tok2))

	_, err := r.Drain(d2)
	require.NoError(t, err)

	backToOne := wire.InternalUser{
		IdentityKey: identity,
		Devices:     []wire.Device{{DeviceKey: d1, IsActive: true}},
	}
	require.NoError(t, r.DeleteDevice(identity, backToOne, d2))

	_, err = r.AuthenticateDevice(d2, tok2)
	require.Error(t, err)
}

func TestDeleteUserRemovesAllDeviceState(t *testing.T) {
	r, _ := newTestRegistry(t)
	identity := key(1)
	device := key(2)
	var tok [16]byte
	tok[0] = 7

	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: identity,
		Devices:     []wire.Device{{DeviceKey: device}},
	}, tok, 0, 0))

	_, err := r.DeleteUser(identity)
	require.NoError(t, err)

	_, err = r.GetUser(identity)
	require.Error(t, err)
	_, err = r.AuthenticateDevice(device, tok)
	require.Error(t, err)
}

func TestAuthenticateUserRejectsWrongToken(t *testing.T) {
	r, _ := newTestRegistry(t)
	identity := key(1)
	device := key(2)
	var tok [16]byte
	tok[0] = 1
	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: identity,
		Devices:     []wire.Device{{DeviceKey: device}},
	}, tok, 0, 0))

	var bad [16]byte
	bad[0] = 2
	_, err := r.AuthenticateUser(identity, device, bad)
	require.Error(t, err)
	require.Equal(t, apierr.KindAuthenticationFailed, apierr.KindOf(err))
}

func TestAuthenticateAdmin(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.Error(t, r.AuthenticateAdmin([16]byte{}))

	newTok, err := r.RenewAdminToken()
	require.NoError(t, err)
	require.NoError(t, r.AuthenticateAdmin(newTok))
}

func buildTopic(creator, other [32]byte) wire.Topic {
	var topicID [12]byte
	topicID[0] = 0x42
	return wire.Topic{
		TopicID:     topicID,
		Application: "chat",
		Members: []wire.MemberInfo{
			{
				SignatureKey:    key(0x10),
				Role:            wire.RoleAdmin,
				HasCreationInfo: true,
				CreationInfo:    wire.CreationInfo{UserKey: creator},
			},
			{
				SignatureKey:    key(0x11),
				Role:            wire.RoleParticipant,
				HasCreationInfo: true,
				CreationInfo:    wire.CreationInfo{UserKey: other},
			},
		},
	}
}

func TestCreateTopicAndEnqueueFanout(t *testing.T) {
	r, notifier := newTestRegistry(t)

	aliceKey, bobKey := key(1), key(2)
	aliceDevice, bobDevice := key(3), key(4)
	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: aliceKey,
		Devices:     []wire.Device{{DeviceKey: aliceDevice, IsActive: true, Application: "chat"}},
	}, [16]byte{}, 0, 0))
	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: bobKey,
		Devices:     []wire.Device{{DeviceKey: bobDevice, IsActive: true, Application: "chat"}},
	}, [16]byte{}, 0, 0))
	require.NoError(t, r.SetPushToken(bobDevice, [16]byte{0xBB}))

	topic := buildTopic(aliceKey, bobKey)
	require.NoError(t, r.CreateTopic(topic))
	require.Error(t, r.CreateTopic(topic))

	r.EnqueueTopicUpdate(context.Background(), topic, aliceDevice)

	bobMailbox, err := r.Drain(bobDevice)
	require.NoError(t, err)
	require.Len(t, bobMailbox.TopicUpdates, 1)
	require.Equal(t, 1, notifier.count())

	aliceMailbox, err := r.Drain(aliceDevice)
	require.NoError(t, err)
	require.Empty(t, aliceMailbox.TopicUpdates)
}

func TestEnqueueMessageAdvancesChainAndFansOut(t *testing.T) {
	r, _ := newTestRegistry(t)
	aliceKey, bobKey := key(1), key(2)
	aliceDevice, bobDevice := key(3), key(4)
	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: aliceKey,
		Devices:     []wire.Device{{DeviceKey: aliceDevice, IsActive: true, Application: "chat"}},
	}, [16]byte{}, 0, 0))
	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: bobKey,
		Devices:     []wire.Device{{DeviceKey: bobDevice, IsActive: true, Application: "chat"}},
	}, [16]byte{}, 0, 0))

	topic := buildTopic(aliceKey, bobKey)
	require.NoError(t, r.CreateTopic(topic))

	newChain := wire.ChainState{ChainIndex: 1, Output: crypto.SHA256(append(topic.TopicID[:], 0x01))}
	require.NoError(t, r.EnqueueMessage(context.Background(), topic.TopicID, newChain, wire.TopicUpdate{}, aliceDevice))

	state, err := r.GetTopic(topic.TopicID)
	require.NoError(t, err)
	require.EqualValues(t, 1, state.Chain.ChainIndex)

	bobMailbox, err := r.Drain(bobDevice)
	require.NoError(t, err)
	require.Len(t, bobMailbox.Messages, 1)
	require.EqualValues(t, 1, bobMailbox.Messages[0].Chain.ChainIndex)
}

func TestEnqueueDeliveryReceiptsOnlyNotifiesOnAdvance(t *testing.T) {
	r, notifier := newTestRegistry(t)
	bobKey := key(2)
	bobDevice := key(4)
	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: bobKey,
		Devices:     []wire.Device{{DeviceKey: bobDevice, IsActive: true, Application: "chat"}},
	}, [16]byte{}, 0, 0))
	require.NoError(t, r.SetPushToken(bobDevice, [16]byte{0xCC}))

	sender := key(9)
	var topicID [12]byte
	topicID[0] = 1
	perTopic := map[[12]byte]uint32{topicID: 3}

	r.EnqueueDeliveryReceipts(context.Background(), [][32]byte{bobKey}, sender, perTopic, "chat")
	require.Equal(t, 1, notifier.count())

	// Same or lower index: no further advance, no further notification.
	r.EnqueueDeliveryReceipts(context.Background(), [][32]byte{bobKey}, sender, perTopic, "chat")
	require.Equal(t, 1, notifier.count())

	download, err := r.Drain(bobDevice)
	require.NoError(t, err)
	require.Len(t, download.Receipts, 1)
	require.EqualValues(t, 3, download.Receipts[0].MaxChainIndex)
}

func TestIsTopicMember(t *testing.T) {
	r, _ := newTestRegistry(t)
	aliceKey, bobKey, strangerKey := key(1), key(2), key(3)
	topic := buildTopic(aliceKey, bobKey)
	require.NoError(t, r.CreateTopic(topic))

	ok, err := r.IsTopicMember(topic.TopicID, aliceKey)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.IsTopicMember(topic.TopicID, strangerKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSerializeAndLoadSnapshotRoundTrip(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.AllowUser("dave")
	require.NoError(t, err)
	require.NoError(t, r.RegisterUser(wire.InternalUser{
		IdentityKey: key(5),
		Name:        "erin",
		Devices:     []wire.Device{{DeviceKey: key(6)}},
	}, [16]byte{}, 0, 0))

	data, err := r.Serialize()
	require.NoError(t, err)

	r2, _ := newTestRegistry(t)
	require.NoError(t, r2.LoadSnapshot(data))

	got, err := r2.GetUser(key(5))
	require.NoError(t, err)
	require.Equal(t, "erin", got.Name)

	_, pending := r2.allowedUsers["dave"]
	require.True(t, pending)
}
