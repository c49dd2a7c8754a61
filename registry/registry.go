package registry

import (
	"sync"

	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/push"
	"github.com/opd-ai/rendezvous/wire"
	"github.com/sirupsen/logrus"
)

// PinExpiryInterval is how long an admin-issued pin remains valid before
// it must be re-issued (spec.md §4.5 allowUser: 60*60*32*7 = 806400
// seconds, ~9.3 days).
const PinExpiryInterval = 60 * 60 * 32 * 7

// mailboxState is the internal, mutation-friendly shape of a device's
// mailbox. Receipts are tracked as sender->topic->maxIndex so
// enqueueDeliveryReceipts can cheaply detect "newly advanced" entries;
// Drain flattens it into the wire.DeviceDownload shape clients expect.
type mailboxState struct {
	topicUpdates     []wire.Topic
	topicKeyMessages []wire.TopicKeyMessage
	messages         []wire.Message
	receipts         map[[32]byte]map[[12]byte]uint32
	remainingKeys    uint32
	remainingPreKeys uint32
}

func newMailboxState() *mailboxState {
	return &mailboxState{receipts: make(map[[32]byte]map[[12]byte]uint32)}
}

func (m *mailboxState) snapshot() wire.DeviceDownload {
	out := wire.DeviceDownload{
		TopicUpdates:       append([]wire.Topic(nil), m.topicUpdates...),
		TopicKeyMessages:   append([]wire.TopicKeyMessage(nil), m.topicKeyMessages...),
		Messages:           append([]wire.Message(nil), m.messages...),
		RemainingTopicKeys: m.remainingKeys,
		RemainingPreKeys:   m.remainingPreKeys,
	}
	for sender, byTopic := range m.receipts {
		for topicID, maxIndex := range byTopic {
			out.Receipts = append(out.Receipts, wire.Receipt{
				Sender:        sender,
				TopicID:       topicID,
				MaxChainIndex: maxIndex,
			})
		}
	}
	return out
}

// target is one device the registry must fan content out to.
type target struct {
	deviceKey  [32]byte
	pushToken  string
	hasPushTok bool
}

// Registry is the server's authoritative in-memory state (spec.md §4.3).
// All mutations are serialized behind mu; the push-notification call
// must never happen while mu is held (spec.md §5), so every fanout
// helper splits into a locked mutate phase and an unlocked notify phase.
type Registry struct {
	mu sync.Mutex

	allowedUsers        map[string]wire.AllowedUser
	users               map[[32]byte]wire.InternalUser
	deviceOwner         map[[32]byte][32]byte
	authTokens          map[[32]byte][16]byte
	notificationTokens  map[[32]byte]string
	mailbox             map[[32]byte]*mailboxState
	oldMailbox          map[[32]byte]wire.DeviceDownload
	topics              map[[12]byte]wire.TopicState

	adminToken [16]byte
	dirty      bool

	time     crypto.TimeProvider
	notifier push.Notifier
}

// New creates an empty Registry with a freshly generated admin token.
func New(notifier push.Notifier) (*Registry, error) {
	token, err := crypto.RandomBytes(16)
	if err != nil {
		return nil, err
	}
	r := newEmpty(notifier)
	copy(r.adminToken[:], token)
	return r, nil
}

func newEmpty(notifier push.Notifier) *Registry {
	if notifier == nil {
		notifier = push.NoopNotifier{}
	}
	return &Registry{
		allowedUsers:       make(map[string]wire.AllowedUser),
		users:              make(map[[32]byte]wire.InternalUser),
		deviceOwner:        make(map[[32]byte][32]byte),
		authTokens:         make(map[[32]byte][16]byte),
		notificationTokens: make(map[[32]byte]string),
		mailbox:            make(map[[32]byte]*mailboxState),
		oldMailbox:         make(map[[32]byte]wire.DeviceDownload),
		topics:             make(map[[12]byte]wire.TopicState),
		time:               crypto.GetDefaultTimeProvider(),
		notifier:           notifier,
	}
}

// Dirty reports whether the registry has mutated since the last
// ClearDirty call (spec.md §4.3: "all mutations flag the registry
// dirty; the caller decides when to snapshot").
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// ClearDirty resets the dirty flag, typically right after a successful
// snapshot write.
func (r *Registry) ClearDirty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = false
}

func (r *Registry) markDirty() { r.dirty = true }

func logFields(function string) logrus.Fields {
	return logrus.Fields{"function": function}
}
