package registry

import (
	"context"

	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/wire"
	"golang.org/x/sync/errgroup"
)

// activeDeviceTargetsLocked returns every active device a user owns in
// the given application, the fanout set spec.md §4.3's enqueue helpers
// iterate over. Callers must hold r.mu.
func (r *Registry) activeDeviceTargetsLocked(userKey [32]byte, application string) []target {
	user, ok := r.users[userKey]
	if !ok {
		return nil
	}
	var targets []target
	for _, d := range user.Devices {
		if !d.IsActive || d.Application != application {
			continue
		}
		t := target{deviceKey: d.DeviceKey}
		if tok, ok := r.notificationTokens[d.DeviceKey]; ok {
			t.pushToken, t.hasPushTok = tok, true
		}
		targets = append(targets, t)
	}
	return targets
}

// notifyAll dispatches push notifications concurrently. It must be
// called with no Registry lock held (spec.md §5: "the push call must
// not hold a Registry lock"); a notification failure never surfaces to
// the caller, since push.Notifier implementations log their own errors.
func (r *Registry) notifyAll(ctx context.Context, targets []target) {
	var g errgroup.Group
	for _, t := range targets {
		if !t.hasPushTok {
			continue
		}
		pushToken := t.pushToken
		g.Go(func() error {
			_ = r.notifier.Notify(ctx, pushToken)
			return nil
		})
	}
	_ = g.Wait()
}

// memberTargetsLocked expands a topic's member list into device fanout
// targets, using each member's creation-info user key (every member
// carries one, per the topic-creation invariant). Callers must hold r.mu.
func (r *Registry) memberTargetsLocked(members []wire.MemberInfo, application string) []target {
	var targets []target
	for _, m := range members {
		if !m.HasCreationInfo {
			continue
		}
		targets = append(targets, r.activeDeviceTargetsLocked(m.CreationInfo.UserKey, application)...)
	}
	return targets
}

// EnqueueTopicUpdate appends topicRecord to the mailbox of every active
// device of every member in the topic's application, excluding
// exceptDevice (spec.md §4.3 enqueueTopicUpdate).
func (r *Registry) EnqueueTopicUpdate(ctx context.Context, topicRecord wire.Topic, exceptDevice [32]byte) {
	r.mu.Lock()
	var notifyTargets []target
	for _, t := range r.memberTargetsLocked(topicRecord.Members, topicRecord.Application) {
		if t.deviceKey == exceptDevice {
			continue
		}
		if mb, ok := r.mailbox[t.deviceKey]; ok {
			mb.topicUpdates = append(mb.topicUpdates, topicRecord)
		}
		notifyTargets = append(notifyTargets, t)
	}
	r.mu.Unlock()

	r.notifyAll(ctx, notifyTargets)
}

// EnqueueMessage commits a new chain head for topicID and appends the
// delivered message to every active device of every member except
// senderDevice (spec.md §4.3 enqueueMessage). The caller computes chain
// via storage.AppendUpdate before calling this.
func (r *Registry) EnqueueMessage(ctx context.Context, topicID [12]byte, chain wire.ChainState, content wire.TopicUpdate, senderDevice [32]byte) error {
	r.mu.Lock()
	state, ok := r.topics[topicID]
	if !ok {
		r.mu.Unlock()
		return apierr.New(apierr.KindResourceNotAvailable, "enqueueMessage", "unknown topic")
	}
	state.Chain = chain
	r.topics[topicID] = state

	msg := wire.Message{TopicID: topicID, Chain: chain, Content: content}
	var notifyTargets []target
	for _, t := range r.memberTargetsLocked(state.Info.Members, state.Info.Application) {
		if t.deviceKey == senderDevice {
			continue
		}
		if mb, ok := r.mailbox[t.deviceKey]; ok {
			mb.messages = append(mb.messages, msg)
		}
		notifyTargets = append(notifyTargets, t)
	}
	r.mu.Unlock()

	r.notifyAll(ctx, notifyTargets)
	return nil
}

// EnqueueDeliveryReceipts advances, for each recipient's active devices
// in appID, the stored per-sender per-topic maximum chain index;
// push notifications are only sent for entries that actually advanced
// (spec.md §4.3 enqueueDeliveryReceipts).
func (r *Registry) EnqueueDeliveryReceipts(ctx context.Context, recipients [][32]byte, sender [32]byte, perTopicMaxIndex map[[12]byte]uint32, appID string) {
	r.mu.Lock()
	var notifyTargets []target
	for _, userKey := range recipients {
		for _, t := range r.activeDeviceTargetsLocked(userKey, appID) {
			mb, ok := r.mailbox[t.deviceKey]
			if !ok {
				continue
			}
			if mb.receipts[sender] == nil {
				mb.receipts[sender] = make(map[[12]byte]uint32)
			}
			advanced := false
			for topicID, newIndex := range perTopicMaxIndex {
				if newIndex > mb.receipts[sender][topicID] {
					mb.receipts[sender][topicID] = newIndex
					advanced = true
				}
			}
			if advanced {
				notifyTargets = append(notifyTargets, t)
			}
		}
	}
	r.mu.Unlock()

	r.notifyAll(ctx, notifyTargets)
}

// Drain returns a device's current mailbox contents, retains the
// snapshot as oldMailbox for one retry, and resets the live mailbox
// while preserving its remaining-key counters (spec.md §4.3 drain).
func (r *Registry) Drain(deviceKey [32]byte) (wire.DeviceDownload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mb, ok := r.mailbox[deviceKey]
	if !ok {
		return wire.DeviceDownload{}, apierr.New(apierr.KindResourceNotAvailable, "drain", "unknown device")
	}
	snap := mb.snapshot()
	r.oldMailbox[deviceKey] = snap
	r.mailbox[deviceKey] = &mailboxState{
		receipts:         make(map[[32]byte]map[[12]byte]uint32),
		remainingKeys:    mb.remainingKeys,
		remainingPreKeys: mb.remainingPreKeys,
	}
	return snap, nil
}

// SetRemainingCounts updates a device's mailbox counters after a prekey
// or topic-key consumption/upload, independent of a full drain.
func (r *Registry) SetRemainingCounts(deviceKey [32]byte, remainingPreKeys, remainingTopicKeys *uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mb, ok := r.mailbox[deviceKey]
	if !ok {
		return apierr.New(apierr.KindResourceNotAvailable, "setRemainingCounts", "unknown device")
	}
	if remainingPreKeys != nil {
		mb.remainingPreKeys = *remainingPreKeys
	}
	if remainingTopicKeys != nil {
		mb.remainingKeys = *remainingTopicKeys
	}
	return nil
}

// EnqueueTopicKeyMessage appends one encrypted topic-key message to a
// recipient device's mailbox (spec.md §4.5 addTopicKeys fanout).
func (r *Registry) EnqueueTopicKeyMessage(deviceKey [32]byte, msg wire.TopicKeyMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mb, ok := r.mailbox[deviceKey]
	if !ok {
		return apierr.New(apierr.KindResourceNotAvailable, "enqueueTopicKeyMessage", "unknown device")
	}
	mb.topicKeyMessages = append(mb.topicKeyMessages, msg)
	return nil
}

// DevicesForUserApp lists a user's active device keys in one application,
// used by handlers that must validate a fanout set against the uploaded
// recipient list (spec.md §4.5 addTopicKeys).
func (r *Registry) DevicesForUserApp(userKey [32]byte, application string) ([][32]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userKey]
	if !ok {
		return nil, apierr.New(apierr.KindResourceNotAvailable, "devicesForUserApp", "unknown user")
	}
	var keys [][32]byte
	for _, d := range user.Devices {
		if d.IsActive && d.Application == application {
			keys = append(keys, d.DeviceKey)
		}
	}
	return keys, nil
}
