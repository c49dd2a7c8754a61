package registry

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
)

// RenewAdminToken generates and installs a new 16-byte admin token,
// returning it (spec.md §4.5 renewAdminToken). Caller must have already
// verified the current token via AuthenticateAdmin.
func (r *Registry) RenewAdminToken() ([16]byte, error) {
	token, err := crypto.RandomBytes(16)
	if err != nil {
		return [16]byte{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.adminToken[:], token)
	r.markDirty()
	return r.adminToken, nil
}

// AllowUser admits a new pending registration (spec.md §4.5 allowUser).
// Caller must have already verified the admin token.
func (r *Registry) AllowUser(name string) (wire.AllowedUser, error) {
	pinRand, err := crypto.RandomUint32(100000)
	if err != nil {
		return wire.AllowedUser{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.allowedUsers[name]; exists {
		return wire.AllowedUser{}, apierr.New(apierr.KindResourceAlreadyExists, "allowUser", "name already pending")
	}
	if _, exists := r.userByNameLocked(name); exists {
		return wire.AllowedUser{}, apierr.New(apierr.KindResourceAlreadyExists, "allowUser", "name already registered")
	}

	entry := wire.AllowedUser{
		Name:           name,
		Pin:            pinRand,
		Expiry:         r.time.Now().Unix() + PinExpiryInterval,
		TriesRemaining: 3,
	}
	r.allowedUsers[name] = entry
	r.markDirty()
	return entry, nil
}

// ResetAll clears every in-memory table and mints a fresh admin token,
// returning it (spec.md §4.5 resetAll, development mode only). Callers
// must have already verified the current admin token and must separately
// wipe the storage tree.
func (r *Registry) ResetAll() ([16]byte, error) {
	token, err := crypto.RandomBytes(16)
	if err != nil {
		return [16]byte{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.allowedUsers = make(map[string]wire.AllowedUser)
	r.users = make(map[[32]byte]wire.InternalUser)
	r.deviceOwner = make(map[[32]byte][32]byte)
	r.authTokens = make(map[[32]byte][16]byte)
	r.notificationTokens = make(map[[32]byte]string)
	r.mailbox = make(map[[32]byte]*mailboxState)
	r.oldMailbox = make(map[[32]byte]wire.DeviceDownload)
	r.topics = make(map[[12]byte]wire.TopicState)
	copy(r.adminToken[:], token)
	r.markDirty()
	return r.adminToken, nil
}

// userByNameLocked looks up a registered user by display name. Callers
// must hold r.mu.
func (r *Registry) userByNameLocked(name string) (wire.InternalUser, bool) {
	for _, u := range r.users {
		if u.Name == name {
			return u, true
		}
	}
	return wire.InternalUser{}, false
}
