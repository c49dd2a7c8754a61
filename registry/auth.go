package registry

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/crypto"
	"github.com/opd-ai/rendezvous/wire"
)

// AuthenticateUser requires the user to exist, the device to belong to
// the user, and the token to match in constant time (spec.md §4.3
// authenticateUser).
func (r *Registry) AuthenticateUser(userKey, deviceKey [32]byte, token [16]byte) (wire.InternalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userKey]
	if !ok {
		return wire.InternalUser{}, apierr.New(apierr.KindAuthenticationFailed, "authenticateUser", "unknown user")
	}
	owner, ok := r.deviceOwner[deviceKey]
	if !ok || owner != userKey {
		return wire.InternalUser{}, apierr.New(apierr.KindAuthenticationFailed, "authenticateUser", "device does not belong to user")
	}
	stored, ok := r.authTokens[deviceKey]
	if !ok || !crypto.ConstantTimeEqual(stored[:], token[:]) {
		return wire.InternalUser{}, apierr.New(apierr.KindAuthenticationFailed, "authenticateUser", "token mismatch")
	}
	return user, nil
}

// AuthenticateDevice authenticates a (device, token) pair without
// requiring a caller-supplied user binding, returning the owning user key
// (spec.md §4.3 authenticateDevice).
func (r *Registry) AuthenticateDevice(deviceKey [32]byte, token [16]byte) ([32]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.deviceOwner[deviceKey]
	if !ok {
		return [32]byte{}, apierr.New(apierr.KindAuthenticationFailed, "authenticateDevice", "unknown device")
	}
	stored, ok := r.authTokens[deviceKey]
	if !ok || !crypto.ConstantTimeEqual(stored[:], token[:]) {
		return [32]byte{}, apierr.New(apierr.KindAuthenticationFailed, "authenticateDevice", "token mismatch")
	}
	return owner, nil
}

// AuthenticateAdmin verifies a caller-supplied token against the current
// admin token in constant time.
func (r *Registry) AuthenticateAdmin(token [16]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !crypto.ConstantTimeEqual(r.adminToken[:], token[:]) {
		return apierr.New(apierr.KindAuthenticationFailed, "authenticateAdmin", "bad admin token")
	}
	return nil
}

// CanRegister implements the registration gate (spec.md §4.3
// canRegister): absent entries and exhausted/expired pins fail
// authentication; wrong pins consume a try and evict at zero.
func (r *Registry) CanRegister(name string, pin uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.allowedUsers[name]
	if !ok {
		return false
	}
	now := r.time.Now().Unix()
	if entry.Expiry < now {
		delete(r.allowedUsers, name)
		r.markDirty()
		return false
	}
	if entry.Pin == pin {
		return true
	}
	entry.TriesRemaining--
	if entry.TriesRemaining == 0 {
		delete(r.allowedUsers, name)
	} else {
		r.allowedUsers[name] = entry
	}
	r.markDirty()
	return false
}
