package registry

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/wire"
)

// RegisterUser installs a freshly validated registration bundle: creates
// the user entry, binds its one device, installs the device auth token,
// seeds the device's mailbox counters, and drops the spent allowedUsers
// entry (spec.md §4.5 registerUserWithDeviceAndKeys). Callers must have
// already run canRegister and every signature/structural check.
func (r *Registry) RegisterUser(info wire.InternalUser, authToken [16]byte, remainingPreKeys, remainingTopicKeys uint32) error {
	if len(info.Devices) != 1 {
		return apierr.New(apierr.KindInvalidRequest, "registerUser", "registration bundle must carry exactly one device")
	}
	deviceKey := info.Devices[0].DeviceKey

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[info.IdentityKey]; exists {
		return apierr.New(apierr.KindResourceAlreadyExists, "registerUser", "user already registered")
	}
	if _, exists := r.deviceOwner[deviceKey]; exists {
		return apierr.New(apierr.KindResourceAlreadyExists, "registerUser", "device key already in use")
	}

	r.users[info.IdentityKey] = info
	r.deviceOwner[deviceKey] = info.IdentityKey
	r.authTokens[deviceKey] = authToken
	mb := newMailboxState()
	mb.remainingKeys = remainingTopicKeys
	mb.remainingPreKeys = remainingPreKeys
	r.mailbox[deviceKey] = mb
	delete(r.allowedUsers, info.Name)
	r.markDirty()
	return nil
}

// GetUser returns the current User record for getUserInfo.
func (r *Registry) GetUser(userKey [32]byte) (wire.InternalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userKey]
	if !ok {
		return wire.InternalUser{}, apierr.New(apierr.KindResourceNotAvailable, "getUserInfo", "unknown user")
	}
	return u, nil
}

// DeleteUser removes a user and every device's token and mailbox,
// returning the removed record so the caller can tear down its storage
// tree (spec.md §4.5 deleteUser / deleteUserAsAdmin).
func (r *Registry) DeleteUser(userKey [32]byte) (wire.InternalUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userKey]
	if !ok {
		return wire.InternalUser{}, apierr.New(apierr.KindResourceNotAvailable, "deleteUser", "unknown user")
	}
	for _, d := range u.Devices {
		delete(r.deviceOwner, d.DeviceKey)
		delete(r.authTokens, d.DeviceKey)
		delete(r.notificationTokens, d.DeviceKey)
		delete(r.mailbox, d.DeviceKey)
		delete(r.oldMailbox, d.DeviceKey)
	}
	delete(r.users, userKey)
	r.markDirty()
	return u, nil
}

// RegisterDevice installs a validated device-add: newInfo must already be
// confirmed to append exactly one device at the tail (spec.md §4.5
// registerDevice). Binds the caller-minted authToken to the new device and
// seeds its empty mailbox.
func (r *Registry) RegisterDevice(userKey [32]byte, newInfo wire.InternalUser, authToken [16]byte) error {
	if len(newInfo.Devices) == 0 {
		return apierr.New(apierr.KindInvalidRequest, "registerDevice", "user record carries no devices")
	}
	newDevice := newInfo.Devices[len(newInfo.Devices)-1]

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[userKey]; !exists {
		return apierr.New(apierr.KindResourceNotAvailable, "registerDevice", "unknown user")
	}
	if _, exists := r.deviceOwner[newDevice.DeviceKey]; exists {
		return apierr.New(apierr.KindResourceAlreadyExists, "registerDevice", "device key already in use")
	}

	r.users[userKey] = newInfo
	r.deviceOwner[newDevice.DeviceKey] = userKey
	r.authTokens[newDevice.DeviceKey] = authToken
	r.mailbox[newDevice.DeviceKey] = newMailboxState()
	r.markDirty()
	return nil
}

// DeleteDevice installs a validated device-remove: removedDeviceKey is
// the device the caller's diff against the prior record determined was
// dropped (spec.md §4.5 deleteDevice).
func (r *Registry) DeleteDevice(userKey [32]byte, newInfo wire.InternalUser, removedDeviceKey [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[userKey]; !exists {
		return apierr.New(apierr.KindResourceNotAvailable, "deleteDevice", "unknown user")
	}

	r.users[userKey] = newInfo
	delete(r.deviceOwner, removedDeviceKey)
	delete(r.authTokens, removedDeviceKey)
	delete(r.notificationTokens, removedDeviceKey)
	delete(r.mailbox, removedDeviceKey)
	delete(r.oldMailbox, removedDeviceKey)
	r.markDirty()
	return nil
}

// SetPushToken installs the push token an already-authenticated device
// supplied (spec.md §4.5 setPushToken).
func (r *Registry) SetPushToken(deviceKey [32]byte, token [16]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deviceOwner[deviceKey]; !exists {
		return apierr.New(apierr.KindResourceNotAvailable, "setPushToken", "unknown device")
	}
	r.notificationTokens[deviceKey] = string(token[:])
	return nil
}
