package registry

import "github.com/opd-ai/rendezvous/wire"

// Serialize builds the durable ManagementData snapshot: the admin token,
// the pending-registration table, and the registered-user set (spec.md
// §6's "server" file). Auth tokens, push tokens, mailboxes, and topic
// state are intentionally excluded — they are not part of the
// ManagementData schema (spec.md §6) and are expected to be reconstructed
// from the durable per-entity storage blobs on restart.
func (r *Registry) Serialize() ([]byte, error) {
	r.mu.Lock()
	snap := wire.ManagementData{AdminToken: r.adminToken}
	for _, a := range r.allowedUsers {
		snap.AllowedUsers = append(snap.AllowedUsers, a)
	}
	for _, u := range r.users {
		snap.Users = append(snap.Users, u)
	}
	r.mu.Unlock()

	return snap.Marshal()
}

// LoadSnapshot replaces the registry's admin token, allowed-user table,
// and user set with the contents of a decoded ManagementData blob. It
// does not repopulate auth tokens, push tokens, mailboxes, or topic
// state; callers that need those must replay the storage layer's
// per-entity blobs separately.
func (r *Registry) LoadSnapshot(data []byte) error {
	md, err := wire.UnmarshalManagementData(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.adminToken = md.AdminToken

	r.allowedUsers = make(map[string]wire.AllowedUser, len(md.AllowedUsers))
	for _, a := range md.AllowedUsers {
		r.allowedUsers[a.Name] = a
	}

	r.users = make(map[[32]byte]wire.InternalUser, len(md.Users))
	r.deviceOwner = make(map[[32]byte][32]byte)
	for _, u := range md.Users {
		r.users[u.IdentityKey] = u
		for _, d := range u.Devices {
			r.deviceOwner[d.DeviceKey] = u.IdentityKey
		}
	}

	return nil
}
