package rendezvous

import (
	"github.com/opd-ai/rendezvous/apierr"
	"github.com/opd-ai/rendezvous/wire"
)

// RenewAdminToken verifies the current admin token and replaces it with
// a freshly generated one (spec.md §4.5 renewAdminToken).
func (s *Server) RenewAdminToken(adminToken [16]byte) ([16]byte, error) {
	const op = "renewAdminToken"
	if err := s.registry.AuthenticateAdmin(adminToken); err != nil {
		return [16]byte{}, err
	}
	next, err := s.registry.RenewAdminToken()
	if err != nil {
		return [16]byte{}, internalErr(op, err)
	}
	s.snapshot(op)
	return next, nil
}

// ResetAll wipes every registered user, device, topic, and storage blob
// and re-initializes with a fresh admin token. It is only available in
// development mode (spec.md §4.5 resetAll, §9's note that
// enableTestAccounts-style development affordances are omitted from
// production builds).
func (s *Server) ResetAll(adminToken [16]byte) ([16]byte, error) {
	const op = "resetAll"
	if !s.development {
		return [16]byte{}, apierr.New(apierr.KindInvalidRequest, op, "reset is only available in development mode")
	}
	if err := s.registry.AuthenticateAdmin(adminToken); err != nil {
		return [16]byte{}, err
	}
	if err := s.storage.DeleteAll(); err != nil {
		return [16]byte{}, internalErr(op, err)
	}
	next, err := s.registry.ResetAll()
	if err != nil {
		return [16]byte{}, internalErr(op, err)
	}
	s.snapshot(op)
	return next, nil
}

// AllowUser admits a new pending registration under name (spec.md §4.5
// allowUser).
func (s *Server) AllowUser(adminToken [16]byte, name string) (wire.AllowedUser, error) {
	const op = "allowUser"
	if err := s.registry.AuthenticateAdmin(adminToken); err != nil {
		return wire.AllowedUser{}, err
	}
	entry, err := s.registry.AllowUser(name)
	if err != nil {
		return wire.AllowedUser{}, err
	}
	s.snapshot(op)
	return entry, nil
}

// DeleteUserAsAdmin removes a registered user's registry state and
// storage tree without requiring the user's own signature (spec.md §4.5
// deleteUserAsAdmin).
func (s *Server) DeleteUserAsAdmin(adminToken [16]byte, userKey [32]byte) error {
	const op = "deleteUserAsAdmin"
	if err := s.registry.AuthenticateAdmin(adminToken); err != nil {
		return err
	}
	if _, err := s.registry.DeleteUser(userKey); err != nil {
		return err
	}
	if err := s.storage.DeleteUserTree(userKey[:]); err != nil {
		return internalErr(op, err)
	}
	s.snapshot(op)
	return nil
}
