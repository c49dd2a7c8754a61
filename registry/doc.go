// Package registry holds the rendezvous server's authoritative in-memory
// state: allowed-user invitations, registered users and devices, auth and
// push tokens, per-device mailboxes, and topic chain heads (spec.md
// §4.3). Every mutator is a pure in-memory operation; callers own
// deciding when to persist (via storage) and when to invoke the push
// adapter.
//
// Grounded on the teacher's friend/friend.go (struct-plus-logrus-fields
// mutator style, "function"/key-prefix log fields) and group/chat.go
// (member roles, mutex-guarded collections); the single-exclusive-lock
// model matches spec.md §5's "simplest faithful design."
package registry
