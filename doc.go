// Package rendezvous composes the crypto, storage, registry, and
// validator components into the request handlers spec.md §4.5 and §1
// name: one exported method per operation, each parsing already-decoded
// wire types, running the relevant validators, and committing to the
// registry and storage atomically before fanning updates out to member
// devices.
//
// The HTTP transport, route wiring, and push-notification HTTP client
// are external adapters (spec.md §1) and live outside this package; a
// caller (e.g. cmd/rendezvous-server) decodes wire.* records off the
// transport of its choice and calls into *Server.
//
// Grounded on the teacher's toxcore.go: a single composition-root struct
// (there, Tox; here, Server) constructed once at startup and wired with
// its collaborators, exposing one method per protocol operation.
package rendezvous
