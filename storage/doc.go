// Package storage implements the rendezvous server's durable,
// content-addressed blob tree (spec.md §4.2): per-device prekey pools,
// per-(user, app) topic-key queues, per-topic hash-chain segments,
// opaque file blobs, and the registry snapshot.
//
// Grounded on the teacher's async/prekeys.go (mutex-guarded in-memory
// cache backed by per-peer files, loaded on startup) and
// crypto/keystore.go (temporary-file-then-rename atomic writes,
// restrictive file permissions). Records are encoded with the wire
// package rather than JSON, since the wire schema is part of this
// server's contract (spec.md §6), not an implementation detail.
package storage
