// Package validator implements the rendezvous server's stateless request
// checks (spec.md §4.4): timestamp freshness, self-signed and
// key-signed record verification, and the structural invariants on user
// mutations, topic creation, and topic updates.
//
// Every check here is a pure function over crypto/wire types — none of
// them touch the registry or storage. Handlers compose them with
// registry lookups to decide whether a request may proceed. Grounded on
// the teacher's friend/request.go (validation-with-typed-errors style:
// named limits, named sentinel-shaped failures) and limits/limits.go
// (size-limit constants paired with a Validate* function per limit).
package validator
