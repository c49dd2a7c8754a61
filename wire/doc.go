// Package wire implements the rendezvous server's field-tagged binary
// record format (spec.md §6): varints, length-delimited byte strings, and
// nested messages, with a fixed schema of field tags per record type.
//
// No repository in the retrieval pack vendors a runnable protobuf codegen
// pipeline this exercise can reproduce without invoking the Go toolchain,
// so the codec is hand-written directly against spec.md's wire framing
// description — see DESIGN.md for the standard-library justification.
//
// Every record type exposes Marshal() ([]byte, error) and a matching
// Unmarshal function; fields are read in tag order regardless of their
// position on the wire, and unknown tags are skipped, so the schema can
// grow without breaking old readers.
//
// Signed records follow one convention throughout: the signed bytes are
// the canonical encoding of the record with its signature field cleared.
// SignableBytes implements exactly that for any record implementing
// Signable (WithZeroSignature plus Marshal; §9's "single helper" note).
package wire
