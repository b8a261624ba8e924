// Package envelope implements the type-preserving plaintext wrapper that
// cipherbox encrypts.
//
// A Value is one of four kinds: Int, Float, String or Composite. Composite
// values are Lists, Maps, Records or caller types implementing Composite,
// and may nest any of those plus bools, nulls and byte slices.
//
// Serialized layout:
//   - "CBX" magic, version byte, kind byte, shape byte
//   - uvarint payload length, payload
//   - '.' terminator
//
// Composite payloads use a recursive tag-length-value encoding. Decoding
// re-checks the decoded shape against the stored one, so a payload that
// parses into something other than what was stored is rejected with
// ErrTypeIntegrity rather than returned.
package envelope
