// Package interfaces defines the core types and collaborator interfaces of the
// audit record registry, separating interface definitions from implementations.
//
// # Record
//
// A Record is owned by exactly one OwnerID and lives at a RecordAddress that
// is derived from the owner under the "registry" namespace. The record keeps
// the derivation bump so that later calls can re-verify the binding without
// searching again.
//
//   - Owner: 20-byte account identity, immutable
//   - Address: 32-byte derived storage key, immutable
//   - Bump: derivation proof, immutable
//   - Version: set once at creation, always > 0
//   - MetadataURI: at most URILimit (200) bytes
//   - MetadataChecksum: opaque 32 bytes
//
// # Collaborators
//
// AddressDeriver: pure derivation and re-verification of record addresses.
//
// RecordStore: key-value store keyed by RecordAddress with create-if-absent
// and overwrite writes.
//
// RecordRegistry: the record lifecycle (create, update, read).
//
// # Errors
//
// All registry failures are sentinel errors matched with errors.Is.
// ErrorKind maps them to the names surfaced to callers.
package interfaces
