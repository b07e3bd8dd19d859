// Package storage provides record stores with pluggable backends.
//
// Every backend implements interfaces.RecordStore: records are keyed by their
// derived address, Create is create-if-absent, Put overwrites.
//
//   - MemoryStore for tests and ephemeral deployments
//   - FileStore for single-node deployments
//   - S3Store for S3-compatible object storage
//   - VaultStore for HashiCorp Vault KV v2 mounts
//   - MultiStore to mirror a primary store into secondaries
//
// # Store URI Format
//
// Stores are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - memory://
//   - file:///var/lib/audit-registry
//   - s3://bucket-name/prefix?region=us-west-2
//   - vault://vault.example.com:8200/secret/audit-registry
//
// # Record Encoding
//
// File, S3 and Vault stores persist records in a fixed binary layout:
//
//	discriminator [8] | owner [20] | version u64 LE | bump u8 | uri_len u32 LE | uri | checksum [32]
//
// The discriminator is the first 8 bytes of sha256("account:Registry").
// The address is never encoded; it is the key the bytes are stored under.
package storage
