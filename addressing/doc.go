// Package addressing derives record addresses from owner identities.
//
// An address is keccak256(namespace || owner || bump || "RecordAddress"),
// where bump is the largest value in [0, 255] for which the digest, read as
// an x coordinate, is not on the secp256k1 curve. The bump is returned as the
// derivation proof and stored with the record, so that Verify can re-check the
// binding with a single hash instead of repeating the search.
package addressing
