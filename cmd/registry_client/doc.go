// Package main (cmd/registry_client) is the command-line client of the audit
// record registry.
//
// Mutating commands sign their requests with the owner's secp256k1 key,
// given through --private-key (or REGISTRY_PRIVATE_KEY) or --private-key-file.
//
//	address - Derive the record address of --owner (or of the signer). With
//	          --local the derivation runs in the client.
//
//	create  - Create the signer's record with --version.
//
//	update  - Replace --uri and --checksum of the signer's record, or of
//	          --owner's record, which only its owner may do.
//
//	get     - Print a record. With --verify the metadata document is fetched
//	          from IPFS and checked against the recorded checksum.
//
//	publish - Add --file to IPFS and print the resulting ipfs:// URI and its
//	          sha256 checksum. With --update the signer's record is pointed
//	          at the document.
//
// Example:
//
//	registry_client --private-key=$KEY create --version=1
//	registry_client --private-key=$KEY publish --file=report.json --update
//	registry_client get --owner=0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed --verify
package main
