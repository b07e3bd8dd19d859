package interfaces

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// URILimit is the maximum length of a record's metadata URI, in bytes.
const URILimit = 200

// RecordNamespace is the domain separation tag used when deriving record addresses.
const RecordNamespace = "registry"

// OwnerID is the 20-byte account identity that controls a record.
type OwnerID [20]byte

// NewOwnerIDFromBytes creates an owner identity from a 20-byte slice.
func NewOwnerIDFromBytes(id []byte) (OwnerID, error) {
	if len(id) != 20 {
		return OwnerID{}, errors.New("invalid owner length: must be 20 bytes")
	}

	var res OwnerID
	copy(res[:], id)
	return res, nil
}

// NewOwnerIDFromHex parses a 40-character hex string, with or without the 0x prefix.
func NewOwnerIDFromHex(id string) (OwnerID, error) {
	clean := strings.TrimPrefix(id, "0x")
	if len(clean) != 40 {
		return OwnerID{}, errors.New("invalid owner length: hex string must be 40 characters")
	}

	idBytes, err := hex.DecodeString(clean)
	if err != nil {
		return OwnerID{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewOwnerIDFromBytes(idBytes)
}

// String returns the hex string representation of the owner identity.
func (id OwnerID) String() string {
	return hex.EncodeToString(id[:])
}

// Bytes returns the raw 20-byte identity.
func (id OwnerID) Bytes() []byte {
	return id[:]
}

// Equal compares two owner identities.
func (id OwnerID) Equal(other OwnerID) bool {
	return id == other
}

// RecordAddress is the 32-byte storage key of a record, derived from its owner.
type RecordAddress [32]byte

// NewRecordAddressFromHex parses a 64-character hex string, with or without the 0x prefix.
func NewRecordAddressFromHex(addr string) (RecordAddress, error) {
	clean := strings.TrimPrefix(addr, "0x")
	if len(clean) != 64 {
		return RecordAddress{}, errors.New("invalid record address length: hex string must be 64 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return RecordAddress{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var res RecordAddress
	copy(res[:], addrBytes)
	return res, nil
}

// String returns hex representation.
func (addr RecordAddress) String() string {
	return hex.EncodeToString(addr[:])
}

// Bytes returns the raw 32-byte address.
func (addr RecordAddress) Bytes() []byte {
	return addr[:]
}

// Checksum is an opaque 32-byte integrity value attached to the metadata URI.
type Checksum [32]byte

// NewChecksumFromHex parses a 64-character hex string, with or without the 0x prefix.
func NewChecksumFromHex(source string) (Checksum, error) {
	clean := strings.TrimPrefix(source, "0x")
	if len(clean) != 64 {
		return Checksum{}, errors.New("invalid checksum length: hex string must be 64 characters")
	}

	sumBytes, err := hex.DecodeString(clean)
	if err != nil {
		return Checksum{}, fmt.Errorf("invalid hex format: %w", err)
	}

	var sum Checksum
	copy(sum[:], sumBytes)
	return sum, nil
}

// String returns hex representation.
func (c Checksum) String() string {
	return hex.EncodeToString(c[:])
}

// Record is the single registry entry owned by an identity.
type Record struct {
	// Owner is the authority allowed to mutate the record. Immutable.
	Owner OwnerID

	// Address is derived from Owner and is the record's storage key. Immutable.
	Address RecordAddress

	// Bump is the derivation proof found at creation time. Immutable.
	Bump uint8

	// Version is set at creation and never changed afterwards. Always > 0.
	Version uint64

	// MetadataURI points at the off-chain metadata document. At most URILimit bytes.
	MetadataURI string

	// MetadataChecksum is opaque to the registry.
	MetadataChecksum Checksum
}

// Clone returns a copy of the record that shares no memory with r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Validate checks the record's field invariants.
func (r *Record) Validate() error {
	if r.Version == 0 {
		return ErrInvalidVersion
	}
	if len(r.MetadataURI) > URILimit {
		return ErrURITooLong
	}
	return nil
}

// MetadataInput is the payload of a metadata update.
type MetadataInput struct {
	URI      string
	Checksum Checksum
}
