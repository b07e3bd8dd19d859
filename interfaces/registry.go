package interfaces

import "context"

// AddressDeriver computes and re-verifies record addresses for a fixed namespace.
type AddressDeriver interface {
	// Derive returns the record address for owner together with the bump
	// that places it in the valid address space.
	Derive(owner OwnerID) (RecordAddress, uint8, error)

	// Verify checks that bump reproduces addr for owner.
	// Returns ErrAddressBindingInvalid on mismatch.
	Verify(owner OwnerID, bump uint8, addr RecordAddress) error
}

// RecordRegistry is the access-controlled record lifecycle.
// Callers are expected to be authenticated by the host.
type RecordRegistry interface {
	// CreateRecord allocates the caller's record with the given version.
	CreateRecord(ctx context.Context, caller OwnerID, version uint64) (*Record, error)

	// UpdateRecord replaces the metadata of the caller's own record.
	UpdateRecord(ctx context.Context, caller OwnerID, payload MetadataInput) error

	// UpdateRecordOf replaces the metadata of owner's record on behalf of caller.
	// Only succeeds when caller is owner.
	UpdateRecordOf(ctx context.Context, caller OwnerID, owner OwnerID, payload MetadataInput) error

	// GetRecord returns owner's record.
	GetRecord(ctx context.Context, owner OwnerID) (*Record, error)

	// DeriveAddress returns the record address and bump for owner.
	DeriveAddress(owner OwnerID) (RecordAddress, uint8, error)
}
