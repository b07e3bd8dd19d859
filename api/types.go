package api

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/audit-registry/interfaces"
)

// RegistryProvider is the client-side view of the registry HTTP API.
type RegistryProvider interface {
	// DeriveAddress returns the record address and bump of owner.
	DeriveAddress(owner interfaces.OwnerID) (*AddressResponse, error)

	// CreateRecord creates the signer's record.
	CreateRecord(version uint64) (*AddressResponse, error)

	// UpdateMetadata replaces the metadata of the signer's record.
	UpdateMetadata(uri string, checksum interfaces.Checksum) error

	// UpdateMetadataOf replaces the metadata of owner's record. Only the
	// owner's key is accepted.
	UpdateMetadataOf(owner interfaces.OwnerID, uri string, checksum interfaces.Checksum) error

	// GetRecord fetches owner's record.
	GetRecord(owner interfaces.OwnerID) (*RecordResponse, error)
}

// CreateRecordRequest is the body of POST /api/records.
// Version is kept as a raw JSON number so negative and oversized values can
// be told apart from malformed requests.
type CreateRecordRequest struct {
	Version json.Number `json:"version"`
}

// AddressResponse carries a derived record address and its derivation proof.
type AddressResponse struct {
	Address         string `json:"address"`
	DerivationProof uint8  `json:"derivation_proof"`
}

// UpdateMetadataRequest is the body of the metadata update endpoints.
type UpdateMetadataRequest struct {
	URI      string `json:"uri"`
	Checksum string `json:"checksum"`
}

// RecordResponse is the JSON form of a stored record.
type RecordResponse struct {
	Owner            string `json:"owner"`
	Address          string `json:"address"`
	DerivationProof  uint8  `json:"derivation_proof"`
	Version          uint64 `json:"version"`
	MetadataURI      string `json:"metadata_uri"`
	MetadataChecksum string `json:"metadata_checksum"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error kinds produced by the HTTP layer itself, in addition to the ones
// reported by interfaces.ErrorKind.
const (
	KindInvalidOwner    = "InvalidOwner"
	KindInvalidRequest  = "InvalidRequest"
	KindUnauthenticated = "Unauthenticated"
	KindInternal        = "Internal"
)

func NewAddressResponse(addr interfaces.RecordAddress, bump uint8) *AddressResponse {
	return &AddressResponse{
		Address:         hexutil.Encode(addr[:]),
		DerivationProof: bump,
	}
}

func NewRecordResponse(rec *interfaces.Record) *RecordResponse {
	return &RecordResponse{
		Owner:            common.Address(rec.Owner).Hex(),
		Address:          hexutil.Encode(rec.Address[:]),
		DerivationProof:  rec.Bump,
		Version:          rec.Version,
		MetadataURI:      rec.MetadataURI,
		MetadataChecksum: hexutil.Encode(rec.MetadataChecksum[:]),
	}
}

// ToRecord converts the response back into a record, validating every hex field.
func (r *RecordResponse) ToRecord() (*interfaces.Record, error) {
	owner, err := interfaces.NewOwnerIDFromHex(r.Owner)
	if err != nil {
		return nil, err
	}
	addr, err := interfaces.NewRecordAddressFromHex(r.Address)
	if err != nil {
		return nil, err
	}
	sum, err := interfaces.NewChecksumFromHex(r.MetadataChecksum)
	if err != nil {
		return nil, err
	}

	return &interfaces.Record{
		Owner:            owner,
		Address:          addr,
		Bump:             r.DerivationProof,
		Version:          r.Version,
		MetadataURI:      r.MetadataURI,
		MetadataChecksum: sum,
	}, nil
}
