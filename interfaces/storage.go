package interfaces

import (
	"context"
	"fmt"
	"net/url"
)

// StoreLocation represents URI for a record store.
type StoreLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
}

// NewStoreLocation creates a new store location from a URI string with validation.
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "memory", "file", "s3", "vault":
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StoreLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

// RecordStore is the key-value collaborator holding records by address.
// A Put or Create under a key is visible to subsequent Gets for that key.
type RecordStore interface {
	// Get returns the record at addr, or ErrNotFound.
	Get(ctx context.Context, addr RecordAddress) (*Record, error)

	// Create stores rec under rec.Address only if the slot is empty.
	// Returns ErrAlreadyExists otherwise.
	Create(ctx context.Context, rec *Record) error

	// Put overwrites the record stored under rec.Address.
	Put(ctx context.Context, rec *Record) error

	// Available checks if the store is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this store.
	LocationURI() string
}

// RecordStoreFactory creates record stores from location URIs.
type RecordStoreFactory interface {
	// StoreFor creates a store from a location.
	// Supports memory://, file://, s3://, vault://
	StoreFor(location StoreLocation) (RecordStore, error)

	// CreateMultiStore creates a store writing to the first location and
	// mirroring to the rest.
	CreateMultiStore(locations []StoreLocation) (RecordStore, error)
}
