package interfaces

import "errors"

var (
	// ErrInvalidVersion is returned when a record is created with version zero.
	ErrInvalidVersion = errors.New("version must be greater than zero")

	// ErrAlreadyExists is returned when a record already resides at the derived address.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNotFound is returned when no record resides at the derived address.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned when the caller is not the record's owner.
	ErrUnauthorized = errors.New("caller is not the record authority")

	// ErrURITooLong is returned when a metadata URI exceeds URILimit.
	ErrURITooLong = errors.New("metadata URI exceeds limit")

	// ErrAddressBindingInvalid is returned when a stored derivation proof does not
	// reproduce the record's address. It signals corruption or a substituted slot.
	ErrAddressBindingInvalid = errors.New("record address binding invalid")

	// ErrCorruptRecord is returned when stored bytes cannot be decoded into a record.
	ErrCorruptRecord = errors.New("corrupt record encoding")

	// ErrBackendUnavailable is returned when a record store is not accessible.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a store location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrInvalidVersion, "InvalidVersion"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrNotFound, "NotFound"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrURITooLong, "UriTooLong"},
	{ErrAddressBindingInvalid, "AddressBindingInvalid"},
	{ErrCorruptRecord, "CorruptRecord"},
	{ErrBackendUnavailable, "BackendUnavailable"},
}

// ErrorKind returns the taxonomy name reported to callers for err,
// or "Internal" if err is not one of the registry errors.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}

// ErrorFromKind returns the sentinel error for a taxonomy name produced by
// ErrorKind, or nil if the kind is unknown.
func ErrorFromKind(kind string) error {
	for _, k := range errorKinds {
		if k.kind == kind {
			return k.err
		}
	}
	return nil
}
