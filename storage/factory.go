package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ruteri/audit-registry/interfaces"
)

// StoreFactory creates record stores from location URIs and assembles
// multi-store configurations.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a new factory instance.
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	return &StoreFactory{log: logger}
}

// StoreFor creates a record store from a location.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - memory:// - In-process store, lost on restart
//   - file:///var/lib/audit-registry - Local filesystem store
//   - s3://[key:secret@]bucket/prefix?region=us-east-1&endpoint=http://minio:9000
//   - vault://[token@]vault.example.com:8200/secret/audit-registry?tls=false
func (sf *StoreFactory) StoreFor(location interfaces.StoreLocation) (interfaces.RecordStore, error) {
	switch strings.ToLower(location.Scheme) {
	case "memory":
		return NewMemoryStore(sf.log), nil
	case "file":
		return sf.createFileStore(location)
	case "s3":
		return sf.createS3Store(location)
	case "vault":
		return sf.createVaultStore(location)
	default:
		return nil, fmt.Errorf("%w: unsupported store scheme %q", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiStore creates a multi-store from a list of locations.
// The first location is the primary; a failure to create it is fatal,
// failures to create mirrors are logged and skipped.
func (sf *StoreFactory) CreateMultiStore(locations []interfaces.StoreLocation) (interfaces.RecordStore, error) {
	if len(locations) == 0 {
		return nil, errors.New("no store locations configured")
	}

	stores := make([]interfaces.RecordStore, 0, len(locations))
	for i, location := range locations {
		store, err := sf.StoreFor(location)
		if err != nil {
			if i == 0 {
				return nil, fmt.Errorf("failed to create primary store %s: %w", location, err)
			}
			sf.log.Warn("Failed to create mirror store",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 1 {
		return stores[0], nil
	}
	return NewMultiStore(stores, sf.log)
}

func (sf *StoreFactory) createFileStore(location interfaces.StoreLocation) (interfaces.RecordStore, error) {
	// file:///abs/path has an empty host; file://./rel/path keeps "." as host.
	dir := location.Host + location.Path
	if dir == "" {
		return nil, fmt.Errorf("%w: file location requires a path", interfaces.ErrInvalidLocationURI)
	}
	return NewFileStore(dir, sf.log)
}

func (sf *StoreFactory) createS3Store(location interfaces.StoreLocation) (interfaces.RecordStore, error) {
	bucket := location.Host
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 location requires a bucket", interfaces.ErrInvalidLocationURI)
	}

	region := location.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}

	accessKey, secretKey := splitAuth(location.Auth)
	return NewS3Store(bucket, location.Path, region, location.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

func (sf *StoreFactory) createVaultStore(location interfaces.StoreLocation) (interfaces.RecordStore, error) {
	if location.Host == "" {
		return nil, fmt.Errorf("%w: vault location requires a host", interfaces.ErrInvalidLocationURI)
	}

	parts := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: vault location requires a mount path", interfaces.ErrInvalidLocationURI)
	}
	mountPath := parts[0]
	dataPath := ""
	if len(parts) == 2 {
		dataPath = parts[1]
	}

	scheme := "https"
	if location.Query.Has("tls") && !location.GetParamBool("tls") {
		scheme = "http"
	}

	token, _ := splitAuth(location.Auth)
	return NewVaultStore(fmt.Sprintf("%s://%s", scheme, location.Host), token, mountPath, dataPath, sf.log)
}

func splitAuth(auth string) (string, string) {
	if auth == "" {
		return "", ""
	}
	user, pass, _ := strings.Cut(auth, ":")
	user, _ = url.PathUnescape(user)
	pass, _ = url.PathUnescape(pass)
	return user, pass
}
