package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/audit-registry/interfaces"
)

// VaultStore implements a record store on a HashiCorp Vault KV v2 mount.
// Create uses check-and-set with cas=0, which Vault only accepts when the key
// has no live version, giving a server-side create-if-absent.
type VaultStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a new Vault record store authenticated with token.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token with read/write access to the data path
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "audit-registry")
//   - log: Structured logger for operational insights
func NewVaultStore(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Get reads the record at addr from the KV v2 data endpoint.
func (s *VaultStore) Get(ctx context.Context, addr interfaces.RecordAddress) (*interfaces.Record, error) {
	path := s.recordPath(addr)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrNotFound
	}

	// Deleted versions come back with nil data.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, interfaces.ErrNotFound
	}

	encoded, ok := data["record"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: record key missing in Vault data", interfaces.ErrCorruptRecord)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrCorruptRecord, err)
	}

	return DecodeRecord(addr, raw)
}

// Create writes the record with cas=0.
func (s *VaultStore) Create(ctx context.Context, rec *interfaces.Record) error {
	err := s.write(ctx, rec, map[string]interface{}{"cas": 0})
	if isCASMismatch(err) {
		return interfaces.ErrAlreadyExists
	}
	return err
}

// Put writes a new version of the record.
func (s *VaultStore) Put(ctx context.Context, rec *interfaces.Record) error {
	return s.write(ctx, rec, nil)
}

func (s *VaultStore) write(ctx context.Context, rec *interfaces.Record, options map[string]interface{}) error {
	raw, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	path := s.recordPath(rec.Address)
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"record": base64.StdEncoding.EncodeToString(raw),
		},
	}
	if options != nil {
		payload["options"] = options
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, path, payload); err != nil {
		if isCASMismatch(err) {
			return err
		}
		s.log.Error("Failed to write to Vault", slog.String("path", path), "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	s.log.Debug("Stored record in Vault", slog.String("path", path))
	return nil
}

// Available checks if Vault is initialized and unsealed.
func (s *VaultStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}
	return true
}

// Name returns a unique identifier for this store.
func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.dataPath)
}

// LocationURI returns the URI that identifies this store.
func (s *VaultStore) LocationURI() string {
	return s.locationURI
}

func (s *VaultStore) recordPath(addr interfaces.RecordAddress) string {
	if s.dataPath == "" {
		return fmt.Sprintf("%s/data/records/%s", s.mountPath, addr.String())
	}
	return fmt.Sprintf("%s/data/%s/records/%s", s.mountPath, s.dataPath, addr.String())
}

func isCASMismatch(err error) bool {
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusBadRequest {
		return false
	}
	for _, e := range respErr.Errors {
		if strings.Contains(e, "check-and-set") {
			return true
		}
	}
	return false
}
