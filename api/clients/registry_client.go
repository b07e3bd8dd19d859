package clients

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// RequestError is returned for non-2xx responses. It unwraps to the
// matching interfaces sentinel when the server reported a registry error kind.
type RequestError struct {
	StatusCode int
	Kind       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("registry returned %d: %s", e.StatusCode, e.Kind)
}

func (e *RequestError) Unwrap() error {
	return interfaces.ErrorFromKind(e.Kind)
}

// RegistryClient implements api.RegistryProvider over HTTP. Mutating calls
// are signed with Key, whose address is the caller identity.
type RegistryClient struct {
	// ServerAddr is the base URL of the registry server
	ServerAddr string

	// Key signs mutating requests. Read-only calls work without it.
	Key *ecdsa.PrivateKey

	// APIKey is sent in the X-Api-Key header when set
	APIKey string

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client

	// Now defaults to time.Now and sets the signed request timestamp
	Now func() time.Time
}

// NewRegistryClient creates a client for the registry at serverAddr.
func NewRegistryClient(serverAddr string, key *ecdsa.PrivateKey) *RegistryClient {
	return &RegistryClient{
		ServerAddr: serverAddr,
		Key:        key,
	}
}

// Owner returns the identity the client signs as.
func (c *RegistryClient) Owner() (interfaces.OwnerID, error) {
	if c.Key == nil {
		return interfaces.OwnerID{}, errors.New("no signing key configured")
	}
	return api.OwnerFromKey(c.Key), nil
}

// DeriveAddress asks the server for owner's record address.
func (c *RegistryClient) DeriveAddress(owner interfaces.OwnerID) (*api.AddressResponse, error) {
	var resp api.AddressResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/api/records/%s/address", owner.String()), nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateRecord creates the signer's record with the given version.
func (c *RegistryClient) CreateRecord(version uint64) (*api.AddressResponse, error) {
	req := api.CreateRecordRequest{Version: json.Number(strconv.FormatUint(version, 10))}

	var resp api.AddressResponse
	if err := c.do(http.MethodPost, "/api/records", req, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateMetadata replaces the metadata of the signer's record.
func (c *RegistryClient) UpdateMetadata(uri string, checksum interfaces.Checksum) error {
	req := api.UpdateMetadataRequest{URI: uri, Checksum: hexutil.Encode(checksum[:])}
	return c.do(http.MethodPut, "/api/records/metadata", req, true, nil)
}

// UpdateMetadataOf replaces the metadata of owner's record.
func (c *RegistryClient) UpdateMetadataOf(owner interfaces.OwnerID, uri string, checksum interfaces.Checksum) error {
	req := api.UpdateMetadataRequest{URI: uri, Checksum: hexutil.Encode(checksum[:])}
	return c.do(http.MethodPut, fmt.Sprintf("/api/records/%s/metadata", owner.String()), req, true, nil)
}

// GetRecord fetches owner's record.
func (c *RegistryClient) GetRecord(owner interfaces.OwnerID) (*api.RecordResponse, error) {
	var resp api.RecordResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/api/records/%s", owner.String()), nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *RegistryClient) do(method, path string, body any, sign bool, out any) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.ServerAddr+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("could not initialize request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set(api.APIKeyHeader, c.APIKey)
	}

	if sign {
		if c.Key == nil {
			return errors.New("no signing key configured")
		}
		now := time.Now
		if c.Now != nil {
			now = c.Now
		}
		headers, err := api.SignRequest(c.Key, method, req.URL.Path, now().Unix(), uuid.NewString(), raw)
		if err != nil {
			return err
		}
		headers.Apply(req.Header)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.Error == "" {
			return &RequestError{StatusCode: resp.StatusCode, Kind: http.StatusText(resp.StatusCode)}
		}
		return &RequestError{StatusCode: resp.StatusCode, Kind: errResp.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

// MockRegistryProvider implements a mock api.RegistryProvider for testing.
type MockRegistryProvider struct {
	mock.Mock
}

func (m *MockRegistryProvider) DeriveAddress(owner interfaces.OwnerID) (*api.AddressResponse, error) {
	args := m.Called(owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AddressResponse), args.Error(1)
}

func (m *MockRegistryProvider) CreateRecord(version uint64) (*api.AddressResponse, error) {
	args := m.Called(version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.AddressResponse), args.Error(1)
}

func (m *MockRegistryProvider) UpdateMetadata(uri string, checksum interfaces.Checksum) error {
	args := m.Called(uri, checksum)
	return args.Error(0)
}

func (m *MockRegistryProvider) UpdateMetadataOf(owner interfaces.OwnerID, uri string, checksum interfaces.Checksum) error {
	args := m.Called(owner, uri, checksum)
	return args.Error(0)
}

func (m *MockRegistryProvider) GetRecord(owner interfaces.OwnerID) (*api.RecordResponse, error) {
	args := m.Called(owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.RecordResponse), args.Error(1)
}
