package clients

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/audit-registry/addressing"
	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/api/handlers"
	"github.com/ruteri/audit-registry/interfaces"
	"github.com/ruteri/audit-registry/registry"
	"github.com/ruteri/audit-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := registry.NewService(storage.NewMemoryStore(logger), addressing.NewRecordDeriver(), logger)

	mux := chi.NewRouter()
	handlers.NewHandler(svc, apiKey, logger).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRegistryClient_RoundTrip(t *testing.T) {
	srv := newTestServer(t, "")

	keyA, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyB, err := crypto.GenerateKey()
	require.NoError(t, err)

	clientA := NewRegistryClient(srv.URL, keyA)
	clientB := NewRegistryClient(srv.URL, keyB)

	ownerA, err := clientA.Owner()
	require.NoError(t, err)

	_, err = clientA.GetRecord(ownerA)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = clientA.CreateRecord(0)
	assert.ErrorIs(t, err, interfaces.ErrInvalidVersion)

	created, err := clientA.CreateRecord(3)
	require.NoError(t, err)

	derived, err := clientB.DeriveAddress(ownerA)
	require.NoError(t, err)
	assert.Equal(t, created, derived)

	_, err = clientA.CreateRecord(4)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)

	sum := interfaces.Checksum{0x42}
	require.NoError(t, clientA.UpdateMetadata("ipfs://bafy", sum))

	err = clientB.UpdateMetadataOf(ownerA, "ipfs://evil", interfaces.Checksum{})
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusForbidden, reqErr.StatusCode)

	err = clientA.UpdateMetadataOf(ownerA, strings.Repeat("u", interfaces.URILimit+1), sum)
	assert.ErrorIs(t, err, interfaces.ErrURITooLong)

	resp, err := clientB.GetRecord(ownerA)
	require.NoError(t, err)
	rec, err := resp.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, ownerA, rec.Owner)
	assert.Equal(t, uint64(3), rec.Version)
	assert.Equal(t, "ipfs://bafy", rec.MetadataURI)
	assert.Equal(t, sum, rec.MetadataChecksum)
}

func TestRegistryClient_APIKey(t *testing.T) {
	srv := newTestServer(t, "secret")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	client := NewRegistryClient(srv.URL, key)

	_, err = client.CreateRecord(1)
	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusUnauthorized, reqErr.StatusCode)

	client.APIKey = "secret"
	_, err = client.CreateRecord(1)
	assert.NoError(t, err)
}

func TestRegistryClient_RequiresKeyForWrites(t *testing.T) {
	client := NewRegistryClient("http://127.0.0.1:1", nil)

	_, err := client.Owner()
	assert.Error(t, err)

	err = client.UpdateMetadata("ipfs://x", interfaces.Checksum{})
	assert.EqualError(t, err, "no signing key configured")
}

var _ api.RegistryProvider = (*RegistryClient)(nil)
var _ api.RegistryProvider = (*MockRegistryProvider)(nil)

func TestRegistryClient_SignsWithFreshNonce(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := registry.NewService(storage.NewMemoryStore(logger), addressing.NewRecordDeriver(), logger)
	mux := chi.NewRouter()
	handlers.NewHandler(svc, "", logger).RegisterRoutes(mux)

	var seen []api.SignedHeaders
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, api.SignedHeadersFrom(r.Header))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	client := NewRegistryClient(srv.URL, key)
	fixed := time.Now().Truncate(time.Second)
	client.Now = func() time.Time { return fixed }

	_, err = client.CreateRecord(1)
	require.NoError(t, err)

	sum := interfaces.Checksum{0x01}
	require.NoError(t, client.UpdateMetadata("ipfs://same", sum))
	require.NoError(t, client.UpdateMetadata("ipfs://same", sum))

	require.Len(t, seen, 3)
	assert.Equal(t, "0x"+api.OwnerFromKey(key).String(), seen[1].Signer)
	assert.Equal(t, seen[1].Timestamp, seen[2].Timestamp)
	assert.NotEqual(t, seen[1].Nonce, seen[2].Nonce)
}
