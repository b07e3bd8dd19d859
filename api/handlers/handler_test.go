package handlers

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ruteri/audit-registry/addressing"
	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/interfaces"
	"github.com/ruteri/audit-registry/registry"
	"github.com/ruteri/audit-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter wires a handler backed by an in-memory registry.
func setupTestRouter(t *testing.T, apiKey string) (*chi.Mux, *registry.Service) {
	t.Helper()
	logger := testLogger()
	svc := registry.NewService(storage.NewMemoryStore(logger), addressing.NewRecordDeriver(), logger)

	handler := NewHandler(svc, apiKey, logger)
	handler.now = func() time.Time { return testNow }

	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)
	return mux, svc
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func signedRequest(t *testing.T, key *ecdsa.PrivateKey, method, path string, body any) *http.Request {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	signRequest(t, req, key, method, path, testNow.Unix(), raw)
	return req
}

// signRequest sets fresh authentication headers on req.
func signRequest(t *testing.T, req *http.Request, key *ecdsa.PrivateKey, method, path string, ts int64, raw []byte) {
	t.Helper()
	headers, err := api.SignRequest(key, method, path, ts, uuid.NewString(), raw)
	require.NoError(t, err)
	headers.Apply(req.Header)
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func ownerHex(key *ecdsa.PrivateKey) string {
	return api.OwnerFromKey(key).String()
}

func TestHandleCreateRecord(t *testing.T) {
	mux, svc := setupTestRouter(t, "")
	key := newKey(t)

	w := serve(mux, signedRequest(t, key, http.MethodPost, "/api/records", map[string]any{"version": 5}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp api.AddressResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	addr, bump, err := svc.DeriveAddress(api.OwnerFromKey(key))
	require.NoError(t, err)
	assert.Equal(t, "0x"+addr.String(), resp.Address)
	assert.Equal(t, bump, resp.DerivationProof)

	w = serve(mux, signedRequest(t, key, http.MethodPost, "/api/records", map[string]any{"version": 6}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "AlreadyExists", errorKind(t, w))
}

func TestHandleCreateRecord_InvalidVersion(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedCode int
		expectedKind string
	}{
		{name: "zero", body: `{"version":0}`, expectedCode: http.StatusBadRequest, expectedKind: "InvalidVersion"},
		{name: "negative", body: `{"version":-3}`, expectedCode: http.StatusBadRequest, expectedKind: "InvalidVersion"},
		{name: "overflow", body: `{"version":18446744073709551616}`, expectedCode: http.StatusBadRequest, expectedKind: "InvalidVersion"},
		{name: "fraction", body: `{"version":1.5}`, expectedCode: http.StatusBadRequest, expectedKind: api.KindInvalidRequest},
		{name: "missing", body: `{}`, expectedCode: http.StatusBadRequest, expectedKind: api.KindInvalidRequest},
		{name: "malformed", body: `{"version":`, expectedCode: http.StatusBadRequest, expectedKind: api.KindInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, svc := setupTestRouter(t, "")
			key := newKey(t)

			req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader(tt.body))
			signRequest(t, req, key, http.MethodPost, "/api/records", testNow.Unix(), []byte(tt.body))

			w := serve(mux, req)
			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedKind, errorKind(t, w))

			_, err := svc.GetRecord(req.Context(), api.OwnerFromKey(key))
			assert.ErrorIs(t, err, interfaces.ErrNotFound)
		})
	}
}

func TestHandleUpdateMetadata(t *testing.T) {
	mux, _ := setupTestRouter(t, "")
	keyA := newKey(t)
	keyB := newKey(t)
	checksum := strings.Repeat("ab", 32)

	// Missing record.
	w := serve(mux, signedRequest(t, keyA, http.MethodPut, "/api/records/metadata", api.UpdateMetadataRequest{URI: "ipfs://x", Checksum: checksum}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", errorKind(t, w))

	w = serve(mux, signedRequest(t, keyA, http.MethodPost, "/api/records", map[string]any{"version": 1}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(mux, signedRequest(t, keyA, http.MethodPut, "/api/records/metadata", api.UpdateMetadataRequest{URI: "ipfs://x", Checksum: checksum}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{}`, w.Body.String())

	// B names A's record.
	path := fmt.Sprintf("/api/records/%s/metadata", ownerHex(keyA))
	w = serve(mux, signedRequest(t, keyB, http.MethodPut, path, api.UpdateMetadataRequest{URI: "ipfs://evil", Checksum: checksum}))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Unauthorized", errorKind(t, w))

	// A may use the owner-addressed form too.
	w = serve(mux, signedRequest(t, keyA, http.MethodPut, path, api.UpdateMetadataRequest{URI: strings.Repeat("u", interfaces.URILimit), Checksum: checksum}))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(mux, signedRequest(t, keyA, http.MethodPut, path, api.UpdateMetadataRequest{URI: strings.Repeat("u", interfaces.URILimit+1), Checksum: checksum}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UriTooLong", errorKind(t, w))

	w = serve(mux, httptest.NewRequest(http.MethodGet, "/api/records/"+ownerHex(keyA), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var rec api.RecordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, strings.Repeat("u", interfaces.URILimit), rec.MetadataURI)
	assert.Equal(t, "0x"+checksum, rec.MetadataChecksum)
	assert.Equal(t, uint64(1), rec.Version)
}

func TestHandleUpdateMetadata_InvalidInput(t *testing.T) {
	mux, _ := setupTestRouter(t, "")
	key := newKey(t)

	w := serve(mux, signedRequest(t, key, http.MethodPut, "/api/records/metadata", api.UpdateMetadataRequest{URI: "ipfs://x", Checksum: "nothex"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.KindInvalidRequest, errorKind(t, w))

	w = serve(mux, signedRequest(t, key, http.MethodPut, "/api/records/0x1234/metadata", api.UpdateMetadataRequest{URI: "ipfs://x", Checksum: strings.Repeat("00", 32)}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.KindInvalidOwner, errorKind(t, w))
}

func TestHandleGetRecord(t *testing.T) {
	mux, _ := setupTestRouter(t, "")
	key := newKey(t)

	w := serve(mux, httptest.NewRequest(http.MethodGet, "/api/records/"+ownerHex(key), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", errorKind(t, w))

	w = serve(mux, httptest.NewRequest(http.MethodGet, "/api/records/not-an-owner", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, api.KindInvalidOwner, errorKind(t, w))

	w = serve(mux, signedRequest(t, key, http.MethodPost, "/api/records", map[string]any{"version": 9}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(mux, httptest.NewRequest(http.MethodGet, "/api/records/0x"+ownerHex(key), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.RecordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	rec, err := resp.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, api.OwnerFromKey(key), rec.Owner)
	assert.Equal(t, uint64(9), rec.Version)
	assert.Empty(t, rec.MetadataURI)
}

func TestHandleDeriveAddress(t *testing.T) {
	mux, svc := setupTestRouter(t, "")
	key := newKey(t)

	w := serve(mux, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/records/%s/address", ownerHex(key)), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.AddressResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	addr, bump, err := svc.DeriveAddress(api.OwnerFromKey(key))
	require.NoError(t, err)
	assert.Equal(t, "0x"+addr.String(), resp.Address)
	assert.Equal(t, bump, resp.DerivationProof)
}

func TestAuthenticate(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	body := []byte(`{"version":1}`)

	tests := []struct {
		name   string
		mutate func(t *testing.T, req *http.Request)
	}{
		{
			name: "missing headers",
			mutate: func(t *testing.T, req *http.Request) {
				req.Header.Del(api.SignatureHeader)
				req.Header.Del(api.TimestampHeader)
			},
		},
		{
			name: "missing signer",
			mutate: func(t *testing.T, req *http.Request) {
				req.Header.Del(api.SignerHeader)
			},
		},
		{
			name: "missing nonce",
			mutate: func(t *testing.T, req *http.Request) {
				req.Header.Del(api.NonceHeader)
			},
		},
		{
			name: "stale timestamp",
			mutate: func(t *testing.T, req *http.Request) {
				signRequest(t, req, key, http.MethodPost, "/api/records", testNow.Add(-api.MaxClockSkew-time.Second).Unix(), body)
			},
		},
		{
			name: "signature over different path",
			mutate: func(t *testing.T, req *http.Request) {
				signRequest(t, req, key, http.MethodPost, "/api/other", testNow.Unix(), body)
			},
		},
		{
			name: "signature over different body",
			mutate: func(t *testing.T, req *http.Request) {
				signRequest(t, req, key, http.MethodPost, "/api/records", testNow.Unix(), []byte(`{"version":2}`))
			},
		},
		{
			name: "signer claims another identity",
			mutate: func(t *testing.T, req *http.Request) {
				req.Header.Set(api.SignerHeader, "0x"+ownerHex(other))
			},
		},
		{
			name: "changed nonce",
			mutate: func(t *testing.T, req *http.Request) {
				req.Header.Set(api.NonceHeader, "another-nonce")
			},
		},
		{
			name: "garbage signature",
			mutate: func(t *testing.T, req *http.Request) {
				req.Header.Set(api.SignatureHeader, "0x1234")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux, svc := setupTestRouter(t, "")

			req := httptest.NewRequest(http.MethodPost, "/api/records", bytes.NewReader(body))
			signRequest(t, req, key, http.MethodPost, "/api/records", testNow.Unix(), body)
			tt.mutate(t, req)

			w := serve(mux, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, api.KindUnauthenticated, errorKind(t, w))

			for _, k := range []*ecdsa.PrivateKey{key, other} {
				_, err := svc.GetRecord(req.Context(), api.OwnerFromKey(k))
				assert.ErrorIs(t, err, interfaces.ErrNotFound)
			}
		})
	}
}

func TestAuthenticate_RejectsReplay(t *testing.T) {
	mux, svc := setupTestRouter(t, "")
	key := newKey(t)
	owner := api.OwnerFromKey(key)

	_, err := svc.CreateRecord(context.Background(), owner, 1)
	require.NoError(t, err)

	checksum := strings.Repeat("11", 32)
	update := func(uri string) *http.Request {
		return signedRequest(t, key, http.MethodPut, "/api/records/metadata", api.UpdateMetadataRequest{URI: uri, Checksum: checksum})
	}

	first := update("ipfs://old")
	captured := first.Header.Clone()
	w := serve(mux, first)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(mux, update("ipfs://new"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	raw, err := json.Marshal(api.UpdateMetadataRequest{URI: "ipfs://old", Checksum: checksum})
	require.NoError(t, err)
	replay := httptest.NewRequest(http.MethodPut, "/api/records/metadata", bytes.NewReader(raw))
	replay.Header = captured
	w = serve(mux, replay)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.KindUnauthenticated, errorKind(t, w))

	rec, err := svc.GetRecord(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://new", rec.MetadataURI)
}

func TestReplayGuard(t *testing.T) {
	guard := newReplayGuard()
	owner := api.OwnerFromKey(newKey(t))
	other := api.OwnerFromKey(newKey(t))

	require.NoError(t, guard.check(owner, "n1", testNow))
	assert.ErrorIs(t, guard.check(owner, "n1", testNow.Add(time.Minute)), api.ErrReplayedRequest)
	assert.NoError(t, guard.check(other, "n1", testNow.Add(time.Minute)))
	assert.NoError(t, guard.check(owner, "n2", testNow.Add(time.Minute)))
	assert.Equal(t, 3, guard.size())

	// entries outlive any timestamp that could still pass the skew check
	later := testNow.Add(2*api.MaxClockSkew + 2*time.Minute)
	assert.NoError(t, guard.check(owner, "n3", later))
	assert.Equal(t, 1, guard.size())
	assert.NoError(t, guard.check(owner, "n1", later))
}

func TestRequireAPIKey(t *testing.T) {
	mux, _ := setupTestRouter(t, "secret")
	key := newKey(t)
	path := fmt.Sprintf("/api/records/%s/address", ownerHex(key))

	w := serve(mux, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", errorKind(t, w))

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(api.APIKeyHeader, "wrong")
	w = serve(mux, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(api.APIKeyHeader, "secret")
	w = serve(mux, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	key := newKey(t)
	owner := api.OwnerFromKey(key)

	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedKind string
	}{
		{name: "binding invalid", err: fmt.Errorf("record x: %w", interfaces.ErrAddressBindingInvalid), expectedCode: http.StatusInternalServerError, expectedKind: "AddressBindingInvalid"},
		{name: "backend unavailable", err: interfaces.ErrBackendUnavailable, expectedCode: http.StatusServiceUnavailable, expectedKind: "BackendUnavailable"},
		{name: "corrupt record", err: interfaces.ErrCorruptRecord, expectedCode: http.StatusInternalServerError, expectedKind: "CorruptRecord"},
		{name: "unknown error", err: errors.New("boom"), expectedCode: http.StatusInternalServerError, expectedKind: api.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRegistry := new(registry.MockRegistry)
			mockRegistry.On("GetRecord", mock.Anything, owner).Return(nil, tt.err)

			handler := NewHandler(mockRegistry, "", testLogger())
			mux := chi.NewRouter()
			handler.RegisterRoutes(mux)

			w := serve(mux, httptest.NewRequest(http.MethodGet, "/api/records/"+owner.String(), nil))
			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, tt.expectedKind, errorKind(t, w))
			mockRegistry.AssertExpectations(t)
		})
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion(json.Number("18446744073709551615"))
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), v)

	_, err = parseVersion(json.Number("-0"))
	assert.ErrorIs(t, err, interfaces.ErrInvalidVersion)

	_, err = parseVersion(json.Number("1e3"))
	assert.ErrorIs(t, err, errInvalidRequest)
}
