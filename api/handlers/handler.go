package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/interfaces"
)

// maxBodySize bounds request bodies. The largest valid body is an update
// with a URILimit-byte URI.
const maxBodySize = 16 << 10

// Handler serves the record API on top of a RecordRegistry.
type Handler struct {
	registry interfaces.RecordRegistry
	apiKey   string
	log      *slog.Logger
	replays  *replayGuard

	now func() time.Time
}

// NewHandler creates a handler for registry. When apiKey is not empty every
// /api request must present it.
func NewHandler(registry interfaces.RecordRegistry, apiKey string, log *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		apiKey:   apiKey,
		log:      log,
		replays:  newReplayGuard(),
		now:      time.Now,
	}
}

// RegisterRoutes mounts the record API on r:
//   - GET  /api/records/{owner}
//   - GET  /api/records/{owner}/address
//   - POST /api/records (signed)
//   - PUT  /api/records/metadata (signed)
//   - PUT  /api/records/{owner}/metadata (signed)
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/records", func(r chi.Router) {
		r.Use(RequireAPIKey(h.apiKey))

		r.Get("/{owner}", h.HandleGetRecord)
		r.Get("/{owner}/address", h.HandleDeriveAddress)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Post("/", h.HandleCreateRecord)
			r.Put("/metadata", h.HandleUpdateMetadata)
			r.Put("/{owner}/metadata", h.HandleUpdateMetadataOf)
		})
	})
}

// HandleCreateRecord creates the caller's record.
//
// URL format: POST /api/records
// Body: {"version": n}
//
// Status codes:
//   - 201 Created: {"address", "derivation_proof"}
//   - 400 Bad Request: InvalidVersion, InvalidRequest
//   - 409 Conflict: AlreadyExists
func (h *Handler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	var req api.CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("Malformed create request", "err", err)
		writeErrorKind(w, api.KindInvalidRequest)
		return
	}

	version, err := parseVersion(req.Version)
	if err != nil {
		h.log.Debug("Rejected create request", "caller", caller.String(), "version", req.Version.String(), "err", err)
		h.writeError(w, err)
		return
	}

	rec, err := h.registry.CreateRecord(r.Context(), caller, version)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, api.NewAddressResponse(rec.Address, rec.Bump))
}

// HandleUpdateMetadata replaces the metadata of the caller's record.
//
// URL format: PUT /api/records/metadata
// Body: {"uri", "checksum"}
func (h *Handler) HandleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	payload, ok := h.decodeMetadata(w, r)
	if !ok {
		return
	}

	if err := h.registry.UpdateRecord(r.Context(), caller, payload); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// HandleUpdateMetadataOf replaces the metadata of the record owned by
// {owner}. Requests not signed by the owner get 403 Unauthorized.
//
// URL format: PUT /api/records/{owner}/metadata
func (h *Handler) HandleUpdateMetadataOf(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}

	payload, ok := h.decodeMetadata(w, r)
	if !ok {
		return
	}

	if err := h.registry.UpdateRecordOf(r.Context(), caller, owner, payload); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// HandleGetRecord returns the record owned by {owner}.
//
// URL format: GET /api/records/{owner}
//
// Status codes:
//   - 200 OK: api.RecordResponse
//   - 400 Bad Request: InvalidOwner
//   - 404 Not Found: NotFound
func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}

	rec, err := h.registry.GetRecord(r.Context(), owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewRecordResponse(rec))
}

// HandleDeriveAddress returns the record address of {owner}, whether or not
// the record exists.
//
// URL format: GET /api/records/{owner}/address
func (h *Handler) HandleDeriveAddress(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.parseOwner(w, r)
	if !ok {
		return
	}

	addr, bump, err := h.registry.DeriveAddress(owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewAddressResponse(addr, bump))
}

func (h *Handler) parseOwner(w http.ResponseWriter, r *http.Request) (interfaces.OwnerID, bool) {
	owner, err := interfaces.NewOwnerIDFromHex(chi.URLParam(r, "owner"))
	if err != nil {
		h.log.Debug("Invalid owner", "err", err, "owner", chi.URLParam(r, "owner"))
		writeErrorKind(w, api.KindInvalidOwner)
		return interfaces.OwnerID{}, false
	}
	return owner, true
}

func (h *Handler) decodeMetadata(w http.ResponseWriter, r *http.Request) (interfaces.MetadataInput, bool) {
	var req api.UpdateMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("Malformed update request", "err", err)
		writeErrorKind(w, api.KindInvalidRequest)
		return interfaces.MetadataInput{}, false
	}

	checksum, err := interfaces.NewChecksumFromHex(req.Checksum)
	if err != nil {
		h.log.Debug("Invalid checksum", "err", err)
		writeErrorKind(w, api.KindInvalidRequest)
		return interfaces.MetadataInput{}, false
	}

	return interfaces.MetadataInput{URI: req.URI, Checksum: checksum}, true
}

// parseVersion accepts any JSON integer. Negative and zero values map to
// ErrInvalidVersion, as do values that overflow uint64.
func parseVersion(raw json.Number) (uint64, error) {
	s := raw.String()
	if s == "" {
		return 0, errInvalidRequest
	}

	version, err := strconv.ParseUint(s, 10, 64)
	if err == nil {
		if version == 0 {
			return 0, interfaces.ErrInvalidVersion
		}
		return version, nil
	}

	var numErr *strconv.NumError
	if strings.HasPrefix(s, "-") {
		if _, ierr := strconv.ParseInt(s, 10, 64); ierr == nil || errors.Is(ierr, strconv.ErrRange) {
			return 0, interfaces.ErrInvalidVersion
		}
	} else if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return 0, interfaces.ErrInvalidVersion
	}
	return 0, errInvalidRequest
}
