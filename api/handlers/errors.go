package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/interfaces"
)

var errInvalidRequest = errors.New("invalid request")

var kindStatus = map[string]int{
	"InvalidVersion":        http.StatusBadRequest,
	"UriTooLong":            http.StatusBadRequest,
	"AlreadyExists":         http.StatusConflict,
	"NotFound":              http.StatusNotFound,
	"Unauthorized":          http.StatusForbidden,
	"AddressBindingInvalid": http.StatusInternalServerError,
	"CorruptRecord":         http.StatusInternalServerError,
	"BackendUnavailable":    http.StatusServiceUnavailable,
	api.KindInvalidOwner:    http.StatusBadRequest,
	api.KindInvalidRequest:  http.StatusBadRequest,
	api.KindUnauthenticated: http.StatusUnauthorized,
	api.KindInternal:        http.StatusInternalServerError,
}

// StatusForKind returns the HTTP status used for an error kind.
func StatusForKind(kind string) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := interfaces.ErrorKind(err)
	if errors.Is(err, errInvalidRequest) {
		kind = api.KindInvalidRequest
	}

	status := StatusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "kind", kind, "err", err)
	}
	writeErrorKind(w, kind)
}

func writeErrorKind(w http.ResponseWriter, kind string) {
	writeJSON(w, StatusForKind(kind), api.ErrorResponse{Error: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
