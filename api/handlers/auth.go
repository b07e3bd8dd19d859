package handlers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/interfaces"
)

type callerKey struct{}

// CallerFromContext returns the authenticated caller stored by Authenticate.
func CallerFromContext(ctx context.Context) interfaces.OwnerID {
	caller, _ := ctx.Value(callerKey{}).(interfaces.OwnerID)
	return caller
}

// WithCaller returns a context carrying caller as the authenticated identity.
func WithCaller(ctx context.Context, caller interfaces.OwnerID) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Authenticate verifies the request signature headers, rejects reused
// nonces and stores the signer in the request context. The body is buffered
// so the next handler can read it again.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
		if err != nil {
			h.log.Debug("Could not read request body", "err", err)
			writeErrorKind(w, api.KindInvalidRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		headers := api.SignedHeadersFrom(r.Header)
		now := h.now()

		caller, err := api.RecoverCaller(r.Method, r.URL.Path, headers, body, now)
		if err == nil {
			err = h.replays.check(caller, headers.Nonce, now)
		}
		if err != nil {
			h.log.Debug("Request authentication failed", "err", err, "path", r.URL.Path)
			writeErrorKind(w, api.KindUnauthenticated)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireAPIKey rejects requests that do not carry apiKey in the X-Api-Key
// header. An empty apiKey disables the check.
func RequireAPIKey(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(api.APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
