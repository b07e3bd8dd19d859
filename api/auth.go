package api

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/audit-registry/interfaces"
)

const (
	// TimestampHeader carries the unix time, in seconds, the request was signed at.
	TimestampHeader = "X-Registry-Timestamp"

	// NonceHeader carries a value unique per signed request. A server accepts
	// each (signer, nonce) pair once within the clock skew window.
	NonceHeader = "X-Registry-Nonce"

	// SignerHeader carries the hex address the request claims to be signed by.
	SignerHeader = "X-Registry-Signer"

	// SignatureHeader carries the hex encoded 65-byte secp256k1 signature of the request.
	SignatureHeader = "X-Registry-Signature"

	// APIKeyHeader carries the optional shared API key.
	APIKeyHeader = "X-Api-Key"

	// MaxClockSkew bounds the distance between a request timestamp and the server clock.
	MaxClockSkew = 5 * time.Minute

	// MaxNonceLength bounds the nonce header.
	MaxNonceLength = 64

	signingDomain = "audit-registry request"
)

var (
	ErrMissingSignature = errors.New("request signature missing")
	ErrInvalidSignature = errors.New("request signature invalid")
	ErrStaleTimestamp   = errors.New("request timestamp outside allowed skew")
	ErrReplayedRequest  = errors.New("request nonce already used")
)

// SignedHeaders are the authentication headers of a signed request, as
// transmitted.
type SignedHeaders struct {
	Timestamp string
	Nonce     string
	Signer    string
	Signature string
}

// SignedHeadersFrom reads the authentication headers from h.
func SignedHeadersFrom(h http.Header) SignedHeaders {
	return SignedHeaders{
		Timestamp: h.Get(TimestampHeader),
		Nonce:     h.Get(NonceHeader),
		Signer:    h.Get(SignerHeader),
		Signature: h.Get(SignatureHeader),
	}
}

// Apply sets the authentication headers on h.
func (s SignedHeaders) Apply(h http.Header) {
	h.Set(TimestampHeader, s.Timestamp)
	h.Set(NonceHeader, s.Nonce)
	h.Set(SignerHeader, s.Signer)
	h.Set(SignatureHeader, s.Signature)
}

// SigningHash returns the digest a caller signs to authenticate a request.
func SigningHash(method, path string, timestamp int64, nonce string, signer interfaces.OwnerID, body []byte) []byte {
	return crypto.Keccak256(
		[]byte(signingDomain),
		[]byte(strings.ToUpper(method)), []byte("\n"),
		[]byte(path), []byte("\n"),
		[]byte(strconv.FormatInt(timestamp, 10)), []byte("\n"),
		[]byte(nonce), []byte("\n"),
		signer.Bytes(),
		body,
	)
}

// SignRequest signs the request with key and returns the headers to send with it.
func SignRequest(key *ecdsa.PrivateKey, method, path string, timestamp int64, nonce string, body []byte) (SignedHeaders, error) {
	signer := OwnerFromKey(key)
	sig, err := crypto.Sign(SigningHash(method, path, timestamp, nonce, signer, body), key)
	if err != nil {
		return SignedHeaders{}, fmt.Errorf("could not sign request: %w", err)
	}
	return SignedHeaders{
		Timestamp: strconv.FormatInt(timestamp, 10),
		Nonce:     nonce,
		Signer:    "0x" + signer.String(),
		Signature: hexutil.Encode(sig),
	}, nil
}

// OwnerFromKey returns the owner identity controlled by key.
func OwnerFromKey(key *ecdsa.PrivateKey) interfaces.OwnerID {
	return interfaces.OwnerID(crypto.PubkeyToAddress(key.PublicKey))
}

// RecoverCaller authenticates a signed request and returns the identity that
// signed it. The key recovered from the signature must match the claimed
// signer, otherwise the request was altered or signed by someone else.
func RecoverCaller(method, path string, headers SignedHeaders, body []byte, now time.Time) (interfaces.OwnerID, error) {
	if headers.Timestamp == "" || headers.Nonce == "" || headers.Signer == "" || headers.Signature == "" {
		return interfaces.OwnerID{}, ErrMissingSignature
	}

	timestamp, err := strconv.ParseInt(headers.Timestamp, 10, 64)
	if err != nil {
		return interfaces.OwnerID{}, fmt.Errorf("%w: malformed timestamp", ErrStaleTimestamp)
	}
	skew := now.Sub(time.Unix(timestamp, 0))
	if skew > MaxClockSkew || skew < -MaxClockSkew {
		return interfaces.OwnerID{}, ErrStaleTimestamp
	}

	if len(headers.Nonce) > MaxNonceLength {
		return interfaces.OwnerID{}, fmt.Errorf("%w: nonce too long", ErrInvalidSignature)
	}

	signer, err := interfaces.NewOwnerIDFromHex(headers.Signer)
	if err != nil {
		return interfaces.OwnerID{}, fmt.Errorf("%w: malformed signer", ErrInvalidSignature)
	}

	signature := headers.Signature
	if !strings.HasPrefix(signature, "0x") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return interfaces.OwnerID{}, ErrInvalidSignature
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubkey, err := crypto.SigToPub(SigningHash(method, path, timestamp, headers.Nonce, signer, body), sig)
	if err != nil {
		return interfaces.OwnerID{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	recovered := interfaces.OwnerID(crypto.PubkeyToAddress(*pubkey))
	if recovered != signer {
		return interfaces.OwnerID{}, fmt.Errorf("%w: signed by %s, claimed %s", ErrInvalidSignature, recovered, signer)
	}
	return signer, nil
}
