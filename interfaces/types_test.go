package interfaces

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOwnerIDFromHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"},
		{name: "prefixed mixed case", input: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{name: "too short", input: "0x1234", wantErr: true},
		{name: "not hex", input: strings.Repeat("zz", 20), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, err := NewOwnerIDFromHex(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", owner.String())
		})
	}
}

func TestRecordValidate(t *testing.T) {
	rec := &Record{Version: 1, MetadataURI: strings.Repeat("u", URILimit)}
	assert.NoError(t, rec.Validate())

	rec.MetadataURI += "u"
	assert.ErrorIs(t, rec.Validate(), ErrURITooLong)

	rec = &Record{}
	assert.ErrorIs(t, rec.Validate(), ErrInvalidVersion)
}

func TestRecordClone(t *testing.T) {
	rec := &Record{Version: 1, MetadataChecksum: Checksum{1}}
	clone := rec.Clone()
	clone.MetadataChecksum[0] = 2
	assert.Equal(t, byte(1), rec.MetadataChecksum[0])

	var nilRec *Record
	assert.Nil(t, nilRec.Clone())
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{ErrInvalidVersion, "InvalidVersion"},
		{ErrAlreadyExists, "AlreadyExists"},
		{ErrNotFound, "NotFound"},
		{ErrUnauthorized, "Unauthorized"},
		{ErrURITooLong, "UriTooLong"},
		{fmt.Errorf("record x: %w", ErrAddressBindingInvalid), "AddressBindingInvalid"},
		{errors.Join(errors.New("a"), ErrBackendUnavailable), "BackendUnavailable"},
		{errors.New("other"), "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
		})
	}

	assert.Equal(t, ErrUnauthorized, ErrorFromKind("Unauthorized"))
	assert.Nil(t, ErrorFromKind("Internal"))
}

func TestNewStoreLocation(t *testing.T) {
	loc, err := NewStoreLocation("s3://key:secret@bucket/prefix?region=eu-west-1&tls=yes")
	require.NoError(t, err)
	assert.Equal(t, "s3", loc.Scheme)
	assert.Equal(t, "bucket", loc.Host)
	assert.Equal(t, "/prefix", loc.Path)
	assert.Equal(t, "key:secret", loc.Auth)
	assert.Equal(t, "eu-west-1", loc.GetParam("region"))
	assert.True(t, loc.GetParamBool("tls"))

	_, err = NewStoreLocation("ipfs://host")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)
}
