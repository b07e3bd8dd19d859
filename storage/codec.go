package storage

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ruteri/audit-registry/interfaces"
)

// Record layout:
//
//	discriminator [8] | owner [20] | version u64 LE | bump u8 | uri_len u32 LE | uri | checksum [32]
const (
	discriminatorSize = 8
	ownerOffset       = discriminatorSize
	versionOffset     = ownerOffset + 20
	bumpOffset        = versionOffset + 8
	uriLenOffset      = bumpOffset + 1
	uriOffset         = uriLenOffset + 4

	// MinRecordSize is the size of an encoded record with an empty URI, minus the checksum.
	MinRecordSize = uriOffset

	// MaxRecordSize is the size of an encoded record with a URI at the limit.
	MaxRecordSize = uriOffset + interfaces.URILimit + 32
)

var recordDiscriminator = func() [discriminatorSize]byte {
	var d [discriminatorSize]byte
	h := sha256.Sum256([]byte("account:Registry"))
	copy(d[:], h[:discriminatorSize])
	return d
}()

// EncodeRecord serializes a record into its storage layout.
// The address is not encoded; it is the key the bytes are stored under.
func EncodeRecord(rec *interfaces.Record) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, uriOffset+len(rec.MetadataURI)+32)
	copy(buf[:discriminatorSize], recordDiscriminator[:])
	copy(buf[ownerOffset:versionOffset], rec.Owner[:])
	binary.LittleEndian.PutUint64(buf[versionOffset:bumpOffset], rec.Version)
	buf[bumpOffset] = rec.Bump
	binary.LittleEndian.PutUint32(buf[uriLenOffset:uriOffset], uint32(len(rec.MetadataURI)))
	copy(buf[uriOffset:], rec.MetadataURI)
	copy(buf[uriOffset+len(rec.MetadataURI):], rec.MetadataChecksum[:])
	return buf, nil
}

// DecodeRecord parses bytes stored under addr back into a record.
// Any layout violation is reported as interfaces.ErrCorruptRecord.
func DecodeRecord(addr interfaces.RecordAddress, data []byte) (*interfaces.Record, error) {
	if len(data) < MinRecordSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", interfaces.ErrCorruptRecord, len(data), MinRecordSize)
	}

	if [discriminatorSize]byte(data[:discriminatorSize]) != recordDiscriminator {
		return nil, fmt.Errorf("%w: discriminator mismatch %x", interfaces.ErrCorruptRecord, data[:discriminatorSize])
	}

	uriLen := binary.LittleEndian.Uint32(data[uriLenOffset:uriOffset])
	if uriLen > interfaces.URILimit {
		return nil, fmt.Errorf("%w: uri length %d exceeds %d", interfaces.ErrCorruptRecord, uriLen, interfaces.URILimit)
	}

	checksumOffset := uriOffset + int(uriLen)
	if len(data) < checksumOffset+32 {
		return nil, fmt.Errorf("%w: %d bytes, need %d for uri and checksum", interfaces.ErrCorruptRecord, len(data), checksumOffset+32)
	}

	rec := &interfaces.Record{
		Address:     addr,
		Version:     binary.LittleEndian.Uint64(data[versionOffset:bumpOffset]),
		Bump:        data[bumpOffset],
		MetadataURI: string(data[uriOffset:checksumOffset]),
	}
	copy(rec.Owner[:], data[ownerOffset:versionOffset])
	copy(rec.MetadataChecksum[:], data[checksumOffset:checksumOffset+32])

	if rec.Version == 0 {
		return nil, fmt.Errorf("%w: zero version", interfaces.ErrCorruptRecord)
	}

	return rec, nil
}
