package dump

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/stratakv/strata/kv"
)

// A dump file is an 8-byte plain header followed by one compressed stream:
//
//	header    [4-byte BE magic][1-byte version][1-byte compression][2 reserved]
//	stream    manifest, then one section per manifest entry
//	manifest  [4-byte BE table count] ([1-byte kind][2-byte BE name len][name])*
//	section   ([tag 1][4-byte BE key len][key][4-byte BE value len][value])*
//	          [tag 0][8-byte BE entry count][8-byte BE xxh3 digest]
//
// The digest covers each entry's length-prefixed key and value bytes. The
// manifest leads the stream so a restore can check every destination table
// before writing anything.

const (
	// Magic identifies a dump file ("STRA").
	Magic uint32 = 0x53545241

	// FormatVersion is the header version this package writes.
	FormatVersion uint8 = 1

	headerSize = 8

	tagEntry byte = 1
	tagEnd   byte = 0
)

var (
	// ErrBadMagic is returned when the input does not start with a dump
	// header.
	ErrBadMagic = errors.New("not a dump file")

	// ErrCorrupt is returned when the stream structure is damaged:
	// truncated reads, unknown tags, or impossible lengths.
	ErrCorrupt = errors.New("dump is corrupt")
)

// UnsupportedVersionError is returned when a dump header carries a format
// version this package does not know.
type UnsupportedVersionError struct {
	Version uint8
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported dump version %d", e.Version)
}

// ChecksumError is returned when a restored section does not match its
// trailer. The transaction the restore ran in should be discarded.
type ChecksumError struct {
	Table     string
	WantCount uint64
	GotCount  uint64
	WantSum   uint64
	GotSum    uint64
}

func (e *ChecksumError) Error() string {
	if e.WantCount != e.GotCount {
		return fmt.Sprintf("table %q: dump section has %d entries, trailer says %d", e.Table, e.GotCount, e.WantCount)
	}
	return fmt.Sprintf("table %q: dump section checksum mismatch", e.Table)
}

// DestinationNotEmptyError is returned when a restore finds data in any
// destination table. It carries the sorted names of every conflicting
// table; nothing was written.
type DestinationNotEmptyError struct {
	Tables []string
}

func (e *DestinationNotEmptyError) Error() string {
	return fmt.Sprintf("destination tables not empty: %s", strings.Join(e.Tables, ", "))
}

// TableManifest describes one table in a dump.
type TableManifest struct {
	Name string
	Kind kv.Kind
}

func encodeHeader(c Compression) []byte {
	h := make([]byte, headerSize)
	binary.BigEndian.PutUint32(h, Magic)
	h[4] = FormatVersion
	h[5] = byte(c)
	return h
}

func decodeHeader(h []byte) (Compression, error) {
	if binary.BigEndian.Uint32(h) != Magic {
		return 0, ErrBadMagic
	}
	if h[4] != FormatVersion {
		return 0, &UnsupportedVersionError{Version: h[4]}
	}

	c := Compression(h[5])
	if !c.valid() {
		return 0, fmt.Errorf("compression byte %d: %w", h[5], ErrUnknownCompression)
	}

	return c, nil
}
