package bitmap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/stratakv/strata/partition"
)

// Version is the value envelope version this package writes.
const Version = 1

// ErrEmptyValue is returned when a stored value has no version byte.
var ErrEmptyValue = errors.New("value is empty")

// UnsupportedVersionError is returned when a stored value carries a version
// this package does not know. Decoding fails closed rather than guessing at
// the payload.
type UnsupportedVersionError struct {
	Version uint8
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported value version %d", e.Version)
}

// Codec serializes roaring bitmaps as [1-byte version][roaring payload].
type Codec struct{}

var _ partition.ValueCodec[*roaring64.Bitmap] = Codec{}

// SerializedSize returns the encoded size of v, version byte included.
func (Codec) SerializedSize(v *roaring64.Bitmap) int {
	return 1 + int(v.GetSerializedSizeInBytes())
}

// Encode serializes v.
func (c Codec) Encode(v *roaring64.Bitmap) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(c.SerializedSize(v))
	buf.WriteByte(Version)

	if _, err := v.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode bitmap: %w", err)
	}

	return buf.Bytes(), nil
}

// Decode deserializes a stored value.
func (Codec) Decode(data []byte) (*roaring64.Bitmap, error) {
	if len(data) == 0 {
		return nil, ErrEmptyValue
	}
	if data[0] != Version {
		return nil, &UnsupportedVersionError{Version: data[0]}
	}

	v := roaring64.New()
	if err := v.UnmarshalBinary(data[1:]); err != nil {
		return nil, fmt.Errorf("failed to decode bitmap: %w", err)
	}

	return v, nil
}

// Empty returns a fresh empty bitmap.
func (Codec) Empty() *roaring64.Bitmap { return roaring64.New() }

// Merge ORs src into dst and returns dst.
func (Codec) Merge(dst, src *roaring64.Bitmap) *roaring64.Bitmap {
	dst.Or(src)
	return dst
}
