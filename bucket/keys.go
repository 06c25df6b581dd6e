package bucket

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const bucketPrefixSize = 8

var (
	// ErrInvalidBucketSize is returned when a bucket size of zero is used.
	ErrInvalidBucketSize = errors.New("bucket size must be positive")

	// ErrShortKey is returned when a bucketed key is too short to carry
	// its bucket prefix.
	ErrShortKey = errors.New("key is shorter than the bucket prefix")
)

// KeyBuilder derives bucket ids from sequence numbers and builds bucketed
// keys: [8-byte BE bucket][base key]. The big-endian prefix makes byte
// order equal bucket order, so one ordered table interleaves all base keys
// bucket-major. Base keys carry no length prefix in this shape; callers
// that mix base keys of varying length in one table should use a
// fixed-width encoding.
type KeyBuilder struct {
	size uint64
}

// NewKeyBuilder creates a builder that groups size consecutive sequence
// numbers per bucket.
func NewKeyBuilder(size uint64) (*KeyBuilder, error) {
	if size == 0 {
		return nil, ErrInvalidBucketSize
	}
	return &KeyBuilder{size: size}, nil
}

// BucketSize returns the number of sequence numbers per bucket.
func (b *KeyBuilder) BucketSize() uint64 { return b.size }

// Bucket returns the bucket the sequence number falls into.
func (b *KeyBuilder) Bucket(seq uint64) uint64 { return seq / b.size }

// Key builds the bucketed key for a sequence number.
func (b *KeyBuilder) Key(seq uint64, baseKey []byte) []byte {
	return b.BucketKey(b.Bucket(seq), baseKey)
}

// BucketKey builds the bucketed key for an explicit bucket id.
func (b *KeyBuilder) BucketKey(bucket uint64, baseKey []byte) []byte {
	key := make([]byte, bucketPrefixSize+len(baseKey))
	binary.BigEndian.PutUint64(key, bucket)
	copy(key[bucketPrefixSize:], baseKey)
	return key
}

// DecodeKey splits a bucketed key. The returned base key aliases key's
// storage.
func DecodeKey(key []byte) (bucket uint64, baseKey []byte, err error) {
	if len(key) < bucketPrefixSize {
		return 0, nil, ErrShortKey
	}
	return binary.BigEndian.Uint64(key), key[bucketPrefixSize:], nil
}

// Compare orders two bucketed keys numerically by bucket, then bytewise by
// base key. Because the bucket prefix is big-endian this is plain byte
// comparison; the function exists to name the invariant.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
