package partition

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	lenSize     = 4
	shardSize   = 2
	segmentSize = 2

	metaKeyOverhead    = lenSize + shardSize
	segmentKeyOverhead = lenSize + shardSize + segmentSize
)

var (
	// ErrKeyTooLong is returned when a base key does not fit the 4-byte
	// length prefix.
	ErrKeyTooLong = errors.New("base key exceeds the 4-byte length prefix")

	// ErrMalformedKey is returned when a stored key or head pointer value
	// does not match the segment or meta layout.
	ErrMalformedKey = errors.New("key does not match the expected layout")

	// ErrEmptyPrefix is returned when an upper bound is requested for an
	// empty prefix.
	ErrEmptyPrefix = errors.New("prefix must not be empty")
)

// EncodeSegmentKey builds the key of one segment:
// [4-byte BE key len][base key][2-byte BE shard][2-byte BE segment].
func EncodeSegmentKey(baseKey []byte, shard, segment uint16) ([]byte, error) {
	if uint64(len(baseKey)) > math.MaxUint32 {
		return nil, ErrKeyTooLong
	}

	key := make([]byte, segmentKeyOverhead+len(baseKey))
	binary.BigEndian.PutUint32(key, uint32(len(baseKey)))
	copy(key[lenSize:], baseKey)
	binary.BigEndian.PutUint16(key[lenSize+len(baseKey):], shard)
	binary.BigEndian.PutUint16(key[lenSize+len(baseKey)+shardSize:], segment)

	return key, nil
}

// DecodeSegmentKey splits a segment key into its parts. The returned base
// key aliases key's storage.
func DecodeSegmentKey(key []byte) (baseKey []byte, shard, segment uint16, err error) {
	if len(key) < segmentKeyOverhead {
		return nil, 0, 0, ErrMalformedKey
	}

	klen := binary.BigEndian.Uint32(key)
	if uint64(len(key)) != segmentKeyOverhead+uint64(klen) {
		return nil, 0, 0, ErrMalformedKey
	}

	baseKey = key[lenSize : lenSize+klen]
	shard = binary.BigEndian.Uint16(key[lenSize+klen:])
	segment = binary.BigEndian.Uint16(key[lenSize+klen+shardSize:])

	return baseKey, shard, segment, nil
}

// EncodeMetaKey builds the key of a shard's head pointer:
// [4-byte BE key len][base key][2-byte BE shard]. It equals the shard's
// segment key prefix, so a meta table must never share a table with
// segment rows.
func EncodeMetaKey(baseKey []byte, shard uint16) ([]byte, error) {
	if uint64(len(baseKey)) > math.MaxUint32 {
		return nil, ErrKeyTooLong
	}

	key := make([]byte, metaKeyOverhead+len(baseKey))
	binary.BigEndian.PutUint32(key, uint32(len(baseKey)))
	copy(key[lenSize:], baseKey)
	binary.BigEndian.PutUint16(key[lenSize+len(baseKey):], shard)

	return key, nil
}

// DecodeMetaKey splits a meta key into its parts. The returned base key
// aliases key's storage.
func DecodeMetaKey(key []byte) (baseKey []byte, shard uint16, err error) {
	if len(key) < metaKeyOverhead {
		return nil, 0, ErrMalformedKey
	}

	klen := binary.BigEndian.Uint32(key)
	if uint64(len(key)) != metaKeyOverhead+uint64(klen) {
		return nil, 0, ErrMalformedKey
	}

	baseKey = key[lenSize : lenSize+klen]
	shard = binary.BigEndian.Uint16(key[lenSize+klen:])

	return baseKey, shard, nil
}

// SegmentPrefix returns the common prefix of every segment key belonging to
// one (base key, shard) pair. Byte-wise it equals the pair's meta key.
func SegmentPrefix(baseKey []byte, shard uint16) ([]byte, error) {
	return EncodeMetaKey(baseKey, shard)
}

// BaseKeyPrefix returns the common prefix of every segment and meta key
// belonging to one base key, across all shards.
func BaseKeyPrefix(baseKey []byte) ([]byte, error) {
	if uint64(len(baseKey)) > math.MaxUint32 {
		return nil, ErrKeyTooLong
	}

	key := make([]byte, lenSize+len(baseKey))
	binary.BigEndian.PutUint32(key, uint32(len(baseKey)))
	copy(key[lenSize:], baseKey)

	return key, nil
}

// PrefixUpperBound returns the smallest key greater than every key that
// starts with prefix, for use as an exclusive scan bound. Trailing 0xFF
// bytes carry into the preceding byte; a prefix of all 0xFF bytes has no
// finite bound and yields nil, meaning unbounded.
func PrefixUpperBound(prefix []byte) ([]byte, error) {
	if len(prefix) == 0 {
		return nil, ErrEmptyPrefix
	}

	bound := make([]byte, len(prefix))
	copy(bound, prefix)

	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] < 0xFF {
			bound[i]++
			return bound[:i+1], nil
		}
	}

	return nil, nil
}
