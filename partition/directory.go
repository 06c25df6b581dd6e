package partition

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/stratakv/strata/kv"
)

// ErrKeyMismatch is returned when a key inside a shard's scan range decodes
// to a different base key or shard than requested. It indicates rows that
// were written outside this package's layout.
var ErrKeyMismatch = errors.New("scanned key belongs to a different base key or shard")

// ErrStaleMeta is returned when a meta head pointer references a segment
// that does not exist.
var ErrStaleMeta = errors.New("meta head pointer references a missing segment")

// Segment is one stored segment of a shard.
type Segment struct {
	// ID is the segment's position within its shard, starting at zero.
	ID uint16

	// Value is the raw encoded value. It aliases iterator storage and is
	// only valid until the iterator advances.
	Value []byte
}

// Directory locates the segments of a (base key, shard) pair inside a
// segments table. It validates every key it scans rather than trusting the
// range bounds alone.
type Directory struct {
	// UseMeta resolves heads through the meta table when one is given to
	// Head. Without it the head falls out of a full shard scan.
	UseMeta bool
}

// Enumerate scans the segments of one shard in ascending segment order. A
// nil table yields an exhausted iterator. The caller must Close the
// iterator.
func (d Directory) Enumerate(segments kv.Table, baseKey []byte, shard uint16) (*SegmentIterator, error) {
	if segments == nil {
		return &SegmentIterator{}, nil
	}

	prefix, err := SegmentPrefix(baseKey, shard)
	if err != nil {
		return nil, err
	}
	bound, err := PrefixUpperBound(prefix)
	if err != nil {
		return nil, err
	}

	return &SegmentIterator{
		it:      segments.Range(prefix, bound),
		baseKey: baseKey,
		shard:   shard,
	}, nil
}

// Head returns the id of the shard's head segment, or found=false when the
// shard holds no segments. With UseMeta set and a non-nil meta table the
// head comes from one point read; otherwise it is the last segment of a
// full shard scan.
func (d Directory) Head(segments, meta kv.Table, baseKey []byte, shard uint16) (head uint16, found bool, err error) {
	if d.UseMeta && meta != nil {
		key, err := EncodeMetaKey(baseKey, shard)
		if err != nil {
			return 0, false, err
		}

		raw, ok, err := meta.Get(key)
		if err != nil {
			return 0, false, fmt.Errorf("failed to read head pointer: %w", err)
		}
		if !ok {
			return 0, false, nil
		}

		head, err := decodeHeadValue(raw)
		if err != nil {
			return 0, false, err
		}
		return head, true, nil
	}

	it, err := d.Enumerate(segments, baseKey, shard)
	if err != nil {
		return 0, false, err
	}
	defer it.Close()

	for it.Next() {
		head = it.Segment().ID
		found = true
	}
	if err := it.Err(); err != nil {
		return 0, false, err
	}

	return head, found, nil
}

// encodeHeadValue builds the meta table value for a head pointer.
func encodeHeadValue(segment uint16) []byte {
	var v [segmentSize]byte
	binary.BigEndian.PutUint16(v[:], segment)
	return v[:]
}

func decodeHeadValue(raw []byte) (uint16, error) {
	if len(raw) != segmentSize {
		return 0, fmt.Errorf("head pointer value has %d bytes, want %d: %w", len(raw), segmentSize, ErrMalformedKey)
	}
	return binary.BigEndian.Uint16(raw), nil
}

// SegmentIterator walks the segments of one shard in ascending segment
// order. Every scanned key is decoded and checked against the requested
// base key and shard; a foreign or malformed key surfaces through Err
// instead of being skipped.
type SegmentIterator struct {
	it      kv.Iterator
	baseKey []byte
	shard   uint16
	cur     Segment
	err     error
	done    bool
}

// Next advances to the next segment. It returns false once the shard is
// exhausted or an error occurred; check Err afterwards.
func (it *SegmentIterator) Next() bool {
	if it.done || it.err != nil || it.it == nil {
		return false
	}

	if !it.it.Next() {
		it.done = true
		if err := it.it.Err(); err != nil {
			it.err = fmt.Errorf("failed to scan segments: %w", err)
		}
		return false
	}

	baseKey, shard, segment, err := DecodeSegmentKey(it.it.Key())
	if err != nil {
		it.err = err
		return false
	}
	if !bytes.Equal(baseKey, it.baseKey) || shard != it.shard {
		it.err = ErrKeyMismatch
		return false
	}

	it.cur = Segment{ID: segment, Value: it.it.Value()}

	return true
}

// Segment returns the segment Next positioned on.
func (it *SegmentIterator) Segment() Segment { return it.cur }

// Err returns the first error encountered while scanning.
func (it *SegmentIterator) Err() error { return it.err }

// Close releases the underlying scan.
func (it *SegmentIterator) Close() error {
	if it.it == nil {
		return nil
	}
	return it.it.Close()
}
