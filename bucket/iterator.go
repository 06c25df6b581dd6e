package bucket

import (
	"errors"
	"fmt"

	"github.com/stratakv/strata/kv"
)

// ErrInvalidRange is returned when a range's start sequence is after its
// end sequence. Detected before any store access.
var ErrInvalidRange = errors.New("range start is after its end")

// cursors walks a closed bucket range from both ends. take consumes the
// next bucket from the chosen end; the range is empty once the ends have
// crossed. Working on bucket ids directly keeps the walk overflow-free at
// the uint64 boundaries.
type cursors struct {
	front uint64
	back  uint64
	done  bool
}

func newCursors(front, back uint64) cursors {
	return cursors{front: front, back: back}
}

func (c *cursors) take(fromBack bool) (uint64, bool) {
	if c.done {
		return 0, false
	}
	if c.front == c.back {
		c.done = true
		return c.front, true
	}
	if fromBack {
		b := c.back
		c.back--
		return b, true
	}
	f := c.front
	c.front++
	return f, true
}

// RangeIterator yields the values of one base key between two sequence
// numbers, bucket by bucket. The table holds at most one value per
// (bucket, base key) pair, so each bucket contributes at most one value;
// empty buckets are skipped. Next walks buckets ascending, NextBack
// descending, and the two ends meet in the middle. After either returns
// false, check Err: a store error ends the iteration permanently.
//
// The iterator issues point reads only and holds no store resources, so
// there is nothing to close.
type RangeIterator struct {
	tbl     kv.Table
	keys    *KeyBuilder
	baseKey []byte
	cur     cursors
	err     error
}

// Next returns the next value in ascending bucket order.
func (it *RangeIterator) Next() ([]byte, bool) {
	return it.next(false)
}

// NextBack returns the next value in descending bucket order.
func (it *RangeIterator) NextBack() ([]byte, bool) {
	return it.next(true)
}

// Err returns the store error that ended the iteration, if any.
func (it *RangeIterator) Err() error { return it.err }

func (it *RangeIterator) next(fromBack bool) ([]byte, bool) {
	if it.err != nil || it.tbl == nil {
		return nil, false
	}

	for {
		bucket, ok := it.cur.take(fromBack)
		if !ok {
			return nil, false
		}

		v, ok, err := it.tbl.Get(it.keys.BucketKey(bucket, it.baseKey))
		if err != nil {
			it.err = fmt.Errorf("failed to read bucket %d: %w", bucket, err)
			it.cur.done = true
			return nil, false
		}
		if ok {
			return v, true
		}
	}
}

// MultimapRangeIterator is the multimap twin of RangeIterator: each bucket
// may hold many values for the base key. A bucket's values load in the
// store's stable order into a per-side queue and drain front-to-back under
// Next, back-to-front under NextBack. Once all buckets are consumed the
// opposite side's leftover queue drains, so interleaved calls still yield
// every value exactly once.
type MultimapRangeIterator struct {
	tbl     kv.MultimapTable
	keys    *KeyBuilder
	baseKey []byte
	cur     cursors
	frontQ  [][]byte
	backQ   [][]byte
	err     error
}

// Next returns the next value in ascending order.
func (it *MultimapRangeIterator) Next() ([]byte, bool) {
	if it.err != nil || it.tbl == nil {
		return nil, false
	}

	if len(it.frontQ) > 0 {
		v := it.frontQ[0]
		it.frontQ = it.frontQ[1:]
		return v, true
	}

	for {
		bucket, ok := it.cur.take(false)
		if !ok {
			break
		}

		vals, err := it.loadBucket(bucket)
		if err != nil {
			it.err = err
			it.cur.done = true
			return nil, false
		}
		if len(vals) > 0 {
			it.frontQ = vals[1:]
			return vals[0], true
		}
	}

	// Buckets are spent; continue into what the back side has loaded but
	// not yet yielded.
	if len(it.backQ) > 0 {
		v := it.backQ[0]
		it.backQ = it.backQ[1:]
		return v, true
	}

	return nil, false
}

// NextBack returns the next value in descending order.
func (it *MultimapRangeIterator) NextBack() ([]byte, bool) {
	if it.err != nil || it.tbl == nil {
		return nil, false
	}

	if n := len(it.backQ); n > 0 {
		v := it.backQ[n-1]
		it.backQ = it.backQ[:n-1]
		return v, true
	}

	for {
		bucket, ok := it.cur.take(true)
		if !ok {
			break
		}

		vals, err := it.loadBucket(bucket)
		if err != nil {
			it.err = err
			it.cur.done = true
			return nil, false
		}
		if n := len(vals); n > 0 {
			it.backQ = vals[:n-1]
			return vals[n-1], true
		}
	}

	if n := len(it.frontQ); n > 0 {
		v := it.frontQ[n-1]
		it.frontQ = it.frontQ[:n-1]
		return v, true
	}

	return nil, false
}

// Err returns the store error that ended the iteration, if any.
func (it *MultimapRangeIterator) Err() error { return it.err }

// loadBucket copies a bucket's values out of the store in their stored
// order.
func (it *MultimapRangeIterator) loadBucket(bucket uint64) ([][]byte, error) {
	vi := it.tbl.ValuesOf(it.keys.BucketKey(bucket, it.baseKey))
	defer vi.Close()

	var vals [][]byte
	for vi.Next() {
		vals = append(vals, append([]byte(nil), vi.Value()...))
	}
	if err := vi.Err(); err != nil {
		return nil, fmt.Errorf("failed to read bucket %d: %w", bucket, err)
	}

	return vals, nil
}
