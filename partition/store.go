package partition

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/stratakv/strata/kv"
)

var (
	// ErrSegmentsExhausted is returned when a shard already holds segment
	// 65535 and a write would have to roll past it.
	ErrSegmentsExhausted = errors.New("segment ids exhausted")

	// ErrNoTable is returned when a store is created without a table name.
	ErrNoTable = errors.New("table name must not be empty")

	// ErrNoCodec is returned when a store is created without a codec.
	ErrNoCodec = errors.New("value codec must not be nil")
)

// ValueCodec describes the stored value type to the store. Implementations
// must keep SerializedSize consistent with Encode: the size reported for a
// value is the length of its encoding.
type ValueCodec[T any] interface {
	// SerializedSize returns the encoded size of v in bytes.
	SerializedSize(v T) int

	// Encode serializes v.
	Encode(v T) ([]byte, error)

	// Decode deserializes a stored value.
	Decode(data []byte) (T, error)

	// Empty returns the identity value: reading an absent base key yields
	// it, and merging it into any value changes nothing.
	Empty() T

	// Merge folds src into dst and returns the result. It may mutate and
	// return dst; src must stay untouched.
	Merge(dst, src T) T
}

// WriteResult reports where a write landed.
type WriteResult struct {
	// Shard the element id mapped to.
	Shard uint16

	// Segment the delta ended up in.
	Segment uint16

	// Rolled is true when the write opened a new segment because the
	// merged head would have exceeded SegmentMaxBytes.
	Rolled bool
}

// Options configures a store.
type Options struct {
	// Config controls sharding and segment growth. Defaults to
	// DefaultConfig.
	Config Config

	// Logger receives debug lines for segment creation and rolls.
	// Defaults to a discarding logger.
	Logger *slog.Logger
}

// Store lays segmented values out in a segments table and, when UseMeta is
// set, a companion meta table named after it with an "_meta" suffix. All
// methods operate inside the caller's transaction and are safe for
// concurrent use on separate transactions.
type Store[T any] struct {
	table string
	meta  string
	cfg   Config
	codec ValueCodec[T]
	dir   Directory
	log   *slog.Logger
}

// New creates a store over the named segments table.
func New[T any](table string, codec ValueCodec[T], optFns ...func(o *Options)) (*Store[T], error) {
	opts := Options{
		Config: DefaultConfig,
		Logger: slog.New(slog.DiscardHandler),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if table == "" {
		return nil, ErrNoTable
	}
	if codec == nil {
		return nil, ErrNoCodec
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	return &Store[T]{
		table: table,
		meta:  table + "_meta",
		cfg:   opts.Config,
		codec: codec,
		dir:   Directory{UseMeta: opts.Config.UseMeta},
		log:   opts.Logger,
	}, nil
}

// Table returns the name of the segments table.
func (s *Store[T]) Table() string { return s.table }

// MetaTable returns the name of the companion meta table. It exists only
// when the store runs with UseMeta.
func (s *Store[T]) MetaTable() string { return s.meta }

// Config returns the store's configuration.
func (s *Store[T]) Config() Config { return s.cfg }

// Shard returns the shard a (base key, element id) pair maps to.
func (s *Store[T]) Shard(baseKey []byte, elementID uint64) (uint16, error) {
	return SelectShard(baseKey, elementID, s.cfg.ShardCount)
}

// Write merges delta into the value stored under baseKey, routed by
// elementID. The first write to a shard creates segment 0. Later writes
// merge into the head segment in place until the merged encoding would
// exceed SegmentMaxBytes; then the head is left untouched and the delta
// alone starts the next segment. Tables are created on demand.
func (s *Store[T]) Write(txn kv.WriteTxn, baseKey []byte, elementID uint64, delta T) (WriteResult, error) {
	var res WriteResult

	shard, err := SelectShard(baseKey, elementID, s.cfg.ShardCount)
	if err != nil {
		return res, err
	}

	segments, meta, err := s.writeTables(txn)
	if err != nil {
		return res, err
	}

	head, found, err := s.dir.Head(segments, meta, baseKey, shard)
	if err != nil {
		return res, err
	}

	if !found {
		if err := s.putSegment(segments, meta, baseKey, shard, 0, delta); err != nil {
			return res, err
		}

		s.log.Debug("opened segment", "table", s.table, "shard", shard, "segment", 0)

		return WriteResult{Shard: shard, Segment: 0}, nil
	}

	headKey, err := EncodeSegmentKey(baseKey, shard, head)
	if err != nil {
		return res, err
	}
	raw, ok, err := segments.Get(headKey)
	if err != nil {
		return res, fmt.Errorf("failed to read head segment: %w", err)
	}
	if !ok {
		return res, fmt.Errorf("shard %d head %d: %w", shard, head, ErrStaleMeta)
	}

	current, err := s.codec.Decode(raw)
	if err != nil {
		return res, fmt.Errorf("failed to decode segment %d of shard %d: %w", head, shard, err)
	}

	updated := s.codec.Merge(current, delta)

	if s.codec.SerializedSize(updated) <= s.cfg.SegmentMaxBytes {
		if err := s.putSegment(segments, nil, baseKey, shard, head, updated); err != nil {
			return res, err
		}

		return WriteResult{Shard: shard, Segment: head}, nil
	}

	if head == math.MaxUint16 {
		return res, fmt.Errorf("shard %d: %w", shard, ErrSegmentsExhausted)
	}

	next := head + 1
	if err := s.putSegment(segments, meta, baseKey, shard, next, delta); err != nil {
		return res, err
	}

	s.log.Debug("rolled segment", "table", s.table, "shard", shard, "segment", next)

	return WriteResult{Shard: shard, Segment: next, Rolled: true}, nil
}

// Read unions every segment of every shard of baseKey. A base key with no
// segments, or a segments table that does not exist yet, reads as the
// codec's identity value.
func (s *Store[T]) Read(txn kv.ReadTxn, baseKey []byte) (T, error) {
	out := s.codec.Empty()

	segments, err := s.readTable(txn)
	if err != nil || segments == nil {
		return out, err
	}

	for shard := 0; shard < int(s.cfg.ShardCount); shard++ {
		out, err = s.mergeShard(segments, baseKey, uint16(shard), out)
		if err != nil {
			return s.codec.Empty(), err
		}
	}

	return out, nil
}

// ReadShard unions the segments of a single shard of baseKey.
func (s *Store[T]) ReadShard(txn kv.ReadTxn, baseKey []byte, shard uint16) (T, error) {
	out := s.codec.Empty()

	segments, err := s.readTable(txn)
	if err != nil || segments == nil {
		return out, err
	}

	return s.mergeShard(segments, baseKey, shard, out)
}

// MutateShard rewrites the segments of the shard elementID maps to. fn is
// applied to each decoded segment value and returns the replacement plus
// whether anything changed; unchanged segments keep their stored bytes.
// Mutation never merges or rolls segments, so a value shrunk by fn stays
// in place.
func (s *Store[T]) MutateShard(txn kv.WriteTxn, baseKey []byte, elementID uint64, fn func(v T) (T, bool)) error {
	shard, err := SelectShard(baseKey, elementID, s.cfg.ShardCount)
	if err != nil {
		return err
	}

	segments, err := s.readTable(txn)
	if err != nil || segments == nil {
		return err
	}

	type rewrite struct {
		id    uint16
		value T
	}

	// Collect before writing so no segment scan is open while the
	// transaction mutates the table.
	var rewrites []rewrite

	it, err := s.dir.Enumerate(segments, baseKey, shard)
	if err != nil {
		return err
	}
	for it.Next() {
		seg := it.Segment()

		v, err := s.codec.Decode(seg.Value)
		if err != nil {
			it.Close()
			return fmt.Errorf("failed to decode segment %d of shard %d: %w", seg.ID, shard, err)
		}

		if next, changed := fn(v); changed {
			rewrites = append(rewrites, rewrite{id: seg.ID, value: next})
		}
	}
	if err := it.Err(); err != nil {
		it.Close()
		return err
	}
	if err := it.Close(); err != nil {
		return fmt.Errorf("failed to close segment scan: %w", err)
	}

	if len(rewrites) == 0 {
		return nil
	}

	wtbl, err := txn.CreateTable(s.table)
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", s.table, err)
	}

	for _, rw := range rewrites {
		if err := s.setSegment(wtbl, baseKey, shard, rw.id, rw.value); err != nil {
			return err
		}
	}

	return nil
}

// Clear deletes every segment and head pointer of baseKey across all
// shards. Clearing an absent base key is a no-op.
func (s *Store[T]) Clear(txn kv.WriteTxn, baseKey []byte) error {
	segments, err := s.readTable(txn)
	if err != nil || segments == nil {
		return err
	}

	prefix, err := BaseKeyPrefix(baseKey)
	if err != nil {
		return err
	}
	bound, err := PrefixUpperBound(prefix)
	if err != nil {
		return err
	}

	keys, err := collectKeys(segments.Range(prefix, bound))
	if err != nil {
		return fmt.Errorf("failed to scan segments: %w", err)
	}

	wtbl, err := txn.CreateTable(s.table)
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", s.table, err)
	}
	for _, key := range keys {
		if _, err := wtbl.Delete(key); err != nil {
			return fmt.Errorf("failed to delete segment: %w", err)
		}
	}

	if s.cfg.UseMeta {
		if err := s.clearMeta(txn, prefix, bound); err != nil {
			return err
		}
	}

	s.log.Debug("cleared base key", "table", s.table, "segments", len(keys))

	return nil
}

func (s *Store[T]) clearMeta(txn kv.WriteTxn, prefix, bound []byte) error {
	meta, err := txn.OpenTable(s.meta)
	if errors.Is(err, kv.ErrTableNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", s.meta, err)
	}

	keys, err := collectKeys(meta.Range(prefix, bound))
	if err != nil {
		return fmt.Errorf("failed to scan head pointers: %w", err)
	}

	wmeta, err := txn.CreateTable(s.meta)
	if err != nil {
		return fmt.Errorf("failed to open table %q: %w", s.meta, err)
	}
	for _, key := range keys {
		if _, err := wmeta.Delete(key); err != nil {
			return fmt.Errorf("failed to delete head pointer: %w", err)
		}
	}

	return nil
}

// mergeShard folds the segments of one shard into acc.
func (s *Store[T]) mergeShard(segments kv.Table, baseKey []byte, shard uint16, acc T) (T, error) {
	it, err := s.dir.Enumerate(segments, baseKey, shard)
	if err != nil {
		return acc, err
	}
	defer it.Close()

	for it.Next() {
		seg := it.Segment()

		v, err := s.codec.Decode(seg.Value)
		if err != nil {
			return acc, fmt.Errorf("failed to decode segment %d of shard %d: %w", seg.ID, shard, err)
		}

		acc = s.codec.Merge(acc, v)
	}
	if err := it.Err(); err != nil {
		return acc, err
	}

	return acc, nil
}

// putSegment writes one segment and, when meta is non-nil, repoints the
// shard's head at it.
func (s *Store[T]) putSegment(segments, meta kv.WriteTable, baseKey []byte, shard, segment uint16, v T) error {
	if err := s.setSegment(segments, baseKey, shard, segment, v); err != nil {
		return err
	}

	if meta != nil {
		key, err := EncodeMetaKey(baseKey, shard)
		if err != nil {
			return err
		}
		if err := meta.Set(key, encodeHeadValue(segment)); err != nil {
			return fmt.Errorf("failed to write head pointer: %w", err)
		}
	}

	return nil
}

func (s *Store[T]) setSegment(segments kv.WriteTable, baseKey []byte, shard, segment uint16, v T) error {
	key, err := EncodeSegmentKey(baseKey, shard, segment)
	if err != nil {
		return err
	}

	raw, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("failed to encode segment %d of shard %d: %w", segment, shard, err)
	}

	if err := segments.Set(key, raw); err != nil {
		return fmt.Errorf("failed to write segment: %w", err)
	}

	return nil
}

// writeTables opens the segments table and, with UseMeta, the meta table,
// creating them on demand.
func (s *Store[T]) writeTables(txn kv.WriteTxn) (segments, meta kv.WriteTable, err error) {
	segments, err = txn.CreateTable(s.table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open table %q: %w", s.table, err)
	}

	if s.cfg.UseMeta {
		meta, err = txn.CreateTable(s.meta)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open table %q: %w", s.meta, err)
		}
	}

	return segments, meta, nil
}

// readTable opens the segments table, mapping a table that does not exist
// yet to nil.
func (s *Store[T]) readTable(txn kv.ReadTxn) (kv.Table, error) {
	segments, err := txn.OpenTable(s.table)
	if errors.Is(err, kv.ErrTableNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table %q: %w", s.table, err)
	}

	return segments, nil
}

// collectKeys drains an iterator into copied keys and closes it.
func collectKeys(it kv.Iterator) ([][]byte, error) {
	defer it.Close()

	var keys [][]byte
	for it.Next() {
		keys = append(keys, append([]byte(nil), it.Key()...))
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}
