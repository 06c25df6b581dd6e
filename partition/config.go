package partition

import "errors"

var (
	// ErrInvalidShardCount is returned when a shard count of zero is used.
	ErrInvalidShardCount = errors.New("shard count must be positive")

	// ErrInvalidSegmentSize is returned when SegmentMaxBytes is not positive.
	ErrInvalidSegmentSize = errors.New("segment max bytes must be positive")
)

// Config controls how a store lays out its segments.
type Config struct {
	// ShardCount is the number of shards each base key is spread over.
	// Must be positive. Changing it over existing data reshuffles which
	// shard a given element id maps to and is undefined.
	ShardCount uint16

	// SegmentMaxBytes bounds the serialized size of a head segment. A
	// write that would grow the head past this bound rolls to a new
	// segment instead. A single oversized delta still lands in its own
	// segment; the bound caps growth, not individual values.
	SegmentMaxBytes int

	// UseMeta maintains a per-(base key, shard) head pointer in a meta
	// table, replacing the head scan with a point read. Fixed for the
	// lifetime of a table's data: toggling it over existing segments
	// leaves heads without pointers and is undefined.
	UseMeta bool
}

// DefaultConfig is the configuration used when none is given.
var DefaultConfig = Config{
	ShardCount:      16,
	SegmentMaxBytes: 64 << 10,
	UseMeta:         true,
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	if c.ShardCount == 0 {
		return ErrInvalidShardCount
	}
	if c.SegmentMaxBytes <= 0 {
		return ErrInvalidSegmentSize
	}
	return nil
}
