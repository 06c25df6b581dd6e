// Package partition stores values that grow by incremental mutation inside
// size-bounded segments, spread deterministically across shards.
//
// A logical value lives under an opaque base key. Each mutation carries an
// element id; the pair (base key, element id) picks one of ShardCount shards,
// and within that shard the value accumulates in the head segment until a
// write would push its serialized size past SegmentMaxBytes. The write then
// rolls: a fresh segment holds just the delta and the old head is never
// touched again. Reading a base key unions every segment of every shard, so
// an absent key decodes to the codec's identity value rather than an error.
//
// # Key layout
//
// Two key shapes share one byte-ordered space:
//
//	segment key  [4-byte BE key len][base key][2-byte BE shard][2-byte BE segment]
//	meta key     [4-byte BE key len][base key][2-byte BE shard]
//
// The length prefix keeps distinct base keys from sharing prefixes
// ("ab"+"c" vs "a"+"bc"), which makes a bounded prefix scan over one
// (base key, shard) pair exact. Ordering across different base keys carries
// no meaning; every scan is bounded by a prefix derived from one base key.
//
// Meta keys live in their own table (the segments table's name plus
// "_meta") and map a (base key, shard) pair to its head segment id, turning
// head discovery into one point read at the cost of one extra write per
// roll. UseMeta is fixed for the lifetime of a table's data: toggling it
// over existing rows leaves head discovery inconsistent and is undefined.
//
// # Value codecs
//
// The store is generic over a ValueCodec that knows how to measure, merge,
// and version the stored value. The bitmap package provides the roaring
// codec used throughout; any codec with an identity value and a merge
// operation fits.
//
// Operations take the caller's transaction handle and never spawn
// goroutines; concurrency control belongs to the base store.
package partition
