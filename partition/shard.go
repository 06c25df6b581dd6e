package partition

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
)

// SelectShard maps a (base key, element id) pair onto one of shardCount
// shards. The mapping is deterministic and must stay stable across
// processes, so it is defined purely in terms of XXH3: the hash of the base
// key XORed with the hash of the element id in 8-byte big-endian form,
// reduced modulo the shard count.
func SelectShard(baseKey []byte, elementID uint64, shardCount uint16) (uint16, error) {
	if shardCount == 0 {
		return 0, ErrInvalidShardCount
	}

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], elementID)

	h := xxh3.Hash(baseKey) ^ xxh3.Hash(buf[:])

	return uint16(h % uint64(shardCount)), nil
}
