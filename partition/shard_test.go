package partition_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/stratakv/strata/partition"
)

func TestSelectShardDeterministic(t *testing.T) {
	for id := uint64(0); id < 64; id++ {
		a, err := partition.SelectShard([]byte("users"), id, 16)
		require.NoError(t, err)
		b, err := partition.SelectShard([]byte("users"), id, 16)
		require.NoError(t, err)

		require.Equal(t, a, b)
		require.Less(t, a, uint16(16))
	}
}

func TestSelectShardSpreadsElements(t *testing.T) {
	seen := make(map[uint16]struct{})
	for id := uint64(0); id < 100; id++ {
		s, err := partition.SelectShard([]byte("users"), id, 16)
		require.NoError(t, err)
		seen[s] = struct{}{}
	}

	// A hash worth its salt cannot send 100 element ids to one shard.
	require.Greater(t, len(seen), 1)
}

func TestSelectShardDistribution(t *testing.T) {
	const (
		shards  = 16
		samples = 1024
	)

	counts := make([]float64, shards)
	for id := uint64(0); id < samples; id++ {
		s, err := partition.SelectShard([]byte("distribution"), id, shards)
		require.NoError(t, err)
		counts[s]++
	}

	for s, c := range counts {
		require.NotZerof(t, c, "shard %d received no elements", s)
	}

	require.InDelta(t, float64(samples)/shards, stat.Mean(counts, nil), 0.0001)
	require.Less(t, stat.StdDev(counts, nil), 16.0)
}

func TestSelectShardZeroShards(t *testing.T) {
	_, err := partition.SelectShard([]byte("users"), 1, 0)
	require.ErrorIs(t, err, partition.ErrInvalidShardCount)
}
