package benchmark_test

import (
	"encoding/binary"
	"testing"

	"github.com/stratakv/strata/bucket"
	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/testutil"
)

func BenchmarkBucketMapPut(b *testing.B) {
	b.ReportAllocs()

	store := newBenchStore(b)

	keys, err := bucket.NewKeyBuilder(1000)
	if err != nil {
		b.Fatal(err)
	}

	m, err := bucket.NewMap("events", keys)
	if err != nil {
		b.Fatal(err)
	}

	rng := testutil.NewRNG(1)
	value := rng.Bytes(64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := withWrite(b, store, func(txn kv.WriteTxn) error {
			return m.Put(txn, uint64(i), []byte("stream"), value)
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBucketMapIterate(b *testing.B) {
	b.ReportAllocs()

	store := newBenchStore(b)

	keys, err := bucket.NewKeyBuilder(1000)
	if err != nil {
		b.Fatal(err)
	}

	m, err := bucket.NewMap("events", keys)
	if err != nil {
		b.Fatal(err)
	}

	// Seed in chunks so no single transaction grows past the engine's
	// batch limits.
	rng := testutil.NewRNG(1)
	for start := uint64(0); start < 100_000; start += 10_000 {
		err = withWrite(b, store, func(txn kv.WriteTxn) error {
			for seq := start; seq < start+10_000; seq++ {
				if err := m.Put(txn, seq, []byte("stream"), rng.Bytes(32)); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}

	txn, err := store.BeginRead()
	if err != nil {
		b.Fatal(err)
	}
	defer txn.Discard()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		it, err := m.Iterate(txn, []byte("stream"), 0, 100_000)
		if err != nil {
			b.Fatal(err)
		}

		var rows int
		for _, ok := it.Next(); ok; _, ok = it.Next() {
			rows++
		}
		if err := it.Err(); err != nil {
			b.Fatal(err)
		}
		if rows != 100_000 {
			b.Fatalf("got %d rows", rows)
		}
	}
}

func BenchmarkConsolidatorInsert(b *testing.B) {
	b.ReportAllocs()

	store := newBenchStore(b)

	con, err := bucket.NewConsolidator(1000, "counts")
	if err != nil {
		b.Fatal(err)
	}

	rng := testutil.NewRNG(1)
	seqs := rng.ZipfSequences(1024, 1<<20, 1.2)
	value := rng.Bytes(8)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := withWrite(b, store, func(txn kv.WriteTxn) error {
			seq := seqs[i%len(seqs)]
			key := binary.BigEndian.AppendUint64(nil, seq)
			return con.Insert(txn, seq, key, value)
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConsolidatorMergeAll(b *testing.B) {
	b.ReportAllocs()

	rng := testutil.NewRNG(1)
	seqs := rng.ZipfSequences(10_000, 1<<16, 1.2)

	for i := 0; i < b.N; i++ {
		b.StopTimer()

		store := newBenchStore(b)
		con, err := bucket.NewConsolidator(1000, "counts")
		if err != nil {
			b.Fatal(err)
		}

		err = withWrite(b, store, func(txn kv.WriteTxn) error {
			for _, seq := range seqs {
				key := binary.BigEndian.AppendUint64(nil, seq)
				if err := con.Insert(txn, seq, key, []byte{1}); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			b.Fatal(err)
		}

		b.StartTimer()

		err = withWrite(b, store, func(txn kv.WriteTxn) error {
			return con.MergeAll(txn, "totals", func(existing []byte, ok bool, incoming []byte) ([]byte, error) {
				return incoming, nil
			})
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
