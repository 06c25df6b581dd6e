package benchmark_test

import (
	"testing"

	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/kv/badgerdb"
	"github.com/stratakv/strata/testutil"
)

func newBenchStore(b *testing.B) kv.Store {
	b.Helper()

	store, err := badgerdb.Open(b.TempDir(), func(o *badgerdb.Options) {
		o.SyncWrites = false
	})
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = store.Close() })

	return store
}

// seedTable fills a plain table with rows generated from the given seed so
// every benchmark reads the same data.
func seedTable(b *testing.B, store kv.Store, table string, rows, keyLen, valueLen int) {
	b.Helper()

	rng := testutil.NewRNG(1)
	keys := rng.Keys(rows, keyLen)

	txn, err := store.BeginWrite()
	if err != nil {
		b.Fatal(err)
	}
	defer txn.Discard()

	tbl, err := txn.CreateTable(table)
	if err != nil {
		b.Fatal(err)
	}

	for _, k := range keys {
		if err := tbl.Set(k, rng.Bytes(valueLen)); err != nil {
			b.Fatal(err)
		}
	}

	if err := txn.Commit(); err != nil {
		b.Fatal(err)
	}
}
