package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/stratakv/strata"
	"github.com/stratakv/strata/bitmap"
	"github.com/stratakv/strata/dump"
	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/kv/badgerdb"
	"github.com/stratakv/strata/testutil"
)

func main() {
	seed := int64(4711)
	size := 1_000_000
	baseKeys := 64

	dir, err := os.MkdirTemp("", "strata-demo-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	store, err := badgerdb.Open(dir, func(o *badgerdb.Options) {
		o.SyncWrites = false
	})
	if err != nil {
		log.Fatal(err)
	}

	db, err := strata.New(store)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	members, err := bitmap.New("members")
	if err != nil {
		log.Fatal(err)
	}

	rng := testutil.NewRNG(seed)
	ids := rng.IDs(size)
	keys := testutil.NamedKeys("set/", baseKeys)

	fmt.Println("--- Insert ---")
	fmt.Println("IDs:", size)
	fmt.Println("Base keys:", baseKeys)

	start := time.Now()

	per := size / baseKeys
	for i, key := range keys {
		batch := ids[i*per : (i+1)*per]
		err := db.Update(func(txn kv.WriteTxn) error {
			return members.InsertMany(txn, key, batch)
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("Seconds: %.2f\n\n", time.Since(start).Seconds())

	fmt.Println("--- Read ---")

	start = time.Now()

	var total uint64
	err = db.View(func(txn kv.ReadTxn) error {
		for _, key := range keys {
			n, err := members.Count(txn, key)
			if err != nil {
				return err
			}
			total += n
		}

		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Total members:", total)
	fmt.Printf("Seconds: %.8f\n\n", time.Since(start).Seconds())

	fmt.Println("--- Dump ---")

	for _, c := range []dump.Compression{dump.None, dump.Snappy, dump.LZ4, dump.Zstd} {
		start = time.Now()

		var buf bytes.Buffer
		err = db.View(func(txn kv.ReadTxn) error {
			return dump.Dump(&buf, txn, func(o *dump.Options) {
				o.Compression = c
			})
		})
		if err != nil {
			log.Fatal(err)
		}

		fmt.Printf("%-8s %8.2f MiB in %.2fs\n", c, float64(buf.Len())/(1<<20), time.Since(start).Seconds())
	}
}
