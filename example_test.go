package strata_test

import (
	"fmt"
	"log"
	"os"

	"github.com/stratakv/strata"
	"github.com/stratakv/strata/bitmap"
	"github.com/stratakv/strata/kv"
	"github.com/stratakv/strata/kv/badgerdb"
)

// Example demonstrates the basic write/read cycle through a DB.
func Example() {
	dir, err := os.MkdirTemp("", "strata-example")
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

	err = db.Update(func(txn kv.WriteTxn) error {
		return members.InsertMany(txn, []byte("group:7"), []uint64{1, 2, 3})
	})
	if err != nil {
		log.Fatal(err)
	}

	err = db.View(func(txn kv.ReadTxn) error {
		n, err := members.Count(txn, []byte("group:7"))
		if err != nil {
			return err
		}
		fmt.Println("members:", n)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	// Output: members: 3
}

// ExampleDB_Update demonstrates that a failed update leaves no trace.
func ExampleDB_Update() {
	dir, err := os.MkdirTemp("", "strata-example")
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

	err = db.Update(func(txn kv.WriteTxn) error {
		if _, err := txn.CreateTable("half-done"); err != nil {
			return err
		}
		return fmt.Errorf("change of plans")
	})
	fmt.Println("update:", err)

	infos, err := db.Tables()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("tables:", len(infos))

	// Output:
	// update: change of plans
	// tables: 0
}
