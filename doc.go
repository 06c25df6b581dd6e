// Package strata is a storage-layout layer over an embedded, ordered,
// transactional key-value store.
//
// Values that grow forever by small mutations (bitmaps, append logs,
// grouped IDs) are expensive to keep in one row: every mutation rewrites
// the whole value. Strata spreads such a value over deterministic shards
// and, inside each shard, over size-bounded segments, so a mutation only
// rewrites one bounded segment. Companion layers add bucketed range
// iteration, bucket-table consolidation, streaming dump/restore and bulk
// copy with verification.
//
// # Layers
//
//   - kv: the base-store contract plus Badger and LevelDB drivers
//   - partition: sharding, segment keys and the rolling write path
//   - bucket: bucketed keys, double-ended range iteration, consolidation
//   - bitmap: a roaring bitmap codec and member-set facade on partition
//   - dump: versioned, compressed, checksummed table dumps
//   - archive: local and object-store homes for dump files
//   - dbcopy: plan-driven bulk copy between stores with verification
//
// # Quick Start
//
//	store, err := badgerdb.Open("./data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db, err := strata.New(store, strata.WithLogLevel(slog.LevelInfo))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	members, err := bitmap.New("members")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = db.Update(func(txn kv.WriteTxn) error {
//	    return members.InsertMany(txn, []byte("group:7"), []uint64{1, 2, 3})
//	})
//
// Reads go through View:
//
//	err = db.View(func(txn kv.ReadTxn) error {
//	    n, err := members.Count(txn, []byte("group:7"))
//	    ...
//	})
//
// The DB is a thin transaction runner; all layout logic lives in the
// layer packages and works on plain kv transactions, with or without a
// DB around them.
package strata
