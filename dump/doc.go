// Package dump streams the contents of a store's tables into a single
// versioned file and back.
//
// Dump walks each selected table inside one read transaction, so the file
// is a consistent snapshot; Restore replays it into one write transaction
// and refuses to start when any destination table already holds rows (same
// conflict semantics as package dbcopy). Every table section ends with an
// entry count and an XXH3 digest that Restore verifies.
//
// The stream after the 8-byte header is compressed with one of four codecs
// (none, snappy, lz4, zstd); the header records which.
//
//	var buf bytes.Buffer
//	err := dump.Dump(&buf, rtxn, func(o *dump.Options) {
//		o.Compression = dump.Zstd
//	})
//	...
//	err = dump.Restore(&buf, wtxn)
//
// A restore runs in the caller's single write transaction. Stores that cap
// transaction size (badger) cap the restorable dump size with it.
package dump
