// Package archive stores named dump archives outside the database.
//
// The Store interface abstracts over storage backends. A local file
// system backend lives in this package; object store backends for
// S3 and MinIO live in the archive/s3 and archive/minio subpackages.
//
// A typical flow dumps a store into an archive and restores it later:
//
//	var buf bytes.Buffer
//	err := db.View(func(txn kv.ReadTxn) error {
//		return dump.Dump(&buf, txn)
//	})
//	...
//	err = archives.Put(ctx, "backups/2024-01-02.strata", &buf)
package archive
