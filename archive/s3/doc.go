// Package s3 provides an S3 implementation of the archive.Store interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := s3archive.NewStore(s3.NewFromConfig(cfg), "my-bucket", "backups/")
//	err = store.Put(ctx, "2024-01-02.strata", &buf)
//
// # Features
//
//   - Multipart uploads for large archives
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
