// Package minio provides an archive.Store implementation using the MinIO client.
//
// MinIO is a high-performance, S3-compatible object storage system. This
// package uses the official MinIO Go client library for compatibility with
// MinIO and other S3-compatible systems like Ceph, SeaweedFS, and Garage.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioarchive.NewStore(client, "my-bucket", "backups/")
//	err = store.Put(ctx, "2024-01-02.strata", &buf)
package minio
