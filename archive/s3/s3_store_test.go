package s3

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratakv/strata/archive"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg)

	// Create a unique prefix for this test run
	prefix := fmt.Sprintf("test-strata-%d/", time.Now().UnixNano())
	store := NewStore(client, bucket, prefix)

	t.Run("Put and Open", func(t *testing.T) {
		name := "backup.strata"
		data := make([]byte, 1024*1024) // 1MB, spans multipart chunks
		_, err := rand.Read(data)
		require.NoError(t, err)

		err = store.Put(ctx, name, bytes.NewReader(data))
		require.NoError(t, err)

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, names, name)

		rc, err := store.Open(ctx, name)
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, data, got)

		err = store.Remove(ctx, name)
		require.NoError(t, err)

		_, err = store.Open(ctx, name)
		require.ErrorIs(t, err, archive.ErrNotFound)
	})

	t.Run("Open missing", func(t *testing.T) {
		_, err := store.Open(ctx, "does-not-exist")
		require.ErrorIs(t, err, archive.ErrNotFound)
	})
}
