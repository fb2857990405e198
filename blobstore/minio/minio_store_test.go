package minio

import (
	"context"
	"os"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bimtree/blobstore"
)

func TestKeys(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds: credentials.NewStaticV4("k", "s", ""),
	})
	require.NoError(t, err)

	for _, root := range []string{"models", "models/", "/models/"} {
		s := NewStore(client, "bim", root)
		assert.Equal(t, "models/M1/e1_a.json", s.key("M1/e1_a.json"))
		assert.Equal(t, "models/M1/", s.key("M1/"))
		assert.Equal(t, "M1/e1_a.json", s.name("models/M1/e1_a.json"))
	}

	s := NewStore(client, "bim", "")
	assert.Equal(t, "M1/", s.key("M1/"))
	assert.Equal(t, "http://localhost:9000/bim/M1/e1_a.json", s.Location("M1/e1_a.json"))
	assert.ErrorIs(t, s.Put(context.Background(), "../x", nil), blobstore.ErrInvalidName)
	assert.Empty(t, s.putOptions().ContentType)
}

// TestMinioStore_Integration requires a running MinIO instance
// (BIMTREE_MINIO_ENDPOINT, default localhost:9000). Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("BIMTREE_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := "test-bimtree"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err = client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "it/")
	require.NoError(t, store.DeletePrefix(ctx, ""))

	require.NoError(t, store.Put(ctx, "M1/e1_a.json", []byte(`{"componentGuid":"a"}`)))
	require.NoError(t, store.Put(ctx, "M10/e1_b.json", []byte(`{"componentGuid":"b"}`)))

	data, err := blobstore.Get(ctx, store, "M1/e1_a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"componentGuid":"a"}`, string(data))

	names, err := store.List(ctx, "M1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"M1/e1_a.json"}, names)

	_, err = store.Open(ctx, "M1/missing.json")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, blobstore.DeletePrefix(ctx, store, "M1/"))
	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"M10/e1_b.json"}, names)

	require.NoError(t, store.Delete(ctx, "M10/e1_b.json"))
	require.NoError(t, store.Delete(ctx, "M10/e1_b.json"))
}
