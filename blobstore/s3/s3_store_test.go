package s3

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bimtree/blobstore"
)

func TestIntegration_S3Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}

	ctx := context.Background()
	opts := []Option{WithPrefix(fmt.Sprintf("test-bimtree-%d/", time.Now().UnixNano()))}
	if ep := os.Getenv("S3_ENDPOINT"); ep != "" {
		opts = append(opts, WithEndpoint(ep), WithPathStyle(true))
	}
	store, err := New(ctx, bucket, opts...)
	require.NoError(t, err)
	defer func() { _ = store.DeletePrefix(ctx, "") }()

	require.NoError(t, store.Put(ctx, "M1/e1_a.json", []byte(`{"componentGuid":"a"}`)))
	require.NoError(t, store.Put(ctx, "M10/e1_b.json", []byte(`{"componentGuid":"b"}`)))

	data, err := blobstore.Get(ctx, store, "M1/e1_a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"componentGuid":"a"}`, string(data))

	names, err := store.List(ctx, "M1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"M1/e1_a.json"}, names)

	require.NoError(t, store.DeletePrefix(ctx, "M1/"))
	_, err = store.Open(ctx, "M1/e1_a.json")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
