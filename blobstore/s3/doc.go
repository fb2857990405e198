// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("models/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//	db, err := bimtree.Open(ctx, bimtree.Remote(store))
//
// Records are written through the SDK upload manager with CRC32C checksums,
// listing is paginated, and DeletePrefix removes a model with batched
// DeleteObjects calls after the whole model has been listed.
//
// WithEndpoint and WithPathStyle point the store at S3-compatible services
// (LocalStack, Ceph RGW).
package s3
