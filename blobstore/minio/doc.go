// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and any S3-compatible system (Ceph, SeaweedFS, Garage)
// without pulling in the AWS SDK.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "bim", "models/")
//	db, err := bimtree.Open(ctx, bimtree.Remote(store))
//
// Each component record is one object; a model is an object key prefix.
// DeletePrefix lists the model first and removes it with one batch request.
package minio
