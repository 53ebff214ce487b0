package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSFilesystem stores snapshots as objects in a Google Cloud Storage bucket
type GCSFilesystem struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSFilesystem creates a new GCSFilesystem
func NewGCSFilesystem(ctx context.Context, config *GCSConfig) (*GCSFilesystem, error) {
	if config == nil {
		return nil, storageError("GCS storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, storageError("invalid GCS storage configuration", err)
	}

	var opts []option.ClientOption
	switch {
	case config.Endpoint != "":
		opts = append(opts, option.WithEndpoint(config.Endpoint), option.WithoutAuthentication())
	case config.CredentialsPath != "":
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, storageError("failed to create GCS client", err)
	}

	return &GCSFilesystem{
		client:     client,
		bucketName: config.Bucket,
		prefix:     config.Prefix,
	}, nil
}

// MkdirAll is a no-op; buckets are flat
func (g *GCSFilesystem) MkdirAll(ctx context.Context, dir string) error {
	return nil
}

func (g *GCSFilesystem) Exists(ctx context.Context, p string) (bool, error) {
	key := objectKey(g.prefix, p)
	files, err := g.list(ctx, key, 1)
	if err != nil {
		return false, err
	}
	dirs, err := g.list(ctx, dirPrefix(key), 1)
	if err != nil {
		return false, err
	}
	return existsIn(key, append(files, dirs...)), nil
}

func (g *GCSFilesystem) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	prefix := dirPrefix(objectKey(g.prefix, dir))
	objects, err := g.list(ctx, prefix, 0)
	if err != nil {
		return nil, err
	}
	return directChildren(prefix, objects), nil
}

// WriteFile uploads data in one object write; the object appears only when Close succeeds
func (g *GCSFilesystem) WriteFile(ctx context.Context, p string, data []byte) error {
	object := g.client.Bucket(g.bucketName).Object(objectKey(g.prefix, p))

	writer := object.NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return storageError("failed to upload "+p+" to GCS", err)
	}
	if err := writer.Close(); err != nil {
		return storageError("failed to finalize "+p+" in GCS", err)
	}
	return nil
}

func (g *GCSFilesystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	reader, err := g.client.Bucket(g.bucketName).Object(objectKey(g.prefix, p)).NewReader(ctx)
	if err != nil {
		return nil, storageError("failed to download "+p+" from GCS", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, storageError("failed to read "+p+" from GCS", err)
	}
	return data, nil
}

func (g *GCSFilesystem) Remove(ctx context.Context, p string) error {
	if err := g.client.Bucket(g.bucketName).Object(objectKey(g.prefix, p)).Delete(ctx); err != nil {
		return storageError("failed to delete "+p+" from GCS", err)
	}
	return nil
}

func (g *GCSFilesystem) Location(p string) string {
	return fmt.Sprintf("gs://%s/%s", g.bucketName, objectKey(g.prefix, p))
}

func (g *GCSFilesystem) Close() error {
	return g.client.Close()
}

// list returns objects under prefix; limit 0 means all
func (g *GCSFilesystem) list(ctx context.Context, prefix string, limit int) ([]objectInfo, error) {
	it := g.client.Bucket(g.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})

	var objects []objectInfo
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if err == storage.ErrBucketNotExist {
				return nil, storageError("GCS bucket "+g.bucketName+" does not exist", err)
			}
			return nil, storageError("failed to list GCS objects", err)
		}

		objects = append(objects, objectInfo{Key: attrs.Name, Size: attrs.Size, ModTime: attrs.Updated})
		if limit > 0 && len(objects) >= limit {
			break
		}
	}
	return objects, nil
}
