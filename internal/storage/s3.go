package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3Filesystem stores snapshots as objects in an S3 bucket
type S3Filesystem struct {
	client s3iface.S3API
	bucket string
	prefix string
}

// NewS3Filesystem creates a new S3Filesystem
func NewS3Filesystem(config *S3Config) (*S3Filesystem, error) {
	if config == nil {
		return nil, storageError("S3 storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, storageError("invalid S3 storage configuration", err)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(config.ForcePathStyle)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, storageError("failed to create AWS session", err)
	}

	return NewS3FilesystemWithClient(s3.New(sess), config.Bucket, config.Prefix), nil
}

// NewS3FilesystemWithClient uses a caller-supplied client
func NewS3FilesystemWithClient(client s3iface.S3API, bucket, prefix string) *S3Filesystem {
	return &S3Filesystem{client: client, bucket: bucket, prefix: prefix}
}

// MkdirAll is a no-op; object stores have no directories
func (s *S3Filesystem) MkdirAll(ctx context.Context, dir string) error {
	return nil
}

func (s *S3Filesystem) Exists(ctx context.Context, p string) (bool, error) {
	key := objectKey(s.prefix, p)
	// an exact key sorts first among keys sharing it as a prefix
	files, err := s.list(ctx, key, 1)
	if err != nil {
		return false, err
	}
	dirs, err := s.list(ctx, dirPrefix(key), 1)
	if err != nil {
		return false, err
	}
	return existsIn(key, append(files, dirs...)), nil
}

func (s *S3Filesystem) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	prefix := dirPrefix(objectKey(s.prefix, dir))
	objects, err := s.list(ctx, prefix, 0)
	if err != nil {
		return nil, err
	}
	return directChildren(prefix, objects), nil
}

func (s *S3Filesystem) WriteFile(ctx context.Context, p string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(s.prefix, p)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return storageError("failed to upload "+p+" to S3", err)
	}
	return nil
}

func (s *S3Filesystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, p)),
	})
	if err != nil {
		return nil, storageError("failed to download "+p+" from S3", err)
	}
	defer result.Body.Close()

	return io.ReadAll(result.Body)
}

func (s *S3Filesystem) Remove(ctx context.Context, p string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(s.prefix, p)),
	})
	if err != nil {
		return storageError("failed to delete "+p+" from S3", err)
	}
	return nil
}

func (s *S3Filesystem) Location(p string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, objectKey(s.prefix, p))
}

func (s *S3Filesystem) Close() error {
	return nil
}

// list returns objects under prefix; limit 0 means all
func (s *S3Filesystem) list(ctx context.Context, prefix string, limit int) ([]objectInfo, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}
	if limit > 0 {
		input.MaxKeys = aws.Int64(int64(limit))
	}

	var objects []objectInfo
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			objects = append(objects, objectInfo{
				Key:     aws.StringValue(obj.Key),
				Size:    aws.Int64Value(obj.Size),
				ModTime: aws.TimeValue(obj.LastModified),
			})
		}
		return limit == 0 || len(objects) < limit
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchBucket {
			return nil, storageError("S3 bucket "+s.bucket+" does not exist", err)
		}
		return nil, storageError("failed to list S3 objects", err)
	}
	return objects, nil
}
