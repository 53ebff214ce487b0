package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureFilesystem stores snapshots as block blobs in an Azure container
type AzureFilesystem struct {
	containerURL azblob.ContainerURL
	accountName  string
	container    string
	prefix       string
}

// NewAzureFilesystem creates a new AzureFilesystem
func NewAzureFilesystem(config *AzureConfig) (*AzureFilesystem, error) {
	if config == nil {
		return nil, storageError("Azure storage configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, storageError("invalid Azure storage configuration", err)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, storageError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, storageError("failed to parse Azure service URL", err)
	}

	return &AzureFilesystem{
		containerURL: azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		accountName:  config.AccountName,
		container:    config.ContainerName,
		prefix:       config.Prefix,
	}, nil
}

// MkdirAll is a no-op; blob containers are flat
func (a *AzureFilesystem) MkdirAll(ctx context.Context, dir string) error {
	return nil
}

func (a *AzureFilesystem) Exists(ctx context.Context, p string) (bool, error) {
	key := objectKey(a.prefix, p)
	files, err := a.list(ctx, key, 1)
	if err != nil {
		return false, err
	}
	dirs, err := a.list(ctx, dirPrefix(key), 1)
	if err != nil {
		return false, err
	}
	return existsIn(key, append(files, dirs...)), nil
}

func (a *AzureFilesystem) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	prefix := dirPrefix(objectKey(a.prefix, dir))
	objects, err := a.list(ctx, prefix, 0)
	if err != nil {
		return nil, err
	}
	return directChildren(prefix, objects), nil
}

func (a *AzureFilesystem) WriteFile(ctx context.Context, p string, data []byte) error {
	blobURL := a.containerURL.NewBlockBlobURL(objectKey(a.prefix, p))

	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 4,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: "application/json",
		},
	})
	if err != nil {
		return storageError("failed to upload "+p+" to Azure", err)
	}
	return nil
}

func (a *AzureFilesystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	blobURL := a.containerURL.NewBlobURL(objectKey(a.prefix, p))

	downloadResponse, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, storageError("failed to download "+p+" from Azure", err)
	}

	bodyStream := downloadResponse.Body(azblob.RetryReaderOptions{MaxRetryRequests: 20})
	defer bodyStream.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, bodyStream); err != nil {
		return nil, storageError("failed to read "+p+" from Azure", err)
	}
	return buf.Bytes(), nil
}

func (a *AzureFilesystem) Remove(ctx context.Context, p string) error {
	blobURL := a.containerURL.NewBlobURL(objectKey(a.prefix, p))
	if _, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{}); err != nil {
		return storageError("failed to delete "+p+" from Azure", err)
	}
	return nil
}

func (a *AzureFilesystem) Location(p string) string {
	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s", a.accountName, a.container, objectKey(a.prefix, p))
}

func (a *AzureFilesystem) Close() error {
	return nil
}

// list returns blobs under prefix; limit 0 means all
func (a *AzureFilesystem) list(ctx context.Context, prefix string, limit int) ([]objectInfo, error) {
	options := azblob.ListBlobsSegmentOptions{Prefix: prefix}
	if limit > 0 {
		options.MaxResults = int32(limit)
	}

	var objects []objectInfo
	for marker := (azblob.Marker{}); marker.NotDone(); {
		listResponse, err := a.containerURL.ListBlobsFlatSegment(ctx, marker, options)
		if err != nil {
			return nil, storageError("failed to list Azure blobs", err)
		}

		for _, blob := range listResponse.Segment.BlobItems {
			info := objectInfo{Key: blob.Name, ModTime: blob.Properties.LastModified}
			if blob.Properties.ContentLength != nil {
				info.Size = *blob.Properties.ContentLength
			}
			objects = append(objects, info)
		}

		if limit > 0 && len(objects) >= limit {
			break
		}
		marker = listResponse.NextMarker
	}
	return objects, nil
}
