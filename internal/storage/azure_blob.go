package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"go.uber.org/zap"
)

// AzureBlobStorage reads from Azure Blob Storage and issues read-only SAS links
type AzureBlobStorage struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewAzureBlobStorage creates a new Azure Blob Storage instance.
// The connection string must carry an account key for SAS signing.
func NewAzureBlobStorage(ctx context.Context, connectionString, containerName string, logger *zap.Logger) (*AzureBlobStorage, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	_, err = client.CreateContainer(ctx, containerName, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	logger.Info("Azure Blob Storage initialized", zap.String("container", containerName))
	return newAzureBlobStorage(client, containerName, logger), nil
}

func newAzureBlobStorage(client *azblob.Client, containerName string, logger *zap.Logger) *AzureBlobStorage {
	return &AzureBlobStorage{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}
}

// Open streams a blob
func (s *AzureBlobStorage) Open(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.containerName, storagePath, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return resp.Body, nil
}

// PresignURL returns a read-only SAS URL for the blob
func (s *AzureBlobStorage) PresignURL(ctx context.Context, storagePath string, ttl time.Duration) (string, error) {
	blobClient := s.client.ServiceClient().
		NewContainerClient(s.containerName).
		NewBlobClient(strings.TrimLeft(storagePath, "/"))

	url, err := blobClient.GetSASURL(sas.BlobPermissions{Read: true}, time.Now().UTC().Add(ttl), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create SAS URL: %w", err)
	}

	s.logger.Debug("Issued blob SAS URL",
		zap.String("blobName", storagePath),
		zap.String("container", s.containerName),
		zap.Duration("ttl", ttl),
	)
	return url, nil
}
