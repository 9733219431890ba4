package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	egressconfig "egress/internal/config"
)

// azureStore stores blobs in one Azure Blob Storage container under
// cfg.CloudPrefix/key.
type azureStore struct {
	client    *azblob.Client
	container string
	prefix    string
}

func newAzureStore(_ context.Context, cfg egressconfig.StorageConfig) (*azureStore, error) {
	if cfg.Azure.ContainerName == "" {
		return nil, errors.New("blob: azure backend requires storage.azure.container_name")
	}

	var client *azblob.Client
	var err error
	switch {
	case cfg.Azure.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.Azure.ConnectionString, nil)
	case cfg.Azure.AccountName != "" && cfg.Azure.AccountKey != "":
		cred, credErr := azblob.NewSharedKeyCredential(cfg.Azure.AccountName, cfg.Azure.AccountKey)
		if credErr != nil {
			return nil, fmt.Errorf("blob: azure shared key credential: %w", credErr)
		}
		url := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Azure.AccountName)
		client, err = azblob.NewClientWithSharedKeyCredential(url, cred, nil)
	default:
		return nil, errors.New("blob: azure backend requires connection_string or account_name+account_key")
	}
	if err != nil {
		return nil, fmt.Errorf("blob: new azure client: %w", err)
	}

	return &azureStore{client: client, container: cfg.Azure.ContainerName, prefix: cfg.CloudPrefix}, nil
}

func (s *azureStore) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *azureStore) Put(ctx context.Context, key string, r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("blob: read azure payload: %w", err)
	}
	_, err = s.client.UploadBuffer(ctx, s.container, s.key(key), buf, nil)
	if err != nil {
		return fmt.Errorf("blob: put %s: %w", key, err)
	}
	return nil
}

func (s *azureStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.key(key), nil)
	if err != nil {
		return nil, fmt.Errorf("blob: get %s: %w", key, err)
	}
	return resp.Body, nil
}

func (s *azureStore) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if _, err := s.client.DeleteBlob(ctx, s.container, s.key(key), nil); err != nil {
		return fmt.Errorf("blob: delete %s: %w", key, err)
	}
	return nil
}

func (s *azureStore) Exists(ctx context.Context, key string) (bool, error) {
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: to.Ptr(s.key(key)),
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("blob: list %s: %w", key, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil && *item.Name == s.key(key) {
				return true, nil
			}
		}
	}
	return false, nil
}
