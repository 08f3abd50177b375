package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGCSPageSize = 1000

// GCSStorage implements Storage interface for Google Cloud Storage.
type GCSStorage struct {
	client   *storage.Client
	pageSize int
}

// GCSConfig holds GCS-specific configuration.
type GCSConfig struct {
	ServiceAccountJSON string
	PageSize           int
}

// NewGCSStorage creates a new GCS storage provider.
func NewGCSStorage(ctx context.Context, cfg GCSConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultGCSPageSize
	}

	return &GCSStorage{
		client:   client,
		pageSize: pageSize,
	}, nil
}

// ListPage implements Storage.ListPage.
func (g *GCSStorage) ListPage(ctx context.Context, bucket, prefix, token string) (*Page, error) {
	query := &storage.Query{Prefix: prefix}
	if err := query.SetAttrSelection([]string{"Name", "Size", "Updated"}); err != nil {
		return nil, fmt.Errorf("failed to build GCS query: %w", err)
	}

	it := g.client.Bucket(bucket).Objects(ctx, query)
	var attrs []*storage.ObjectAttrs
	next, err := iterator.NewPager(it, g.pageSize, token).NextPage(&attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to list GCS objects: %w", err)
	}

	page := &Page{
		Objects:   make([]ObjectInfo, 0, len(attrs)),
		NextToken: next,
	}
	for _, a := range attrs {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          a.Name,
			Size:         a.Size,
			LastModified: a.Updated,
		})
	}

	return page, nil
}

// DeleteObjects implements Storage.DeleteObjects.
// The GCS client has no batch delete, so objects are removed one at a time.
func (g *GCSStorage) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteError, error) {
	var failures []DeleteError
	handle := g.client.Bucket(bucket)

	for _, key := range keys {
		err := handle.Object(key).Delete(ctx)
		switch {
		case err == nil, errors.Is(err, storage.ErrObjectNotExist):
			continue
		case ctx.Err() != nil:
			return failures, fmt.Errorf("failed to delete from GCS: %w", ctx.Err())
		}

		failure := DeleteError{Key: key, Message: err.Error()}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			failure.Code = strconv.Itoa(apiErr.Code)
			failure.Message = apiErr.Message
		}
		failures = append(failures, failure)
	}

	return failures, nil
}

// Close closes the GCS client connection.
func (g *GCSStorage) Close() error {
	return g.client.Close()
}

// ValidateServiceAccountJSON validates the service account JSON string.
func ValidateServiceAccountJSON(jsonStr string) error {
	var sa struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal([]byte(jsonStr), &sa); err != nil {
		return fmt.Errorf("invalid service account JSON: %w", err)
	}

	if sa.Type != "service_account" {
		return fmt.Errorf("invalid service account type: %s", sa.Type)
	}

	return nil
}
