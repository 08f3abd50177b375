// Package storage defines the object-store interface used by the retention sweep.
package storage

import (
	"context"
	"fmt"
	"time"
)

// Storage defines the object-store operations needed to enforce retention.
type Storage interface {
	// ListPage returns one page of objects under prefix, starting at token.
	// An empty token requests the first page. An empty Page.NextToken marks the last page.
	ListPage(ctx context.Context, bucket, prefix, token string) (*Page, error)

	// DeleteObjects removes keys from bucket. Per-key failures are returned
	// as DeleteErrors; a request-level failure is returned as error.
	DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteError, error)
}

// ObjectInfo contains information about a stored backup.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Page is one listing page.
type Page struct {
	Objects   []ObjectInfo
	NextToken string
}

// DeleteError reports a key the store refused to delete.
type DeleteError struct {
	Key     string `json:"key"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e DeleteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("delete %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("delete %s: %s: %s", e.Key, e.Code, e.Message)
}

// ListAll follows page tokens until the listing is exhausted.
func ListAll(ctx context.Context, s Storage, bucket, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	token := ""
	for pages := 1; ; pages++ {
		page, err := s.ListPage(ctx, bucket, prefix, token)
		if err != nil {
			return nil, fmt.Errorf("failed to list page %d of bucket %s: %w", pages, bucket, err)
		}
		objects = append(objects, page.Objects...)

		if page.NextToken == "" {
			return objects, nil
		}
		if page.NextToken == token {
			return nil, fmt.Errorf("listing of bucket %s did not advance past token %q", bucket, token)
		}
		token = page.NextToken
	}
}
