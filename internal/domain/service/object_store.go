package service

import (
	"context"
	"io"
	"time"
)

// ObjectStore keeps media blobs and hands out URLs to them.
type ObjectStore interface {
	// Upload writes r to objectPath and returns its download URL.
	Upload(ctx context.Context, r io.Reader, objectPath, contentType string) (string, error)
	// Delete removes the object behind a URL returned by Upload.
	Delete(ctx context.Context, url string) error
	SignedUploadURL(ctx context.Context, objectPath, contentType string, expires time.Duration) (string, error)
	Close() error
}
