package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"snappin/pkg/errors"
	"snappin/pkg/logger"
)

const publicHost = "https://storage.googleapis.com/"

// CloudStorageClient keeps chat media in one GCS bucket.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	storageClient := &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}

	if err := storageClient.setBucketCORS(ctx); err != nil {
		logger.Warn("Failed to set CORS configuration on %s: %v", bucketName, err)
	}

	return storageClient, nil
}

// setBucketCORS lets browsers PUT to signed upload URLs.
func (c *CloudStorageClient) setBucketCORS(ctx context.Context) error {
	bucket := c.client.Bucket(c.bucketName)

	attrs, err := bucket.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}
	if len(attrs.CORS) > 0 {
		return nil
	}

	_, err = bucket.Update(ctx, storage.BucketAttrsToUpdate{
		CORS: []storage.CORS{{
			MaxAge:          time.Hour,
			Methods:         []string{"GET", "PUT", "OPTIONS"},
			Origins:         []string{"*"},
			ResponseHeaders: []string{"Content-Type", "x-goog-resumable"},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to update bucket CORS: %v", err)
	}
	return nil
}

func (c *CloudStorageClient) Upload(ctx context.Context, r io.Reader, objectPath, contentType string) (string, error) {
	obj := c.client.Bucket(c.bucketName).Object(objectPath)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	return c.publicURL(objectPath), nil
}

func (c *CloudStorageClient) publicURL(objectPath string) string {
	return publicHost + c.bucketName + "/" + (&url.URL{Path: objectPath}).EscapedPath()
}

// objectName extracts the object path from a URL returned by Upload.
func (c *CloudStorageClient) objectName(fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, publicHost) {
		return "", errors.Validation("Not a storage URL")
	}
	rest := strings.TrimPrefix(fileURL, publicHost)
	bucket, escaped, ok := strings.Cut(rest, "/")
	if !ok || bucket != c.bucketName || escaped == "" {
		return "", errors.Validation("Storage URL does not belong to this bucket")
	}
	name, err := url.PathUnescape(escaped)
	if err != nil {
		return "", errors.Validation("Malformed storage URL")
	}
	return name, nil
}

func (c *CloudStorageClient) Delete(ctx context.Context, fileURL string) error {
	name, err := c.objectName(fileURL)
	if err != nil {
		return err
	}

	if err := c.client.Bucket(c.bucketName).Object(name).Delete(ctx); err != nil {
		if stderrors.Is(err, storage.ErrObjectNotExist) {
			return errors.NotFound("Media", err)
		}
		return fmt.Errorf("failed to delete file: %v", err)
	}
	return nil
}

func (c *CloudStorageClient) SignedUploadURL(ctx context.Context, objectPath, contentType string, expires time.Duration) (string, error) {
	signed, err := c.client.Bucket(c.bucketName).SignedURL(objectPath, &storage.SignedURLOptions{
		Method:      http.MethodPut,
		ContentType: contentType,
		Expires:     time.Now().Add(expires),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %v", err)
	}
	return signed, nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
