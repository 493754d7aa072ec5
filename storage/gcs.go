package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader stores files in a Google Cloud Storage bucket with public read access
type GCSUploader struct {
	client     *storage.Client
	bucketName string
}

func NewGCSUploader(ctx context.Context, bucketName, credentialsPath string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucketName: bucketName}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, file io.Reader, contentType, folder string) (string, error) {
	name := objectName(folder, contentType)

	obj := u.client.Bucket(u.bucketName).Object(name)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"

	if _, err := io.Copy(wc, file); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}
	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set ACL: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucketName, name), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
