package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSWriter stores objects in a Cloud Storage bucket.
type GCSWriter struct {
	client     *storage.Client
	bucketName string
}

// NewGCSWriter creates a Cloud Storage client for bucketName.
func NewGCSWriter(ctx context.Context, bucketName string) (*GCSWriter, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSWriter{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Write uploads data to objectPath and returns its gs:// URI.
func (g *GCSWriter) Write(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	obj := g.client.Bucket(g.bucketName).Object(objectPath)

	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "no-cache"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return "", fmt.Errorf("failed to write to storage: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", g.bucketName, objectPath), nil
}

// Close closes the storage client.
func (g *GCSWriter) Close() error {
	return g.client.Close()
}
