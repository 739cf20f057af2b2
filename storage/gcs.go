package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
)

const uploadTimeout = 50 * time.Second

// GCS stores objects in a Google Cloud Storage bucket. Credentials come from
// GOOGLE_APPLICATION_CREDENTIALS or the ambient environment.
type GCS struct {
	cl         *gcs.Client
	bucketName string
	publicBase string
}

func NewGCS(ctx context.Context, bucketName, publicBase string) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{cl: client, bucketName: bucketName, publicBase: publicBase}, nil
}

func (g *GCS) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	wc := g.cl.Bucket(g.bucketName).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, bytes.NewReader(data)); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close: %w", err)
	}

	return publicURL(g.publicBase, g.bucketName, key), nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.cl.Bucket(g.bucketName).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.cl.Close()
}
