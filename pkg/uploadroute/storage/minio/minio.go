// Package minio implements the uploadroute.Provider interface on top of
// the MinIO client. It works with any S3-compatible object store given
// the right endpoint and credentials.
package minio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tendant/simple-upload/pkg/uploadroute"
)

// Config options for the MinIO provider
type Config struct {
	Endpoint        string // host:port of the object store
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	PresignDuration int // Duration in seconds for presigned URLs (default: 3600)

	// PublicBaseURL, when set, is used for object access URLs instead of
	// presigned GETs (e.g. "http://localhost:9000/uploads" or a CDN base).
	PublicBaseURL string
}

// Backend is a MinIO implementation of the uploadroute.Provider interface
type Backend struct {
	client          *minio.Client
	bucket          string
	presignDuration time.Duration
	publicBaseURL   string
}

// New creates a MinIO client and returns a ready-to-use provider.
func New(config Config) (uploadroute.Provider, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.PresignDuration == 0 {
		config.PresignDuration = 3600
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Backend{
		client:          client,
		bucket:          config.Bucket,
		presignDuration: time.Duration(config.PresignDuration) * time.Second,
		publicBaseURL:   strings.TrimRight(config.PublicBaseURL, "/"),
	}, nil
}

// PresignUpload returns a presigned PUT URL for the object key.
func (b *Backend) PresignUpload(ctx context.Context, params uploadroute.PresignObjectParams) (string, error) {
	u, err := b.client.PresignedPutObject(ctx, b.bucket, params.Key, b.presignDuration)
	if err != nil {
		return "", fmt.Errorf("presign put object %q: %w", params.Key, err)
	}
	return u.String(), nil
}

// ObjectURL returns the access URL for a stored object: a public URL when
// PublicBaseURL is configured, otherwise a presigned GET.
func (b *Backend) ObjectURL(ctx context.Context, objectKey string) (string, error) {
	if b.publicBaseURL != "" {
		return b.publicBaseURL + "/" + objectKey, nil
	}

	u, err := b.client.PresignedGetObject(ctx, b.bucket, objectKey, b.presignDuration, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get object %q: %w", objectKey, err)
	}
	return u.String(), nil
}

// ObjectMeta retrieves metadata for an object via StatObject.
func (b *Backend) ObjectMeta(ctx context.Context, objectKey string) (*uploadroute.ObjectMeta, error) {
	info, err := b.client.StatObject(ctx, b.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, errors.New("object not found")
		}
		return nil, fmt.Errorf("stat object %q: %w", objectKey, err)
	}

	metadata := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		metadata[k] = v
	}

	return &uploadroute.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size,
		ContentType: info.ContentType,
		UpdatedAt:   info.LastModified,
		ETag:        strings.Trim(info.ETag, "\""),
		Metadata:    metadata,
	}, nil
}
