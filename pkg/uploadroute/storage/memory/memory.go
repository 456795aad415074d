package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-upload/pkg/uploadroute"
)

// Backend is an in-memory implementation of the uploadroute.Provider
// interface, intended for tests and local development. Presigned URLs are
// synthetic paths under BaseURL; pair it with an HTTP handler (or Put
// directly) to simulate the direct-transfer leg.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
	baseURL string
}

// New creates a new in-memory provider. baseURL prefixes every URL the
// provider hands out (e.g. a httptest server URL).
func New(baseURL string) *Backend {
	return &Backend{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		baseURL: baseURL,
	}
}

// PresignUpload returns a synthetic upload URL for the object key.
func (b *Backend) PresignUpload(ctx context.Context, params uploadroute.PresignObjectParams) (string, error) {
	if params.Key == "" {
		return "", errors.New("object key is required")
	}
	b.mu.Lock()
	if params.ContentType != "" {
		b.types[params.Key] = params.ContentType
	}
	b.mu.Unlock()
	return b.baseURL + "/upload/" + params.Key, nil
}

// ObjectURL returns the access URL for a stored object.
func (b *Backend) ObjectURL(ctx context.Context, objectKey string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[objectKey]; !exists {
		return "", errors.New("object not found")
	}
	return b.baseURL + "/objects/" + objectKey, nil
}

// ObjectMeta retrieves metadata for a stored object.
func (b *Backend) ObjectMeta(ctx context.Context, objectKey string) (*uploadroute.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	contentType := b.types[objectKey]
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &uploadroute.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: contentType,
		UpdatedAt:   time.Now().UTC(),
		Metadata:    map[string]string{"content_type": contentType},
	}, nil
}

// Put stores object bytes directly, standing in for the direct transfer.
func (b *Backend) Put(objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	if _, exists := b.types[objectKey]; !exists {
		b.types[objectKey] = "application/octet-stream"
	}
	return nil
}

// Get returns a reader over a stored object.
func (b *Backend) Get(objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
