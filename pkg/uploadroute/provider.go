package uploadroute

import "context"

// Provider defines the interface to the concrete storage backend. The core
// treats it as opaque: it mints presigned upload URLs and resolves objects
// after the client claims a transfer finished.
type Provider interface {
	// PresignUpload returns a time-limited URL authorizing one direct PUT
	// of the described object.
	PresignUpload(ctx context.Context, params PresignObjectParams) (string, error)

	// ObjectURL returns the access URL for a stored object.
	ObjectURL(ctx context.Context, objectKey string) (string, error)

	// ObjectMeta retrieves metadata for a stored object.
	ObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}
