package uploadroute

import (
	"time"
)

// SchemaKind is the domain type for the shape of files a route accepts.
type SchemaKind string

// Schema kind constants (typed).
const (
	SchemaKindFile   SchemaKind = "file"
	SchemaKindImage  SchemaKind = "image"
	SchemaKindObject SchemaKind = "object"
	SchemaKindArray  SchemaKind = "array"
)

// FileInfo describes a file as declared by the client. It is untrusted
// input: every field must pass the route's constraints before any storage
// operation happens.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
}

// Dimensions constrains image width/height. Zero values mean unconstrained.
// The server never sees the bytes before the direct transfer, so dimension
// limits are advertised through introspection and enforced client-side.
type Dimensions struct {
	MinWidth  int `json:"min_width,omitempty"`
	MaxWidth  int `json:"max_width,omitempty"`
	MinHeight int `json:"min_height,omitempty"`
	MaxHeight int `json:"max_height,omitempty"`
}

// Metadata is the per-file metadata bag threaded through the middleware
// chain. Middleware patches accumulate into it; later stages see earlier
// enrichments.
type Metadata map[string]interface{}

// Clone returns a shallow copy so one file's middleware chain never mutates
// a sibling's view of the client metadata.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge applies patch on top of m, overwriting existing keys.
func (m Metadata) Merge(patch Metadata) {
	for k, v := range patch {
		m[k] = v
	}
}

// PresignResult is the per-file outcome of a presign call. Output order
// always matches input order; a failed file carries Error and nothing else.
type PresignResult struct {
	Success      bool     `json:"success"`
	Key          string   `json:"key,omitempty"`
	PresignedURL string   `json:"presignedUrl,omitempty"`
	Error        string   `json:"error,omitempty"`
	Metadata     Metadata `json:"metadata,omitempty"`
}

// UploadCompletion is the client's claim that a direct transfer finished.
// It is not proof the bytes are in the bucket; the registry resolves the
// object through the Provider before firing completion hooks.
type UploadCompletion struct {
	Key      string   `json:"key"`
	File     FileInfo `json:"file"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// CompletionResult is the per-completion outcome of a complete call.
type CompletionResult struct {
	Success bool   `json:"success"`
	Key     string `json:"key,omitempty"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RouteInfo is the introspection view of a registered route.
type RouteInfo struct {
	Name              string      `json:"name"`
	Type              SchemaKind  `json:"type"`
	MaxSize           int64       `json:"max_size,omitempty"`
	AllowedTypes      []string    `json:"allowed_types,omitempty"`
	AllowedExtensions []string    `json:"allowed_extensions,omitempty"`
	Dimensions        *Dimensions `json:"dimensions,omitempty"`
}

// ObjectMeta contains metadata about an object resolved through a Provider.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// PresignObjectParams carries everything a Provider needs to mint an upload URL.
type PresignObjectParams struct {
	Key         string
	ContentType string
	Size        int64
}
