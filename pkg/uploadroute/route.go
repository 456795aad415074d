package uploadroute

import (
	"context"

	"github.com/tendant/simple-upload/pkg/uploadroute/objectkey"
)

// KeyGeneratorFunc overrides prefix-based key generation for a route. It
// receives the validated file and the accumulated metadata and returns the
// full object key.
type KeyGeneratorFunc func(ctx context.Context, file FileInfo, metadata Metadata) (string, error)

// Route is one named upload endpoint: schema, constraints, ordered
// middleware chain, key generation, and lifecycle hooks. Routes are built
// once at startup via NewRoute and are immutable afterward; the Router
// owns them.
type Route struct {
	name       string
	schema     Schema
	middleware []Middleware
	keyGen     KeyGeneratorFunc
	prefix     string
	hooks      RouteHooks
}

// RouteOption represents a functional option for configuring a route
type RouteOption func(*Route)

// NewRoute creates a route with the given name and schema.
func NewRoute(name string, schema Schema, opts ...RouteOption) *Route {
	r := &Route{
		name:   name,
		schema: schema,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithMaxSize sets the per-file size limit in bytes.
func WithMaxSize(maxSize int64) RouteOption {
	return func(r *Route) {
		r.schema.MaxSize = maxSize
	}
}

// WithAllowedTypes sets the accepted MIME types ("image/*" wildcards allowed).
func WithAllowedTypes(types ...string) RouteOption {
	return func(r *Route) {
		r.schema.AllowedTypes = types
	}
}

// WithAllowedExtensions sets the accepted file extensions.
func WithAllowedExtensions(exts ...string) RouteOption {
	return func(r *Route) {
		r.schema.AllowedExtensions = exts
	}
}

// WithDimensions sets image dimension constraints.
func WithDimensions(d Dimensions) RouteOption {
	return func(r *Route) {
		r.schema.Dimensions = &d
	}
}

// WithMiddleware appends stages to the route's middleware chain. Stages
// execute in registration order.
func WithMiddleware(mw ...Middleware) RouteOption {
	return func(r *Route) {
		r.middleware = append(r.middleware, mw...)
	}
}

// WithKeyGenerator sets an explicit key generator, overriding prefix-only
// key generation for this route.
func WithKeyGenerator(fn KeyGeneratorFunc) RouteOption {
	return func(r *Route) {
		r.keyGen = fn
	}
}

// WithPrefix sets the route's key prefix, joined under the router's global
// prefix.
func WithPrefix(prefix string) RouteOption {
	return func(r *Route) {
		r.prefix = prefix
	}
}

// WithUploadStartHook appends an OnUploadStart hook.
func WithUploadStartHook(hook UploadStartHook) RouteOption {
	return func(r *Route) {
		r.hooks.OnUploadStart = append(r.hooks.OnUploadStart, hook)
	}
}

// WithUploadCompleteHook appends an OnUploadComplete hook.
func WithUploadCompleteHook(hook UploadCompleteHook) RouteOption {
	return func(r *Route) {
		r.hooks.OnUploadComplete = append(r.hooks.OnUploadComplete, hook)
	}
}

// WithUploadErrorHook appends an OnUploadError hook.
func WithUploadErrorHook(hook UploadErrorHook) RouteOption {
	return func(r *Route) {
		r.hooks.OnUploadError = append(r.hooks.OnUploadError, hook)
	}
}

// Name returns the route's registry key.
func (r *Route) Name() string { return r.name }

// Schema returns the route's schema (a copy; routes are immutable).
func (r *Route) Schema() Schema { return r.schema }

// Info returns the introspection view of the route.
func (r *Route) Info() RouteInfo {
	return RouteInfo{
		Name:              r.name,
		Type:              r.schema.Kind,
		MaxSize:           r.schema.MaxSize,
		AllowedTypes:      r.schema.AllowedTypes,
		AllowedExtensions: r.schema.AllowedExtensions,
		Dimensions:        r.schema.Dimensions,
	}
}

// keyPrefix joins the router-wide prefix with the route prefix. The route
// name is used when no explicit route prefix is set.
func (r *Route) keyPrefix(globalPrefix string) string {
	routePrefix := r.prefix
	if routePrefix == "" {
		routePrefix = objectkey.SanitizePathComponent(r.name)
	}
	if globalPrefix == "" {
		return routePrefix
	}
	return globalPrefix + "/" + routePrefix
}
