package uploadroute

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-upload/pkg/uploadroute/objectkey"
)

// Router is the registry of named upload routes. It exposes the two server
// operations: presigned URL generation and upload completion. The route
// table is read-only after New returns, so one Router is safe for
// concurrent use across requests.
type Router struct {
	routes         map[string]*Route
	dupRoute       string
	provider       Provider
	keyGen         objectkey.Generator
	globalPrefix   string
	logger         *slog.Logger
	maxConcurrency int
}

// Option represents a functional option for configuring the router
type Option func(*Router)

// WithProvider sets the storage provider used to mint presigned URLs and
// resolve objects.
func WithProvider(p Provider) Option {
	return func(r *Router) {
		r.provider = p
	}
}

// WithRoutes registers routes. Route names must be unique; New fails on
// duplicates.
func WithRoutes(routes ...*Route) Option {
	return func(r *Router) {
		for _, route := range routes {
			if _, exists := r.routes[route.name]; exists {
				r.dupRoute = route.name
				continue
			}
			r.routes[route.name] = route
		}
	}
}

// WithObjectKeyGenerator sets the key generation strategy used in
// prefix-only mode. Defaults to the sharded generator.
func WithObjectKeyGenerator(gen objectkey.Generator) Option {
	return func(r *Router) {
		r.keyGen = gen
	}
}

// WithGlobalPrefix sets a prefix prepended to every generated key.
func WithGlobalPrefix(prefix string) Option {
	return func(r *Router) {
		r.globalPrefix = strings.Trim(prefix, "/")
	}
}

// WithLogger sets the logger for hook and provider failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithMaxConcurrency bounds how many files of one batch presign in
// parallel. Defaults to 8.
func WithMaxConcurrency(n int) Option {
	return func(r *Router) {
		r.maxConcurrency = n
	}
}

// New creates a router from the given options. A provider and at least one
// route are required.
func New(options ...Option) (*Router, error) {
	r := &Router{
		routes:         make(map[string]*Route),
		keyGen:         objectkey.NewRecommendedGenerator(),
		logger:         slog.Default(),
		maxConcurrency: 8,
	}

	for _, option := range options {
		option(r)
	}

	if r.provider == nil {
		return nil, ErrNoProvider
	}
	if r.dupRoute != "" {
		return nil, fmt.Errorf("duplicate route name: %s", r.dupRoute)
	}
	if len(r.routes) == 0 {
		return nil, fmt.Errorf("at least one route is required")
	}
	if r.maxConcurrency < 1 {
		r.maxConcurrency = 1
	}

	return r, nil
}

// Routes returns the introspection list of registered routes, sorted by
// name for stable output.
func (r *Router) Routes() []RouteInfo {
	infos := make([]RouteInfo, 0, len(r.routes))
	for _, route := range r.routes {
		infos = append(infos, route.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Route returns the named route, or ErrRouteNotFound wrapped with context.
func (r *Router) Route(name string) (*Route, error) {
	route, ok := r.routes[name]
	if !ok {
		return nil, &RouteError{Route: name, Op: "resolve", Err: ErrRouteNotFound}
	}
	return route, nil
}

// GeneratePresignedURLs validates each file against the route's schema,
// threads it through the middleware chain, generates its object key, fires
// OnUploadStart, and asks the Provider for a presigned URL. Files are
// processed independently: a failure yields a per-file error result and
// never affects siblings. The returned slice is in input order.
//
// Call-level failures (unknown route, empty batch) return an error and no
// results.
func (r *Router) GeneratePresignedURLs(ctx context.Context, routeName string, req *Request, files []FileInfo, clientMeta Metadata) ([]PresignResult, error) {
	route, err := r.Route(routeName)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &RouteError{Route: routeName, Op: "presign", Err: ErrNoFiles}
	}
	if limit := route.schema.MaxFiles; limit > 0 && len(files) > limit {
		return nil, &RouteError{Route: routeName, Op: "presign", Err: ErrTooManyFiles}
	}

	results := make([]PresignResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)
	for i, file := range files {
		g.Go(func() error {
			results[i] = r.presignOne(gctx, route, req, file, clientMeta)
			return nil
		})
	}
	// Per-file errors land in results; the group never returns one.
	_ = g.Wait()

	return results, nil
}

// presignOne runs one file's pipeline: Validated -> MiddlewarePassed ->
// KeyGenerated -> Presigned, collapsing any stage failure into a Rejected
// result.
func (r *Router) presignOne(ctx context.Context, route *Route, req *Request, file FileInfo, clientMeta Metadata) (result PresignResult) {
	// A panicking middleware or hook rejects its own file, never the batch.
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in file pipeline",
				"route", route.name, "file", file.Name, "panic", rec)
			result = PresignResult{Error: "internal error"}
		}
	}()

	if err := route.schema.Validate(file); err != nil {
		return PresignResult{Error: err.Error()}
	}

	mctx := &MiddlewareContext{
		RouteName: route.name,
		File:      file,
		Request:   req,
		Metadata:  clientMeta.Clone(),
	}
	if err := runMiddleware(ctx, route, mctx); err != nil {
		r.logger.Info("file rejected by middleware",
			"route", route.name, "file", file.Name, "error", err)
		return PresignResult{Error: err.Error()}
	}

	key, err := r.generateKey(ctx, route, file, mctx.Metadata)
	if err != nil {
		r.logger.Error("object key generation failed",
			"route", route.name, "file", file.Name, "error", err)
		return PresignResult{Error: "failed to generate object key"}
	}

	route.hooks.fireUploadStart(ctx, r.logger, &UploadStartEvent{
		RouteName: route.name,
		File:      file,
		Key:       key,
		Metadata:  mctx.Metadata,
		Request:   req,
	})

	url, err := r.provider.PresignUpload(ctx, PresignObjectParams{
		Key:         key,
		ContentType: file.Type,
		Size:        file.Size,
	})
	if err != nil {
		perr := &ProviderError{Key: key, Op: "presign", Err: err}
		r.logger.Error("presign failed", "route", route.name, "file", file.Name, "error", perr)
		route.hooks.fireUploadError(ctx, r.logger, &UploadErrorEvent{
			RouteName: route.name,
			File:      file,
			Key:       key,
			Err:       perr,
			Request:   req,
		})
		// Generic message to the client; detail stays in the logs.
		return PresignResult{Error: "failed to generate upload URL"}
	}

	return PresignResult{
		Success:      true,
		Key:          key,
		PresignedURL: url,
		Metadata:     mctx.Metadata,
	}
}

func (r *Router) generateKey(ctx context.Context, route *Route, file FileInfo, metadata Metadata) (string, error) {
	if route.keyGen != nil {
		key, err := route.keyGen(ctx, file, metadata)
		if err != nil {
			return "", err
		}
		if key == "" {
			return "", ErrEmptyKey
		}
		return key, nil
	}

	key := r.keyGen.GenerateKey(&objectkey.KeyMetadata{
		FileName:    file.Name,
		ContentType: file.Type,
		RouteName:   route.name,
		Prefix:      route.keyPrefix(r.globalPrefix),
	})
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}

// HandleUploadComplete resolves each completed object's access URL through
// the Provider and fires OnUploadComplete. Hook failures are logged, never
// surfaced: the bytes are already durable. OnUploadError is not invoked
// from this path. Completions are processed independently and results stay
// in input order.
func (r *Router) HandleUploadComplete(ctx context.Context, routeName string, req *Request, completions []UploadCompletion) ([]CompletionResult, error) {
	route, err := r.Route(routeName)
	if err != nil {
		return nil, err
	}

	results := make([]CompletionResult, len(completions))
	for i, completion := range completions {
		results[i] = r.completeOne(ctx, route, req, completion)
	}
	return results, nil
}

func (r *Router) completeOne(ctx context.Context, route *Route, req *Request, completion UploadCompletion) (result CompletionResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in completion pipeline",
				"route", route.name, "key", completion.Key, "panic", rec)
			result = CompletionResult{Key: completion.Key, Error: "internal error"}
		}
	}()

	if completion.Key == "" {
		return CompletionResult{Error: "completion key is required"}
	}

	url, err := r.provider.ObjectURL(ctx, completion.Key)
	if err != nil {
		perr := &ProviderError{Key: completion.Key, Op: "resolve-url", Err: err}
		r.logger.Error("object URL resolution failed", "route", route.name, "key", completion.Key, "error", perr)
		return CompletionResult{Key: completion.Key, Error: "failed to resolve object URL"}
	}

	// Object metadata is informational for hooks; a lookup failure does not
	// fail the completion.
	meta, err := r.provider.ObjectMeta(ctx, completion.Key)
	if err != nil {
		r.logger.Warn("object metadata lookup failed", "route", route.name, "key", completion.Key, "error", err)
	}

	route.hooks.fireUploadComplete(ctx, r.logger, &UploadCompleteEvent{
		RouteName: route.name,
		File:      completion.File,
		Key:       completion.Key,
		URL:       url,
		Metadata:  completion.Metadata,
		Object:    meta,
		Request:   req,
	})

	return CompletionResult{
		Success: true,
		Key:     completion.Key,
		URL:     url,
	}
}

// NotifyUploadError fires the route's OnUploadError hooks for a
// client-reported transfer failure. The server cannot observe a failed
// direct transfer itself, so this is a client-triggered notification for
// embedders that co-locate orchestrator and router.
func (r *Router) NotifyUploadError(ctx context.Context, routeName string, file FileInfo, uploadErr error) error {
	route, err := r.Route(routeName)
	if err != nil {
		return err
	}
	route.hooks.fireUploadError(ctx, r.logger, &UploadErrorEvent{
		RouteName: routeName,
		File:      file,
		Err:       uploadErr,
	})
	return nil
}
