package uploadroute

import "context"

// Middleware is a per-file, per-route function in an ordered chain. Each
// stage sees the accumulated context and returns a metadata patch, or an
// error to reject the file. A rejection short-circuits only that file's
// pipeline; sibling files in the batch are unaffected.
type Middleware func(ctx context.Context, mctx *MiddlewareContext) (Metadata, error)

// MiddlewareContext carries per-file state through the middleware chain.
type MiddlewareContext struct {
	RouteName string
	File      FileInfo
	Request   *Request

	// Metadata starts as a copy of the client-supplied metadata and
	// accumulates each stage's patch. Later stages see earlier enrichments.
	Metadata Metadata
}

// runMiddleware threads the file through the route's chain sequentially,
// merging each returned patch before advancing. The first error stops the
// chain for this file.
func runMiddleware(ctx context.Context, route *Route, mctx *MiddlewareContext) error {
	for _, mw := range route.middleware {
		patch, err := mw(ctx, mctx)
		if err != nil {
			return err
		}
		if patch != nil {
			mctx.Metadata.Merge(patch)
		}
	}
	return nil
}
