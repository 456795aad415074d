package uploadroute

import (
	"context"
	"log/slog"
)

// Lifecycle hooks fire at specific points in a file's upload lifecycle.
// All hooks are best-effort: a hook error is logged and never surfaced to
// the caller, because the operation it observes has already succeeded or
// is independent of it.

// UploadStartEvent is passed to OnUploadStart hooks after a file passes
// validation and middleware, just before the presigned URL is minted.
type UploadStartEvent struct {
	RouteName string
	File      FileInfo
	Key       string
	Metadata  Metadata
	Request   *Request
}

// UploadCompleteEvent is passed to OnUploadComplete hooks once the client
// reports a finished transfer and the object resolves through the Provider.
type UploadCompleteEvent struct {
	RouteName string
	File      FileInfo
	Key       string
	URL       string
	Metadata  Metadata
	Object    *ObjectMeta
	Request   *Request
}

// UploadErrorEvent is passed to OnUploadError hooks. It fires for
// presign-time provider failures the server observes directly, and for
// client-reported transfer failures (the server cannot detect those on
// its own).
type UploadErrorEvent struct {
	RouteName string
	File      FileInfo
	Key       string
	Err       error
	Request   *Request
}

// UploadStartHook is called when a file's upload is about to begin.
type UploadStartHook func(ctx context.Context, event *UploadStartEvent) error

// UploadCompleteHook is called when a file's upload completed.
type UploadCompleteHook func(ctx context.Context, event *UploadCompleteEvent) error

// UploadErrorHook is called when a file's upload failed.
type UploadErrorHook func(ctx context.Context, event *UploadErrorEvent) error

// RouteHooks groups the lifecycle hooks of one route.
type RouteHooks struct {
	OnUploadStart    []UploadStartHook
	OnUploadComplete []UploadCompleteHook
	OnUploadError    []UploadErrorHook
}

// Hook execution helpers. Failures are logged with route and file context.

func (h *RouteHooks) fireUploadStart(ctx context.Context, logger *slog.Logger, event *UploadStartEvent) {
	for _, hook := range h.OnUploadStart {
		if err := hook(ctx, event); err != nil {
			logger.Error("upload start hook failed",
				"route", event.RouteName, "file", event.File.Name, "key", event.Key, "error", err)
		}
	}
}

func (h *RouteHooks) fireUploadComplete(ctx context.Context, logger *slog.Logger, event *UploadCompleteEvent) {
	for _, hook := range h.OnUploadComplete {
		if err := hook(ctx, event); err != nil {
			logger.Error("upload complete hook failed",
				"route", event.RouteName, "file", event.File.Name, "key", event.Key, "error", err)
		}
	}
}

func (h *RouteHooks) fireUploadError(ctx context.Context, logger *slog.Logger, event *UploadErrorEvent) {
	for _, hook := range h.OnUploadError {
		if err := hook(ctx, event); err != nil {
			logger.Error("upload error hook failed",
				"route", event.RouteName, "file", event.File.Name, "error", err)
		}
	}
}
