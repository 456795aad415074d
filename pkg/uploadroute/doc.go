// Package uploadroute provides a declarative upload-routing engine built
// around presigned URLs.
//
// A set of named routes (schema + constraints + middleware + lifecycle
// hooks) is registered on a Router. The Router exposes two server
// operations: presigned URL generation and upload completion. Bytes never
// pass through the server; clients transfer directly to the storage
// backend using the minted URLs and report back when done.
//
// Storage backends are pluggable through the Provider interface (see
// storage/s3, storage/minio, storage/memory). The httpapi subpackage turns
// a Router into a single HTTP endpoint; the client subpackage drives
// batches of uploads end to end with per-file progress, retry, and
// cancellation.
package uploadroute
