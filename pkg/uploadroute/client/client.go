// Package client drives batches of direct uploads end to end: it requests
// presigned URLs from an upload endpoint, transfers bytes straight to the
// blob store with per-file progress, speed, and ETA tracking, and reports
// completions back for side effects.
//
// Each UploadFiles call owns its FileStates exclusively; per-file
// cancellation is cooperative and never affects sibling files.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/tendant/simple-upload/pkg/uploadroute"
)

// File is one upload input. Content must support seeking so failed
// attempts can rewind before a retry.
type File struct {
	Name    string
	Size    int64
	Type    string
	Content io.ReadSeeker
}

// StateListener is invoked with a copy of a FileState every time it
// changes (status transitions and progress ticks).
type StateListener func(state FileState)

// Uploader orchestrates batch uploads against one route of an upload
// endpoint. The zero value is not usable; create one with NewUploader.
type Uploader struct {
	endpoint string
	route    string

	// httpClient performs the direct transfers. No implicit timeout:
	// callers impose their own deadline through the context.
	httpClient *http.Client

	// apiClient performs the presign/complete JSON calls. Bodies are
	// replayable byte slices, so transient failures retry transparently.
	apiClient *retryablehttp.Client

	retryAttempts int
	retryDelay    time.Duration
	onChange      StateListener
	logger        *slog.Logger

	mu      sync.Mutex
	states  []*FileState
	byID    map[string]*FileState
	cancels map[string]context.CancelFunc
}

// UploaderOption is a functional option for configuring an Uploader
type UploaderOption func(*Uploader)

// WithHTTPClient sets the client used for direct transfers.
func WithHTTPClient(client *http.Client) UploaderOption {
	return func(u *Uploader) {
		u.httpClient = client
	}
}

// WithRetry configures transfer retry behavior. Delay grows exponentially
// per attempt.
func WithRetry(attempts int, delay time.Duration) UploaderOption {
	return func(u *Uploader) {
		u.retryAttempts = attempts
		u.retryDelay = delay
	}
}

// WithStateListener registers a callback for file state changes.
func WithStateListener(fn StateListener) UploaderOption {
	return func(u *Uploader) {
		u.onChange = fn
	}
}

// WithLogger sets the uploader's logger.
func WithLogger(logger *slog.Logger) UploaderOption {
	return func(u *Uploader) {
		u.logger = logger
	}
}

// NewUploader creates an uploader for the given endpoint and route name.
func NewUploader(endpoint, route string, opts ...UploaderOption) *Uploader {
	api := retryablehttp.NewClient()
	api.RetryMax = 3
	api.Logger = nil

	u := &Uploader{
		endpoint:      endpoint,
		route:         route,
		httpClient:    &http.Client{},
		apiClient:     api,
		retryAttempts: 3,
		retryDelay:    time.Second,
		logger:        slog.Default(),
		byID:          make(map[string]*FileState),
		cancels:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.retryAttempts < 1 {
		u.retryAttempts = 1
	}
	return u
}

// UploadFiles drives one batch: presign once, transfer each accepted file
// concurrently, then report the successful subset as complete. It returns
// a snapshot of the final per-file states in input order.
//
// A presign call-level failure (unknown route, transport) marks every file
// error and returns the error. Per-file presign failures mark only that
// file error; siblings proceed.
func (u *Uploader) UploadFiles(ctx context.Context, files []File, metadata uploadroute.Metadata) ([]FileState, error) {
	if len(files) == 0 {
		return nil, errors.New("no files to upload")
	}

	infos := make([]uploadroute.FileInfo, len(files))
	states := make([]*FileState, len(files))
	for i, f := range files {
		infos[i] = uploadroute.FileInfo{Name: f.Name, Size: f.Size, Type: f.Type}
		states[i] = &FileState{
			ID:     uuid.New().String(),
			Name:   f.Name,
			Size:   f.Size,
			Type:   f.Type,
			Status: StatusPending,
		}
	}

	u.mu.Lock()
	u.states = append(u.states, states...)
	for _, s := range states {
		u.byID[s.ID] = s
	}
	u.mu.Unlock()

	results, err := u.presign(ctx, infos, metadata)
	if err != nil {
		for _, s := range states {
			u.setError(s, "presign request failed")
		}
		return u.snapshot(states), err
	}
	if len(results) != len(files) {
		err := fmt.Errorf("presign returned %d results for %d files", len(results), len(files))
		for _, s := range states {
			u.setError(s, "presign request failed")
		}
		return u.snapshot(states), err
	}

	var wg sync.WaitGroup
	for i, res := range results {
		state := states[i]
		if !res.Success {
			// Rejected before any transfer; storage is never contacted.
			u.setError(state, res.Error)
			continue
		}

		u.mu.Lock()
		state.Key = res.Key
		u.mu.Unlock()

		fctx, cancel := context.WithCancel(ctx)
		u.mu.Lock()
		u.cancels[state.ID] = cancel
		u.mu.Unlock()

		wg.Add(1)
		go func(state *FileState, file File, presignedURL string) {
			defer wg.Done()
			defer func() {
				cancel()
				u.mu.Lock()
				delete(u.cancels, state.ID)
				u.mu.Unlock()
			}()
			u.transfer(fctx, state, file, presignedURL)
		}(state, files[i], res.PresignedURL)
	}
	wg.Wait()

	// Notify completion for the successful subset and reconcile returned
	// URLs onto matching states by key.
	var completions []uploadroute.UploadCompletion
	for i, s := range states {
		u.mu.Lock()
		ok := s.Status == StatusSuccess
		u.mu.Unlock()
		if ok {
			completions = append(completions, uploadroute.UploadCompletion{
				Key:      s.Key,
				File:     infos[i],
				Metadata: metadata,
			})
		}
	}
	if len(completions) > 0 {
		compResults, err := u.complete(ctx, completions)
		if err != nil {
			// Bytes are already durable; completion is a notification.
			u.logger.Warn("upload completion call failed", "route", u.route, "error", err)
		} else {
			byKey := make(map[string]uploadroute.CompletionResult, len(compResults))
			for _, cr := range compResults {
				byKey[cr.Key] = cr
			}
			for _, s := range states {
				if cr, ok := byKey[s.Key]; ok && cr.Success {
					u.mu.Lock()
					s.URL = cr.URL
					u.mu.Unlock()
					u.notify(s)
				}
			}
		}
	}

	return u.snapshot(states), nil
}

// transfer performs one file's direct upload with bounded retry and
// exponential backoff. Cancellation and 4xx responses are terminal.
func (u *Uploader) transfer(ctx context.Context, state *FileState, file File, presignedURL string) {
	u.setStatus(state, StatusUploading)

	var lastErr error
	for attempt := 0; attempt < u.retryAttempts; attempt++ {
		if attempt > 0 {
			backoff := u.retryDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				u.setError(state, "upload canceled")
				return
			case <-time.After(backoff):
			}
			if _, err := file.Content.Seek(0, io.SeekStart); err != nil {
				u.setError(state, fmt.Sprintf("failed to rewind file: %v", err))
				return
			}
			u.logger.Info("retrying upload", "file", file.Name, "attempt", attempt+1)
			// Bounded error -> uploading transition.
			u.setStatus(state, StatusUploading)
		}

		err := u.attempt(ctx, state, file, presignedURL)
		if err == nil {
			u.markSuccess(state)
			return
		}
		lastErr = err

		if isCanceled(err) {
			u.setError(state, "upload canceled")
			return
		}
		var terr *TransportError
		if errors.As(err, &terr) && !terr.Temporary() {
			break
		}
	}

	u.setError(state, lastErr.Error())
}

// attempt performs a single PUT to the presigned URL with progress
// instrumentation.
func (u *Uploader) attempt(ctx context.Context, state *FileState, file File, presignedURL string) error {
	start := time.Now()
	u.updateProgress(state, 0, file.Size, 0)

	reader := &progressReader{
		reader: file.Content,
		callback: func(bytesRead int64) {
			u.updateProgress(state, bytesRead, file.Size, time.Since(start))
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, reader)
	if err != nil {
		return &TransportError{Err: err}
	}
	req.ContentLength = file.Size
	if file.Type != "" {
		req.Header.Set("Content-Type", file.Type)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Status: resp.StatusCode}
	}

	u.updateProgress(state, file.Size, file.Size, time.Since(start))
	return nil
}

// Cancel cancels the in-flight transfer for one file. Sibling files are
// unaffected.
func (u *Uploader) Cancel(id string) {
	u.mu.Lock()
	cancel, ok := u.cancels[id]
	u.mu.Unlock()
	if ok {
		cancel()
	}
}

// Reset cancels every in-flight transfer and clears all state.
func (u *Uploader) Reset() {
	u.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(u.cancels))
	for _, cancel := range u.cancels {
		cancels = append(cancels, cancel)
	}
	u.cancels = make(map[string]context.CancelFunc)
	u.states = nil
	u.byID = make(map[string]*FileState)
	u.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// States returns a snapshot of all tracked file states in input order.
func (u *Uploader) States() []FileState {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]FileState, len(u.states))
	for i, s := range u.states {
		out[i] = *s
	}
	return out
}

// BatchProgress returns overall batch progress 0-100, weighted by bytes
// rather than file count.
func (u *Uploader) BatchProgress() float64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	var sent, total int64
	for _, s := range u.states {
		total += s.Size
		sent += s.bytesSent
	}
	if total == 0 {
		return 0
	}
	p := float64(sent) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// Server API calls.

type presignRequest struct {
	Files    []uploadroute.FileInfo `json:"files"`
	Metadata uploadroute.Metadata   `json:"metadata,omitempty"`
}

type presignResponse struct {
	Success bool                        `json:"success"`
	Error   string                      `json:"error,omitempty"`
	Results []uploadroute.PresignResult `json:"results"`
}

type completeRequest struct {
	Completions []uploadroute.UploadCompletion `json:"completions"`
}

type completeResponse struct {
	Success bool                           `json:"success"`
	Error   string                         `json:"error,omitempty"`
	Results []uploadroute.CompletionResult `json:"results"`
}

func (u *Uploader) presign(ctx context.Context, files []uploadroute.FileInfo, metadata uploadroute.Metadata) ([]uploadroute.PresignResult, error) {
	var resp presignResponse
	if err := u.call(ctx, "presign", presignRequest{Files: files, Metadata: metadata}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (u *Uploader) complete(ctx context.Context, completions []uploadroute.UploadCompletion) ([]uploadroute.CompletionResult, error) {
	var resp completeResponse
	if err := u.call(ctx, "complete", completeRequest{Completions: completions}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (u *Uploader) call(ctx context.Context, action string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}

	q := url.Values{}
	q.Set("route", u.route)
	q.Set("action", action)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, u.endpoint+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.apiClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", action, err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			return fmt.Errorf("%s failed: %s", action, envelope.Error)
		}
		return fmt.Errorf("%s failed with status %d", action, resp.StatusCode)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}

// State mutation helpers. Listeners are invoked outside the lock with a
// copy of the state.

func (u *Uploader) setStatus(state *FileState, status Status) {
	u.mu.Lock()
	state.Status = status
	if status == StatusUploading {
		state.Error = ""
	}
	u.mu.Unlock()
	u.notify(state)
}

func (u *Uploader) setError(state *FileState, message string) {
	u.mu.Lock()
	state.Status = StatusError
	state.Error = message
	u.mu.Unlock()
	u.notify(state)
}

func (u *Uploader) markSuccess(state *FileState) {
	u.mu.Lock()
	state.Status = StatusSuccess
	state.Progress = 100
	state.ETA = 0
	state.bytesSent = state.Size
	u.mu.Unlock()
	u.notify(state)
}

func (u *Uploader) updateProgress(state *FileState, bytesSent, total int64, elapsed time.Duration) {
	progress, speed, eta := progressSnapshot(bytesSent, total, elapsed)
	u.mu.Lock()
	state.bytesSent = bytesSent
	state.Progress = progress
	state.UploadSpeed = speed
	state.ETA = eta
	u.mu.Unlock()
	u.notify(state)
}

func (u *Uploader) notify(state *FileState) {
	if u.onChange == nil {
		return
	}
	u.mu.Lock()
	snap := *state
	u.mu.Unlock()
	u.onChange(snap)
}

func (u *Uploader) snapshot(states []*FileState) []FileState {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]FileState, len(states))
	for i, s := range states {
		out[i] = *s
	}
	return out
}
