package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-upload/pkg/uploadroute"
)

// uploadTestServer pairs a JSON control-plane endpoint with a blob PUT
// target, the way a real deployment looks to the client.
type uploadTestServer struct {
	api     *httptest.Server
	storage *httptest.Server

	mu       sync.Mutex
	puts     map[string][]byte   // key -> uploaded bytes
	putCount map[string]int      // key -> PUT attempts
	rejected map[string]string   // file name -> rejection message
	failPuts map[string]int      // key -> number of 500s before success
	status4x map[string]struct{} // key -> respond 400 always
	blockPut map[string]struct{} // key -> block until request canceled
}

func newUploadTestServer(t *testing.T) *uploadTestServer {
	t.Helper()

	ts := &uploadTestServer{
		puts:     make(map[string][]byte),
		putCount: make(map[string]int),
		rejected: make(map[string]string),
		failPuts: make(map[string]int),
		status4x: make(map[string]struct{}),
		blockPut: make(map[string]struct{}),
	}

	ts.storage = httptest.NewServer(http.HandlerFunc(ts.handlePut))
	ts.api = httptest.NewServer(http.HandlerFunc(ts.handleAPI))
	t.Cleanup(ts.storage.Close)
	t.Cleanup(ts.api.Close)
	return ts
}

func (ts *uploadTestServer) handlePut(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/upload/")

	ts.mu.Lock()
	ts.putCount[key]++
	_, blocked := ts.blockPut[key]
	_, badRequest := ts.status4x[key]
	failuresLeft := ts.failPuts[key]
	if failuresLeft > 0 {
		ts.failPuts[key]--
	}
	ts.mu.Unlock()

	if blocked {
		// Drain the body so the server notices the client disconnect and
		// cancels the request context; otherwise Close hangs in cleanup.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
		return
	}
	if badRequest {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if failuresLeft > 0 {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	ts.mu.Lock()
	ts.puts[key] = data
	ts.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (ts *uploadTestServer) handleAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Query().Get("action") {
	case "presign":
		var req struct {
			Files []uploadroute.FileInfo `json:"files"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		results := make([]uploadroute.PresignResult, len(req.Files))
		for i, f := range req.Files {
			ts.mu.Lock()
			reason, rejected := ts.rejected[f.Name]
			ts.mu.Unlock()
			if rejected {
				results[i] = uploadroute.PresignResult{Error: reason}
				continue
			}
			key := "files/" + f.Name
			results[i] = uploadroute.PresignResult{
				Success:      true,
				Key:          key,
				PresignedURL: ts.storage.URL + "/upload/" + key,
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "results": results})

	case "complete":
		var req struct {
			Completions []uploadroute.UploadCompletion `json:"completions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		results := make([]uploadroute.CompletionResult, len(req.Completions))
		for i, c := range req.Completions {
			results[i] = uploadroute.CompletionResult{
				Success: true,
				Key:     c.Key,
				URL:     ts.storage.URL + "/objects/" + c.Key,
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "results": results})

	default:
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "unknown action"})
	}
}

func (ts *uploadTestServer) uploaded(key string) ([]byte, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	data, ok := ts.puts[key]
	return data, ok
}

func (ts *uploadTestServer) attempts(key string) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.putCount[key]
}

func testFile(name string, content string) File {
	return File{
		Name:    name,
		Size:    int64(len(content)),
		Type:    "text/plain",
		Content: bytes.NewReader([]byte(content)),
	}
}

func TestProgressSnapshot(t *testing.T) {
	t.Run("constant rate transfer", func(t *testing.T) {
		// 1000 bytes total, 250 sent after 1s: 25%, 250 B/s, 3s remaining.
		progress, speed, eta := progressSnapshot(250, 1000, time.Second)
		assert.InDelta(t, 25.0, progress, 0.001)
		assert.InDelta(t, 250.0, speed, 0.001)
		assert.InDelta(t, float64(3*time.Second), float64(eta), float64(time.Millisecond))
	})

	t.Run("halfway", func(t *testing.T) {
		// 500/1000 after 2s: 50%, 250 B/s, 2s remaining (ETA equals elapsed).
		progress, speed, eta := progressSnapshot(500, 1000, 2*time.Second)
		assert.InDelta(t, 50.0, progress, 0.001)
		assert.InDelta(t, 250.0, speed, 0.001)
		assert.InDelta(t, float64(2*time.Second), float64(eta), float64(time.Millisecond))
	})

	t.Run("complete", func(t *testing.T) {
		progress, _, eta := progressSnapshot(1000, 1000, 4*time.Second)
		assert.InDelta(t, 100.0, progress, 0.001)
		assert.Equal(t, time.Duration(0), eta)
	})

	t.Run("progress clamps at 100", func(t *testing.T) {
		progress, _, _ := progressSnapshot(1200, 1000, time.Second)
		assert.InDelta(t, 100.0, progress, 0.001)
	})

	t.Run("no elapsed time yields no speed", func(t *testing.T) {
		progress, speed, eta := progressSnapshot(0, 1000, 0)
		assert.Zero(t, progress)
		assert.Zero(t, speed)
		assert.Zero(t, eta)
	})
}

func TestUploadFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		ts := newUploadTestServer(t)
		uploader := NewUploader(ts.api.URL, "documentUpload")

		states, err := uploader.UploadFiles(ctx, []File{
			testFile("a.txt", "alpha contents"),
			testFile("b.txt", "bravo contents"),
		}, uploadroute.Metadata{"batch": "one"})
		require.NoError(t, err)
		require.Len(t, states, 2)

		for _, s := range states {
			assert.Equal(t, StatusSuccess, s.Status)
			assert.InDelta(t, 100.0, s.Progress, 0.001)
			assert.NotEmpty(t, s.Key)
			assert.NotEmpty(t, s.URL, "completion URL reconciled onto the state")
		}

		data, ok := ts.uploaded("files/a.txt")
		require.True(t, ok)
		assert.Equal(t, []byte("alpha contents"), data)
	})

	t.Run("empty batch", func(t *testing.T) {
		ts := newUploadTestServer(t)
		uploader := NewUploader(ts.api.URL, "documentUpload")

		_, err := uploader.UploadFiles(ctx, nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejected file never reaches storage", func(t *testing.T) {
		ts := newUploadTestServer(t)
		ts.rejected["huge.bin"] = "file is too large"

		uploader := NewUploader(ts.api.URL, "documentUpload")
		states, err := uploader.UploadFiles(ctx, []File{
			testFile("ok.txt", "fine"),
			testFile("huge.bin", "pretend this is huge"),
		}, nil)
		require.NoError(t, err)
		require.Len(t, states, 2)

		assert.Equal(t, StatusSuccess, states[0].Status)
		assert.Equal(t, StatusError, states[1].Status)
		assert.Equal(t, "file is too large", states[1].Error)
		assert.Zero(t, ts.attempts("files/huge.bin"))
	})

	t.Run("presign call failure marks every file", func(t *testing.T) {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "route not found"})
		}))
		defer api.Close()

		uploader := NewUploader(api.URL, "nope")
		states, err := uploader.UploadFiles(ctx, []File{
			testFile("a.txt", "aa"),
			testFile("b.txt", "bb"),
		}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "route not found")
		for _, s := range states {
			assert.Equal(t, StatusError, s.Status)
		}
	})

	t.Run("retries transient failures then succeeds", func(t *testing.T) {
		ts := newUploadTestServer(t)
		ts.failPuts["files/flaky.txt"] = 2

		uploader := NewUploader(ts.api.URL, "documentUpload",
			WithRetry(3, time.Millisecond))
		states, err := uploader.UploadFiles(ctx, []File{
			testFile("flaky.txt", "eventually lands"),
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, StatusSuccess, states[0].Status)
		assert.Equal(t, 3, ts.attempts("files/flaky.txt"))
		data, ok := ts.uploaded("files/flaky.txt")
		require.True(t, ok)
		assert.Equal(t, []byte("eventually lands"), data)
	})

	t.Run("exhausted retries end in error", func(t *testing.T) {
		ts := newUploadTestServer(t)
		ts.failPuts["files/doomed.txt"] = 10

		uploader := NewUploader(ts.api.URL, "documentUpload",
			WithRetry(2, time.Millisecond))
		states, err := uploader.UploadFiles(ctx, []File{
			testFile("doomed.txt", "never lands"),
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, StatusError, states[0].Status)
		assert.Contains(t, states[0].Error, "500")
		assert.Equal(t, 2, ts.attempts("files/doomed.txt"))
	})

	t.Run("4xx responses are never retried", func(t *testing.T) {
		ts := newUploadTestServer(t)
		ts.status4x["files/bad.txt"] = struct{}{}

		uploader := NewUploader(ts.api.URL, "documentUpload",
			WithRetry(5, time.Millisecond))
		states, err := uploader.UploadFiles(ctx, []File{
			testFile("bad.txt", "rejected by storage"),
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, StatusError, states[0].Status)
		assert.Contains(t, states[0].Error, "400")
		assert.Equal(t, 1, ts.attempts("files/bad.txt"))
	})

	t.Run("state listener observes transitions", func(t *testing.T) {
		ts := newUploadTestServer(t)

		var mu sync.Mutex
		var statuses []Status
		uploader := NewUploader(ts.api.URL, "documentUpload",
			WithStateListener(func(state FileState) {
				mu.Lock()
				if n := len(statuses); n == 0 || statuses[n-1] != state.Status {
					statuses = append(statuses, state.Status)
				}
				mu.Unlock()
			}))

		_, err := uploader.UploadFiles(ctx, []File{testFile("a.txt", "watched")}, nil)
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		require.NotEmpty(t, statuses)
		assert.Equal(t, StatusUploading, statuses[0])
		assert.Equal(t, StatusSuccess, statuses[len(statuses)-1])
	})
}

func TestCancel(t *testing.T) {
	ts := newUploadTestServer(t)
	ts.blockPut["files/stuck.txt"] = struct{}{}

	uploader := NewUploader(ts.api.URL, "documentUpload")

	done := make(chan []FileState, 1)
	go func() {
		states, _ := uploader.UploadFiles(context.Background(), []File{
			testFile("stuck.txt", "will be canceled"),
			testFile("fast.txt", "finishes fine"),
		}, nil)
		done <- states
	}()

	// Wait for the stuck transfer to go in flight, then cancel just it.
	var stuckID string
	require.Eventually(t, func() bool {
		for _, s := range uploader.States() {
			if s.Name == "stuck.txt" && s.Status == StatusUploading {
				stuckID = s.ID
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
	uploader.Cancel(stuckID)

	select {
	case states := <-done:
		require.Len(t, states, 2)
		byName := map[string]FileState{}
		for _, s := range states {
			byName[s.Name] = s
		}
		assert.Equal(t, StatusError, byName["stuck.txt"].Status)
		assert.Equal(t, "upload canceled", byName["stuck.txt"].Error)
		// Cancellation of one file never affects its sibling.
		assert.Equal(t, StatusSuccess, byName["fast.txt"].Status)
	case <-time.After(10 * time.Second):
		t.Fatal("upload batch did not finish after cancellation")
	}
}

func TestReset(t *testing.T) {
	ts := newUploadTestServer(t)
	ts.blockPut["files/one.txt"] = struct{}{}
	ts.blockPut["files/two.txt"] = struct{}{}

	uploader := NewUploader(ts.api.URL, "documentUpload")

	done := make(chan struct{})
	go func() {
		defer close(done)
		uploader.UploadFiles(context.Background(), []File{
			testFile("one.txt", "blocked"),
			testFile("two.txt", "blocked"),
		}, nil)
	}()

	require.Eventually(t, func() bool {
		states := uploader.States()
		uploading := 0
		for _, s := range states {
			if s.Status == StatusUploading {
				uploading++
			}
		}
		return uploading == 2
	}, 5*time.Second, 10*time.Millisecond)

	uploader.Reset()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("transfers still in flight after Reset")
	}
	assert.Empty(t, uploader.States(), "Reset clears all tracked state")
}

func TestBatchProgress(t *testing.T) {
	uploader := NewUploader("http://unused", "documentUpload")
	assert.Zero(t, uploader.BatchProgress(), "no files, no progress")

	// Weighted by bytes, not by file count: 100 of 1000 total is 10%.
	uploader.states = []*FileState{
		{Size: 900, bytesSent: 0},
		{Size: 100, bytesSent: 100},
	}
	assert.InDelta(t, 10.0, uploader.BatchProgress(), 0.001)
}

func TestProgressReader(t *testing.T) {
	var last atomic.Int64
	pr := &progressReader{
		reader: strings.NewReader("12345678"),
		callback: func(bytesRead int64) {
			last.Store(bytesRead)
		},
	}

	buf := make([]byte, 3)
	n, err := pr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(3), last.Load())

	rest, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Len(t, rest, 5)
	assert.Equal(t, int64(8), last.Load())
}

func TestTransportError(t *testing.T) {
	tests := []struct {
		name      string
		err       *TransportError
		temporary bool
	}{
		{"network failure", &TransportError{Err: fmt.Errorf("connection refused")}, true},
		{"server error", &TransportError{Status: 503}, true},
		{"client error", &TransportError{Status: 403}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.temporary, tt.err.Temporary())
			assert.NotEmpty(t, tt.err.Error())
		})
	}

	assert.True(t, isCanceled(context.Canceled))
	assert.True(t, isCanceled(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, isCanceled(fmt.Errorf("plain failure")))
}
