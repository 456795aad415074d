package client

import (
	"time"
)

// Status is the lifecycle state of one file in a batch.
type Status string

// File status constants (typed).
const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// FileState tracks one file through a batch upload. Exactly one FileState
// exists per input file per UploadFiles call. Status is monotonic
// (pending -> uploading -> success|error) except for bounded retries,
// which move error-bound transfers back through uploading.
type FileState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`

	Status   Status  `json:"status"`
	Progress float64 `json:"progress"` // 0-100

	// UploadSpeed is the observed transfer rate in bytes per second.
	UploadSpeed float64 `json:"upload_speed"`
	// ETA is the estimated time until the transfer finishes.
	ETA time.Duration `json:"eta"`

	Key   string `json:"key,omitempty"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`

	bytesSent int64
}

// progressSnapshot derives progress, speed, and ETA from elapsed transfer
// time. For a constant-rate transfer of total bytes at rate R, after t
// seconds progress is min(100, 100*R*t/total) and ETA is (total-R*t)/R.
func progressSnapshot(bytesSent, total int64, elapsed time.Duration) (progress, speed float64, eta time.Duration) {
	if total > 0 {
		progress = float64(bytesSent) / float64(total) * 100
		if progress > 100 {
			progress = 100
		}
	}
	if elapsed > 0 && bytesSent > 0 {
		speed = float64(bytesSent) / elapsed.Seconds()
		remaining := total - bytesSent
		if remaining > 0 {
			eta = time.Duration(float64(remaining) / speed * float64(time.Second))
		}
	}
	return progress, speed, eta
}
