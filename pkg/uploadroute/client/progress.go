package client

import "io"

// progressReader wraps an io.Reader to report cumulative bytes read during
// an upload attempt.
type progressReader struct {
	reader    io.Reader
	bytesRead int64
	callback  func(bytesRead int64)
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.bytesRead += int64(n)
	if pr.callback != nil && n > 0 {
		pr.callback(pr.bytesRead)
	}
	return n, err
}
