package resource

import (
	"context"
	"io"
)

// RateLimitedWriter wraps an io.Writer with the controller's IO limit.
// Useful for throttling dump streams written to an archive store.
type RateLimitedWriter struct {
	w   io.Writer
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedWriter creates a new RateLimitedWriter.
func NewRateLimitedWriter(w io.Writer, rc *Controller, ctx context.Context) *RateLimitedWriter {
	return &RateLimitedWriter{
		w:   w,
		rc:  rc,
		ctx: ctx,
	}
}

func (w *RateLimitedWriter) Write(p []byte) (n int, err error) {
	if err := w.rc.WaitIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

// RateLimitedReader wraps an io.Reader with the controller's IO limit.
type RateLimitedReader struct {
	r   io.Reader
	rc  *Controller
	ctx context.Context
}

// NewRateLimitedReader creates a new RateLimitedReader.
func NewRateLimitedReader(r io.Reader, rc *Controller, ctx context.Context) *RateLimitedReader {
	return &RateLimitedReader{
		r:   r,
		rc:  rc,
		ctx: ctx,
	}
}

func (r *RateLimitedReader) Read(p []byte) (n int, err error) {
	// The read size is unknown until after the call, so the limit is
	// charged for the full buffer up front.
	if err := r.rc.WaitIO(r.ctx, len(p)); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
