// Package bandwidth throttles upload and download streams with a token
// bucket. A nil *Limiter is valid and means "unlimited", so callers never
// branch on whether throttling is configured.
package bandwidth

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/tonimelisma/fileshare-go/internal/config"
)

// burstMultiplier controls the token bucket burst size relative to the per-second rate.
// A 2x burst allows short savings to be spent on the next read without
// reducing sustained throughput below the configured limit.
const burstMultiplier = 2

// Limiter rate-limits every stream wrapped through it. One Limiter is shared
// by all transfers of a process so the aggregate stays within the limit.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter from the bandwidth_limit config string.
// Returns nil if limit is "0" or empty (unlimited).
func New(bandwidthLimit string, logger *slog.Logger) (*Limiter, error) {
	bytesPerSec, err := config.ParseRate(bandwidthLimit)
	if err != nil {
		return nil, fmt.Errorf("bandwidth: parse limit %q: %w", bandwidthLimit, err)
	}

	if bytesPerSec == 0 {
		return nil, nil //nolint:nilnil // nil limiter = unlimited
	}

	burst := int(bytesPerSec) * burstMultiplier

	if logger != nil {
		logger.Debug("bandwidth: limiter created",
			slog.Int64("bytes_per_sec", bytesPerSec),
			slog.Int("burst", burst),
		)
	}

	return &Limiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst)}, nil
}

// Reader returns a rate-limited io.Reader. If l is nil, returns r unchanged.
func (l *Limiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}

	return &limitedReader{r: r, limiter: l.limiter, ctx: ctx}
}

// ReadCloser is Reader for streams the caller must close, such as an HTTP
// response body. Close is forwarded to rc.
func (l *Limiter) ReadCloser(ctx context.Context, rc io.ReadCloser) io.ReadCloser {
	if l == nil {
		return rc
	}

	return struct {
		io.Reader
		io.Closer
	}{l.Reader(ctx, rc), rc}
}

// limitedReader wraps an io.Reader with token bucket rate limiting.
// After each successful read, it blocks until the limiter allows the bytes consumed.
type limitedReader struct {
	r       io.Reader
	limiter *rate.Limiter
	ctx     context.Context
}

func (r *limitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		if waitErr := waitN(r.ctx, r.limiter, n); waitErr != nil {
			return n, waitErr
		}
	}

	return n, err
}

// waitN splits a large token request into burst-sized chunks.
// rate.Limiter.WaitN rejects requests exceeding the burst size, so we loop.
func waitN(ctx context.Context, limiter *rate.Limiter, n int) error {
	burst := limiter.Burst()

	for n > 0 {
		take := min(n, burst)

		if err := limiter.WaitN(ctx, take); err != nil {
			return err
		}

		n -= take
	}

	return nil
}
