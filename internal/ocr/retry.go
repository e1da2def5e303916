package ocr

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/avast/retry-go/v4"

	"hemotwin-backend/internal/shared/telemetry"
)

const (
	defaultAttempts = 3
	defaultDelay    = time.Second
)

// Retrying retries transient provider failures with backoff.
type Retrying struct {
	Base     Provider
	Attempts uint
	Delay    time.Duration
}

// NewRetrying wraps base. Zero values select the defaults.
func NewRetrying(base Provider, attempts int, delay time.Duration) *Retrying {
	r := &Retrying{Base: base, Attempts: defaultAttempts, Delay: defaultDelay}
	if attempts > 0 {
		r.Attempts = uint(attempts)
	}
	if delay > 0 {
		r.Delay = delay
	}
	return r
}

// Recognize calls the base provider until it succeeds, fails permanently,
// runs out of attempts, or ctx is done.
func (r *Retrying) Recognize(ctx context.Context, img Image) (string, error) {
	var text string
	err := retry.Do(
		func() error {
			out, err := r.Base.Recognize(ctx, img)
			if err != nil {
				return err
			}
			text = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.Attempts),
		retry.Delay(r.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(ShouldRetry),
		retry.OnRetry(func(n uint, err error) {
			telemetry.Info("ocr.retry", map[string]any{
				"attempt": n + 1,
				"file":    img.Name,
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

// ShouldRetry reports whether err is worth another attempt.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

var _ Provider = (*Retrying)(nil)
