package classification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces outbound requests at least one interval apart.
// The first request goes out immediately.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer releasing one request per interval.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// PacerForRPM derives a Pacer from a requests-per-minute ceiling.
// A non-positive rpm disables pacing.
func PacerForRPM(rpm int) *Pacer {
	if rpm <= 0 {
		return NewPacer(0)
	}
	return NewPacer(time.Minute / time.Duration(rpm))
}

// ErrPacingAborted is returned by Wait when the next request cannot be sent in time.
// It always wraps a context error.
var ErrPacingAborted = errors.New("request pacing aborted")

// Wait blocks until the next request may be sent or ctx is done.
// When the next slot falls after ctx's deadline it fails at once
// with context.DeadlineExceeded instead of sleeping.
func (p *Pacer) Wait(ctx context.Context) error {
	err := p.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrPacingAborted, ctxErr)
	}
	return fmt.Errorf("%w: next request is due after the deadline: %w", ErrPacingAborted, context.DeadlineExceeded)
}
