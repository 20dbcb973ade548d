package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout applies when a non-positive timeout is given.
const DefaultTimeout = 10 * time.Second

// RunWithTimeout runs op with a deadline of d. If the deadline passes first,
// RunWithTimeout returns ErrTimeout without waiting for op to return; op
// sees its context cancelled and is expected to give up on its own.
func RunWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	if d <= 0 {
		d = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
