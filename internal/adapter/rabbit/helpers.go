package rabbit

import (
	"context"
	"errors"
	"time"
)

// ErrPermanent marks a handler error that must not be requeued.
var ErrPermanent = errors.New("permanent failure")

func retry(ctx context.Context, n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil {
			return nil
		}
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(sleep):
		}
	}
	return err
}

// sleepCtx waits d or until ctx is done. Returns false if ctx finished first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
