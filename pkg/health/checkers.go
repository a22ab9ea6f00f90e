package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// Pinger is implemented by connection pools such as *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck returns a CheckFunc that pings p.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// GoroutineCountCheck reports unhealthy when more than threshold goroutines
// are running, which usually means a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}
