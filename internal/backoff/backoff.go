package backoff

import (
	"context"
	"log"
	"time"

	"accountability-service/internal/model"

	"github.com/avast/retry-go"
)

// Policy bounds how hard a transient store failure is retried.
type Policy struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Delay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Do runs fn until it succeeds, returns a non-transient error, the attempts
// run out or ctx ends. The error returned is fn's last one.
func Do(ctx context.Context, p Policy, name string, fn func() error) error {
	if p.Attempts == 0 {
		p.Attempts = 1
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(p.Attempts),
		retry.Delay(p.Delay),
		retry.MaxDelay(p.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(model.IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("%s: retry %d: %v", name, n+1, err)
		}),
	)
}
