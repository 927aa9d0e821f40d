// Package readiness decides when a freshly spawned service may be used.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/davebream/olaunch/internal/config"
)

// ErrNotReady is returned when a service does not answer before the timeout.
var ErrNotReady = errors.New("service not ready")

// Waiter blocks until a service can be used, or gives up.
type Waiter interface {
	Wait(ctx context.Context) error
}

// Probe performs one readiness check.
type Probe interface {
	Check(ctx context.Context) error
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay waits a fixed duration without checking anything.
type Delay struct {
	Duration time.Duration
	// Sleep defaults to the package Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (d Delay) Wait(ctx context.Context) error {
	sleep := d.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return sleep(ctx, d.Duration)
}

// HTTPProbe treats any 2xx response from URL as ready.
type HTTPProbe struct {
	URL    string
	Client *http.Client
}

func (p HTTPProbe) Check(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build probe request: %w", err))
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: status %d", p.URL, resp.StatusCode)
	}
	return nil
}

// Poller repeats Probe with exponential backoff until it succeeds or
// Timeout elapses.
type Poller struct {
	Probe   Probe
	Initial time.Duration
	Max     time.Duration
	Timeout time.Duration
}

func (p Poller) Wait(parent context.Context) error {
	ctx := parent
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, p.Timeout)
		defer cancel()
	}

	b := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		b.InitialInterval = p.Initial
	}
	b.MaxInterval = 2 * time.Second
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}

	var lastErr error
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		lastErr = p.Probe.Check(ctx)
		return struct{}{}, lastErr
	}, backoff.WithBackOff(b))
	if err == nil {
		return nil
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if lastErr == nil {
		lastErr = err
	}
	return fmt.Errorf("%w within %s: %v", ErrNotReady, p.Timeout, lastErr)
}

// FromConfig builds the Waiter selected by cfg.Mode.
func FromConfig(cfg config.ReadinessConfig) Waiter {
	if cfg.Mode == config.ReadinessDelay {
		return Delay{Duration: cfg.DelayDuration()}
	}
	return Poller{
		Probe:   HTTPProbe{URL: cfg.URL},
		Initial: cfg.IntervalDuration(),
		Timeout: cfg.TimeoutDuration(),
	}
}
