package readiness

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davebream/olaunch/internal/config"
)

func TestDelay(t *testing.T) {
	t.Run("sleeps exactly once for the duration", func(t *testing.T) {
		var calls []time.Duration
		d := Delay{Duration: 3 * time.Second, Sleep: func(_ context.Context, d time.Duration) error {
			calls = append(calls, d)
			return nil
		}}

		require.NoError(t, d.Wait(context.Background()))
		assert.Equal(t, []time.Duration{3 * time.Second}, calls)
	})

	t.Run("default sleep honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Delay{Duration: time.Hour}.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("default sleep returns after duration", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, Delay{Duration: 20 * time.Millisecond}.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})
}

func TestHTTPProbe(t *testing.T) {
	t.Run("2xx is ready", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("Ollama is running"))
		}))
		defer srv.Close()

		assert.NoError(t, HTTPProbe{URL: srv.URL}.Check(context.Background()))
	})

	t.Run("5xx is not ready", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		err := HTTPProbe{URL: srv.URL}.Check(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("connection refused is not ready", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		assert.Error(t, HTTPProbe{URL: url}.Check(context.Background()))
	})
}

type countingProbe struct {
	calls   atomic.Int32
	readyAt int32
}

func (p *countingProbe) Check(context.Context) error {
	if p.calls.Add(1) >= p.readyAt {
		return nil
	}
	return errors.New("connection refused")
}

func TestPoller(t *testing.T) {
	t.Run("returns once the probe succeeds", func(t *testing.T) {
		probe := &countingProbe{readyAt: 3}
		p := Poller{Probe: probe, Initial: time.Millisecond, Max: 5 * time.Millisecond, Timeout: 5 * time.Second}

		require.NoError(t, p.Wait(context.Background()))
		assert.Equal(t, int32(3), probe.calls.Load())
	})

	t.Run("ready on first check does not wait", func(t *testing.T) {
		probe := &countingProbe{readyAt: 1}
		p := Poller{Probe: probe, Initial: time.Hour, Timeout: 5 * time.Second}

		start := time.Now()
		require.NoError(t, p.Wait(context.Background()))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("times out with ErrNotReady", func(t *testing.T) {
		probe := &countingProbe{readyAt: 1 << 30}
		p := Poller{Probe: probe, Initial: time.Millisecond, Max: 10 * time.Millisecond, Timeout: 100 * time.Millisecond}

		err := p.Wait(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotReady)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Greater(t, probe.calls.Load(), int32(1))
	})

	t.Run("parent cancellation is reported as such", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := Poller{Probe: &countingProbe{readyAt: 1 << 30}, Initial: time.Millisecond, Timeout: time.Minute}

		err := p.Wait(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, ErrNotReady)
	})

	t.Run("polls a real server until it turns healthy", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 4 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("Ollama is running"))
		}))
		defer srv.Close()

		p := Poller{Probe: HTTPProbe{URL: srv.URL}, Initial: time.Millisecond, Max: 5 * time.Millisecond, Timeout: 5 * time.Second}
		require.NoError(t, p.Wait(context.Background()))
		assert.Equal(t, int32(4), hits.Load())
	})
}

func TestFromConfig(t *testing.T) {
	t.Run("delay mode", func(t *testing.T) {
		cfg := config.DefaultConfig().Readiness
		cfg.Mode = config.ReadinessDelay

		w := FromConfig(cfg)
		d, ok := w.(Delay)
		require.True(t, ok)
		assert.Equal(t, 3*time.Second, d.Duration)
	})

	t.Run("probe mode", func(t *testing.T) {
		cfg := config.DefaultConfig().Readiness

		w := FromConfig(cfg)
		p, ok := w.(Poller)
		require.True(t, ok)
		assert.Equal(t, HTTPProbe{URL: "http://127.0.0.1:11434/"}, p.Probe)
		assert.Equal(t, 100*time.Millisecond, p.Initial)
		assert.Equal(t, 30*time.Second, p.Timeout)
	})
}
