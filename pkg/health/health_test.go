package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func liveBody(t *testing.T, h *Health) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func readyBody(t *testing.T, h *Health) (int, statusResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("one", time.Second, passing())
	h.AddLivenessCheck("two", time.Second, passing())

	code, body := liveBody(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_FailingPastThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))

	// Probes start healthy; drive the probe to the consecutive-failure
	// threshold before it flips.
	ctx := context.Background()
	for range defaultFailureThreshold {
		h.liveness[0].run(ctx)
	}

	code, body := liveBody(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestLiveEndpoint_FailureBelowThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("flaky", time.Second, failing("temporary"))

	ctx := context.Background()
	for range defaultFailureThreshold - 1 {
		h.liveness[0].run(ctx)
	}

	code, body := liveBody(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestProbeRecovers(t *testing.T) {
	var (
		mu   sync.Mutex
		fail = true
	)
	h := New()
	h.AddLivenessCheck("toggle", time.Second, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return errors.New("down")
		}
		return nil
	})

	ctx := context.Background()
	p := h.liveness[0]
	for range defaultFailureThreshold {
		p.run(ctx)
	}
	code, _ := liveBody(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)

	mu.Lock()
	fail = false
	mu.Unlock()
	p.run(ctx)

	code, _ = liveBody(t, h)
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyEndpoint_NotReadyUntilSet(t *testing.T) {
	h := New()

	code, body := readyBody(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	code, body = readyBody(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestReadyEndpoint_FailingReadinessCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("postgres", time.Second, failing("no route to host"))

	ctx := context.Background()
	for range defaultFailureThreshold {
		h.readiness[0].run(ctx)
	}

	code, body := readyBody(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "no route to host", body.Checks["postgres"])
}

func TestIsReady(t *testing.T) {
	h := New()
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())

	h.AddReadinessCheck("dep", time.Second, failing("down"))
	ctx := context.Background()
	for range defaultFailureThreshold {
		h.readiness[0].run(ctx)
	}
	assert.False(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestStartRunsProbes(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	h := New()
	h.AddReadinessCheck("counter", time.Second, func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 10*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	h := New()
	h.AddLivenessCheck("noop", time.Second, passing())
	h.Start(context.Background(), time.Minute)

	h.Stop()
	assert.NotPanics(t, h.Stop)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
