package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusBody struct {
	Status string
	Checks map[string]string
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusBody {
	t.Helper()
	body := statusBody{Checks: map[string]string{}}
	err := jx.DecodeBytes(w.Body.Bytes()).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Str()
			body.Status = v
			return err
		case "checks":
			return d.Obj(func(d *jx.Decoder, name string) error {
				v, err := d.Str()
				body.Checks[name] = v
				return err
			})
		default:
			return d.Skip()
		}
	})
	require.NoError(t, err)
	return body
}

func passingCheck() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failingCheck(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func serve(endpoint http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		check      CheckFunc
		runs       int
		wantStatus int
		wantFailed string
	}{
		{name: "no runs yet", check: failingCheck("down"), runs: 0, wantStatus: http.StatusOK},
		{name: "passing", check: passingCheck(), runs: 3, wantStatus: http.StatusOK},
		{name: "below failure threshold", check: failingCheck("flaky"), runs: 2, wantStatus: http.StatusOK},
		{name: "at failure threshold", check: failingCheck("connection refused"), runs: 3,
			wantStatus: http.StatusServiceUnavailable, wantFailed: "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("db", time.Second, tt.check)
			for range tt.runs {
				h.liveness[0].run(context.Background())
			}

			w := serve(h.LiveEndpoint)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			body := decodeStatus(t, w)
			if tt.wantFailed == "" {
				assert.Equal(t, "ok", body.Status)
				assert.Empty(t, body.Checks)
				return
			}
			assert.Equal(t, "unhealthy", body.Status)
			assert.Equal(t, tt.wantFailed, body.Checks["db"])
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("postgres", time.Second, passingCheck())
	h.AddReadinessCheck("cache", time.Second, failingCheck("cache miss"))

	body := decodeStatus(t, serve(h.ReadyEndpoint))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks, "_readiness")

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)

	for range failureThreshold {
		h.readiness[1].run(context.Background())
	}
	w := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body = decodeStatus(t, w)
	assert.Equal(t, "cache miss", body.Checks["cache"])
	assert.NotContains(t, body.Checks, "postgres")
	assert.NotContains(t, body.Checks, "_readiness")
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passingCheck())

	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheckRecovers(t *testing.T) {
	failing := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if failing {
			return errors.New("down")
		}
		return nil
	})
	c := h.liveness[0]
	ctx := context.Background()

	for range failureThreshold {
		c.run(ctx)
	}
	assert.Equal(t, "down", c.failure())

	failing = false
	c.run(ctx)
	assert.Empty(t, c.failure())
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("live", time.Second, failingCheck("err"))
	h.AddReadinessCheck("ready", time.Second, passingCheck())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				h.IsReady()
				serve(h.LiveEndpoint)
				serve(h.ReadyEndpoint)
			}
		}()
	}
	wg.Wait()

	h.Stop()
	h.Stop()
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestPingCheck(t *testing.T) {
	assert.NoError(t, PingCheck(stubPinger{})(context.Background()))

	err := PingCheck(stubPinger{err: errors.New("refused")})(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
