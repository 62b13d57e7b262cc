package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/floorwatch/internal/connectors"
	"github.com/xela07ax/floorwatch/internal/infra"
)

func fastConfig() infra.ReliabilityConfig {
	cfg := infra.DefaultReliabilityConfig()
	cfg.Attempts = 3
	cfg.AttemptTimeout = time.Second
	cfg.RatePerSecond = 0
	return cfg
}

func TestReliableScorer_RetriesThrottle(t *testing.T) {
	var calls atomic.Int32
	next := scorerFunc(func(context.Context, []float64) (float64, error) {
		if calls.Add(1) < 3 {
			return 0, &connectors.ThrottleError{RetryAfter: time.Millisecond, Cause: errors.New("429")}
		}
		return 42, nil
	})

	s := NewReliableScorer(next, fastConfig(), nil, zap.NewNop())
	got, err := s.Score(context.Background(), []float64{1})
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReliableScorer_GivesUp(t *testing.T) {
	var calls atomic.Int32
	next := scorerFunc(func(context.Context, []float64) (float64, error) {
		calls.Add(1)
		return 0, &connectors.ThrottleError{RetryAfter: time.Millisecond, Cause: errors.New("busy")}
	})

	s := NewReliableScorer(next, fastConfig(), nil, zap.NewNop())
	_, err := s.Score(context.Background(), []float64{1})
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReliableScorer_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	next := scorerFunc(func(context.Context, []float64) (float64, error) {
		calls.Add(1)
		return 0, errors.New("model crashed")
	})

	cfg := fastConfig()
	cfg.Attempts = 1
	cfg.MaxFailures = 1
	cfg.OpenTimeout = time.Minute
	m := NewMetrics(nil)
	s := NewReliableScorer(next, cfg, m, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := s.Score(context.Background(), nil)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues(cfg.Name)))

	_, err := s.Score(context.Background(), nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), calls.Load(), "open breaker does not call the model")
}

func TestReliableScorer_WatchHealth(t *testing.T) {
	var broken atomic.Bool
	next := scorerFunc(func(context.Context, []float64) (float64, error) {
		if broken.Load() {
			return 0, errors.New("model crashed")
		}
		return 10, nil
	})

	cfg := fastConfig()
	cfg.Attempts = 1
	cfg.MaxFailures = 1
	cfg.OpenTimeout = time.Minute
	s := NewReliableScorer(next, cfg, nil, zap.NewNop())

	srv := health.NewServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.WatchHealth(ctx, srv, "floorwatch.rul", 5*time.Millisecond)
		close(done)
	}()

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "floorwatch.rul"})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.GetStatus()
	}

	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING },
		time.Second, 5*time.Millisecond)

	broken.Store(true)
	for i := 0; i < 2; i++ {
		_, err := s.Score(context.Background(), nil)
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, s.State())

	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_NOT_SERVING },
		time.Second, 5*time.Millisecond, "open breaker is reported as not serving")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WatchHealth did not stop on context cancel")
	}
}

func TestReliableScorer_AttemptTimeout(t *testing.T) {
	next := scorerFunc(func(ctx context.Context, _ []float64) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	cfg := fastConfig()
	cfg.Attempts = 1
	cfg.AttemptTimeout = 10 * time.Millisecond
	s := NewReliableScorer(next, cfg, nil, zap.NewNop())

	start := time.Now()
	_, err := s.Score(context.Background(), nil)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
