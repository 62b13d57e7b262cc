package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/floorwatch/internal/connectors"
	"github.com/xela07ax/floorwatch/internal/health"
	"github.com/xela07ax/floorwatch/internal/infra"
)

// ReliableScorer - Scorer с лимитером, предохранителем и ретраями.
// Сессии зовут модель синхронно, так что обвязка не даёт упавшей модели
// растянуть каждую запись на полный цикл ретраев.
type ReliableScorer struct {
	next    health.Scorer
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	cfg     infra.ReliabilityConfig
}

func NewReliableScorer(next health.Scorer, cfg infra.ReliabilityConfig, metrics *Metrics, logger *zap.Logger) *ReliableScorer {
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	log := logger.With(zap.String("mod", "scorer"), zap.String("scorer", cfg.Name))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     cfg.OpenTimeout, // через сколько CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
			if metrics != nil {
				metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &ReliableScorer{
		next:    next,
		cb:      cb,
		limiter: rate.NewLimiter(limit, max(cfg.Burst, 1)),
		cfg:     cfg,
	}
}

func (w *ReliableScorer) Score(ctx context.Context, features []float64) (float64, error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	res, err := w.cb.Execute(func() (interface{}, error) {
		var hours float64

		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(w.cfg.Attempts),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Модель сама сказала, когда приходить (Retry-After)
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := w.attemptContext(ctx)
			defer cancel()

			var callErr error
			hours, callErr = w.next.Score(tCtx, features)
			return callErr
		})

		return hours, retryErr
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}

func (w *ReliableScorer) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.cfg.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, w.cfg.AttemptTimeout)
}

// State - текущее состояние предохранителя.
func (w *ReliableScorer) State() gobreaker.State {
	return w.cb.State()
}

// HealthReporter - то, что умеет публиковать статус сервиса (grpc health.Server).
type HealthReporter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

// WatchHealth публикует состояние предохранителя как статус сервиса service:
// пока он открыт, модель NOT_SERVING. Блокируется до отмены ctx.
func (w *ReliableScorer) WatchHealth(ctx context.Context, hr HealthReporter, service string, every time.Duration) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	last := healthpb.HealthCheckResponse_UNKNOWN
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if w.cb.State() == gobreaker.StateOpen {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		if status != last {
			hr.SetServingStatus(service, status)
			last = status
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
