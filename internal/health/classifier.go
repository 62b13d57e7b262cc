package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/policy"
)

const (
	DefaultBreakdownHours = 5
	DefaultWarningHours   = 24
)

// Scorer - непрозрачная модель RUL: вектор признаков на входе, часы ресурса на выходе.
type Scorer interface {
	Score(ctx context.Context, features []float64) (float64, error)
}

type Thresholds struct {
	BreakdownHours float64 `mapstructure:"breakdown_hours"`
	WarningHours   float64 `mapstructure:"warning_hours"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{BreakdownHours: DefaultBreakdownHours, WarningHours: DefaultWarningHours}
}

func (t Thresholds) Validate() error {
	if t.BreakdownHours <= 0 || t.WarningHours <= 0 {
		return fmt.Errorf("health thresholds must be positive (breakdown=%v, warning=%v)", t.BreakdownHours, t.WarningHours)
	}
	if t.BreakdownHours >= t.WarningHours {
		return fmt.Errorf("breakdown threshold %v must be below warning threshold %v", t.BreakdownHours, t.WarningHours)
	}
	return nil
}

// Tier переводит часы ресурса в уровень состояния.
func (t Thresholds) Tier(hours float64) domain.HealthStatus {
	switch {
	case hours <= t.BreakdownHours:
		return domain.StatusBreakdown
	case hours < t.WarningHours:
		return domain.StatusWarning
	default:
		return domain.StatusGood
	}
}

type Classifier struct {
	scorer      Scorer
	criticality policy.Resolver
	thresholds  Thresholds
	now         func() time.Time
}

type Option func(*Classifier)

// WithClock подменяет источник текущего времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) { c.now = now }
}

// NewClassifier: scorer может быть nil, тогда ресурс всегда недоступен.
func NewClassifier(scorer Scorer, criticality policy.Resolver, t Thresholds, opts ...Option) *Classifier {
	c := &Classifier{
		scorer:      scorer,
		criticality: criticality,
		thresholds:  t,
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// EstimateRUL возвращает остаток ресурса в часах, отрицательные оценки обрезаются до нуля.
// Любая ошибка оборачивает domain.ErrScoringUnavailable.
func (c *Classifier) EstimateRUL(ctx context.Context, rec domain.SensorRecord) (float64, error) {
	if c.scorer == nil {
		return 0, fmt.Errorf("no model configured: %w", domain.ErrScoringUnavailable)
	}
	vec, err := BuildVector(rec)
	if err != nil {
		return 0, err
	}
	hours, err := c.scorer.Score(ctx, vec)
	if err != nil {
		if errors.Is(err, domain.ErrScoringUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("machine %s: %w: %w", rec.MachineID, domain.ErrScoringUnavailable, err)
	}
	return max(hours, 0), nil
}

// Assess классифицирует одну запись. Если оценка ресурса невозможна, возвращается
// снимок со статусом Unknown и ошибка с причиной: снимок при этом остаётся валидным.
func (c *Classifier) Assess(ctx context.Context, machine domain.Entity, rec domain.SensorRecord) (domain.HealthAssessment, error) {
	a := domain.HealthAssessment{
		Status:        domain.StatusUnknown,
		FailureReason: InferFailureReason(rec),
	}

	hours, err := c.EstimateRUL(ctx, rec)
	if err != nil {
		a.Priority = c.priority(machine.Name, a.Status)
		return a, err
	}

	predicted := c.now().Add(time.Duration(hours * float64(time.Hour)))
	a.RUL = &hours
	a.Status = c.thresholds.Tier(hours)
	a.Priority = c.priority(machine.Name, a.Status)
	a.PredictedFailureAt = &predicted
	return a, nil
}

func (c *Classifier) priority(name string, status domain.HealthStatus) domain.Priority {
	if c.criticality == nil {
		return policy.StatusPriority(status)
	}
	return c.criticality.Priority(name, status)
}
