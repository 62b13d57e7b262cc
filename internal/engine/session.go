package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/health"
	"github.com/xela07ax/floorwatch/internal/zone"
)

// StreamKind - вид потока, по одному на эндпоинт.
type StreamKind string

const (
	StreamAuthorization StreamKind = "authorization"
	StreamZones         StreamKind = "zones"
	StreamMachines      StreamKind = "machines"
)

func ParseStreamKind(s string) (StreamKind, error) {
	switch k := StreamKind(s); k {
	case StreamAuthorization, StreamZones, StreamMachines:
		return k, nil
	default:
		return "", fmt.Errorf("unknown stream %q", s)
	}
}

// Emitter - выход сессии (SSE, WebSocket). Ошибка Emit означает, что наблюдатель ушёл.
type Emitter interface {
	Emit(ev domain.Event) error
}

// RecordSource отдаёт весь набор записей для одного прохода.
// Ошибки оборачивают domain.ErrSourceUnavailable или domain.ErrSourceMalformed.
type RecordSource interface {
	Locations(ctx context.Context) ([]domain.LocationRecord, error)
	Sensors(ctx context.Context) ([]domain.SensorRecord, error)
}

// ErrObserverGone - запись в Emitter не удалась, событие error слать уже некуда.
var ErrObserverGone = errors.New("observer gone")

type Engine struct {
	registry *IdentityRegistry
	zones    zone.Classifier
	health   *health.Classifier
	source   RecordSource
	duration time.Duration
	metrics  *Metrics
	logger   *zap.Logger
}

func NewEngine(
	registry *IdentityRegistry,
	zones zone.Classifier,
	hc *health.Classifier,
	source RecordSource,
	duration time.Duration,
	metrics *Metrics,
	logger *zap.Logger,
) *Engine {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Engine{
		registry: registry,
		zones:    zones,
		health:   hc,
		source:   source,
		duration: duration,
		metrics:  metrics,
		logger:   logger.Named("session"),
	}
}

// session - состояние одного подключения. Между сессиями ничего не разделяется,
// кроме реестра.
type session struct {
	*Engine
	id     string
	kind   StreamKind
	out    Emitter
	logger *zap.Logger
}

// Run гонит один поток до конца записей, отмены ctx или первого отказа.
// Отказ источника или обработки записи превращается ровно в одно событие error,
// после которого поток закрывается, и возвращается вызывающему. При отмене ctx
// возвращается nil, при уходе наблюдателя - ErrObserverGone.
func (e *Engine) Run(ctx context.Context, kind StreamKind, out Emitter) error {
	s := &session{
		Engine: e,
		id:     uuid.New().String(),
		kind:   kind,
		out:    out,
	}
	s.logger = e.logger.With(zap.String("session_id", s.id), zap.String("stream", string(kind)))

	start := time.Now()
	gauge := e.metrics.ActiveSessions.WithLabelValues(string(kind))
	gauge.Inc()
	defer gauge.Dec()
	s.logger.Info("session started")

	err := s.stream(ctx)

	outcome := "completed"
	switch {
	case err == nil:
	case ctx.Err() != nil || errors.Is(err, ErrObserverGone):
		outcome = "disconnected"
	default:
		outcome = "failed"
		err = s.fail(err)
	}

	e.metrics.SessionDuration.WithLabelValues(string(kind), outcome).Observe(time.Since(start).Seconds())
	s.logger.Info("session finished", zap.String("outcome", outcome), zap.Duration("elapsed", time.Since(start)))

	if outcome == "disconnected" && !errors.Is(err, ErrObserverGone) {
		return nil
	}
	return err
}

func (s *session) stream(ctx context.Context) error {
	switch s.kind {
	case StreamAuthorization, StreamZones:
		records, err := s.source.Locations(ctx)
		if err != nil {
			return err
		}
		handle := s.authorization
		if s.kind == StreamZones {
			handle = s.zoneAware
		}
		return Replay(ctx, records, s.duration, func(i int, rec domain.LocationRecord) error {
			return s.guard(i, func() error { return handle(rec) })
		})

	case StreamMachines:
		records, err := s.source.Sensors(ctx)
		if err != nil {
			return err
		}
		return Replay(ctx, records, s.duration, func(i int, rec domain.SensorRecord) error {
			return s.guard(i, func() error { return s.machine(ctx, rec) })
		})
	}
	return fmt.Errorf("unknown stream %q", s.kind)
}

// guard превращает панику обработчика записи в обычную ошибку сессии.
func (s *session) guard(i int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("record %d: panic: %v", i, r)
		}
	}()
	return fn()
}

// fail отправляет терминальное событие error и возвращает исходную ошибку.
func (s *session) fail(cause error) error {
	ev := domain.NewErrorEvent(cause)
	s.metrics.SessionFailures.WithLabelValues(ev.Class).Inc()
	s.logger.Error("session failed", zap.String("class", ev.Class), zap.Error(cause))

	if err := s.out.Emit(ev); err != nil {
		s.logger.Debug("could not deliver error event", zap.Error(err))
	} else {
		s.metrics.EventsTotal.WithLabelValues(string(s.kind), string(ev.Kind())).Inc()
	}
	return cause
}

func (s *session) emit(ev domain.Event, err error) error {
	if err != nil {
		return fmt.Errorf("build %T: %w", ev, err)
	}
	if err := s.out.Emit(ev); err != nil {
		return fmt.Errorf("%w: %w", ErrObserverGone, err)
	}
	s.metrics.EventsTotal.WithLabelValues(string(s.kind), string(ev.Kind())).Inc()
	return nil
}

func (s *session) skip(reason string, fields ...zap.Field) {
	s.metrics.RecordsSkipped.WithLabelValues(string(s.kind), reason).Inc()
	s.logger.Debug("record skipped", append(fields, zap.String("reason", reason))...)
}

// authorization: свои получают update, остальные unauthorized с сырой записью.
func (s *session) authorization(rec domain.LocationRecord) error {
	status := s.registry.AuthorizationStatus(rec.DeviceID)
	if !status.Authorized() {
		return s.emit(domain.NewUnauthorizedEvent(rec))
	}

	var entity *domain.Entity
	if e, err := s.registry.Resolve(rec.DeviceID); err == nil {
		entity = &e
	}
	return s.emit(domain.NewUpdateEvent(rec, entity, status))
}

// zoneAware: неизвестные устройства пропускаются, нарушение зоны идёт перед update.
func (s *session) zoneAware(rec domain.LocationRecord) error {
	entity, err := s.registry.Resolve(rec.DeviceID)
	if err != nil {
		s.skip("unresolved", zap.String("device_id", rec.DeviceID))
		return nil
	}

	loc := rec.Location()
	if actual, violation := zone.Check(s.zones, entity, loc); violation {
		if err := s.emit(domain.NewZoneViolationEvent(rec, entity, actual)); err != nil {
			return err
		}
	}
	return s.emit(domain.NewUpdateEvent(rec, &entity, s.registry.AuthorizationStatus(rec.DeviceID)))
}

// machine: machine всегда, maintenance сразу следом, если поднята тревога.
func (s *session) machine(ctx context.Context, rec domain.SensorRecord) error {
	m, err := s.registry.ResolveMachine(rec.MachineID)
	if err != nil {
		s.skip("unresolved", zap.String("machine_id", rec.MachineID))
		return nil
	}

	a, err := s.health.Assess(ctx, m, rec)
	if err != nil {
		if !errors.Is(err, domain.ErrScoringUnavailable) {
			return err
		}
		s.metrics.ScoringFailures.Inc()
		s.logger.Debug("rul unavailable", zap.String("machine_id", rec.MachineID), zap.Error(err))
	}

	if err := s.emit(domain.NewMachineEvent(rec, m, a)); err != nil {
		return err
	}
	if !a.MaintenanceAlert() {
		return nil
	}
	return s.emit(domain.NewMaintenanceEvent(rec, m, a))
}
