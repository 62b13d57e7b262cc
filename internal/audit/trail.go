package audit

/*
Журнал изменений временных допусков.

Запись не блокирует обработчик админки: события уходят в буферизованный канал,
воркер пишет их пачками по таймеру или по достижении размера пачки.
При остановке канал закрывается, воркер вычитывает остаток и делает финальный flush.
При переполнении буфера событие сбрасывается в лог (load shedding).
*/

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Storage определяет, куда физически сохраняются события.
type Storage interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []AccessEvent) error
}

type Auditor interface {
	Log(event AccessEvent)
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	// BufferFill - необязательный gauge заполненности буфера
	BufferFill prometheus.Gauge
}

type Trail struct {
	ch     chan AccessEvent
	repo   Storage
	opts   Options
	logger *zap.Logger
	wg     sync.WaitGroup

	// closeMu не даёт Log писать в уже закрытый канал
	closeMu sync.RWMutex
	closed  bool
}

func NewTrail(repo Storage, opts Options, logger *zap.Logger) *Trail {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	return &Trail{
		ch:     make(chan AccessEvent, opts.BufferSize),
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("mod", "audit")),
	}
}

func (t *Trail) Start() {
	t.wg.Add(1)
	go t.worker()
}

// Stop запирает вход и ждёт, пока воркер всё допишет. Повторный вызов безопасен.
func (t *Trail) Stop() {
	t.closeMu.Lock()
	if t.closed {
		t.closeMu.Unlock()
		return
	}
	t.closed = true
	close(t.ch)
	t.closeMu.Unlock()

	t.logger.Info("stopping audit trail: flushing buffer...")
	t.wg.Wait()
	t.logger.Info("audit trail stopped gracefully")
}

func (t *Trail) Log(event AccessEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	t.closeMu.RLock()
	defer t.closeMu.RUnlock()

	if t.closed {
		t.logger.Warn("audit event dropped: trail is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case t.ch <- event:
		t.observeFill()
	default:
		// Буфер полон: событие не теряем молча, оставляем след в логе
		t.logger.Error("audit_buffer_overflow",
			zap.String("action", event.Action),
			zap.String("device_id", event.DeviceID),
			zap.String("outcome", event.Outcome),
		)
	}
}

func (t *Trail) observeFill() {
	if t.opts.BufferFill != nil {
		t.opts.BufferFill.Set(float64(len(t.ch)))
	}
}

func (t *Trail) worker() {
	defer t.wg.Done()

	batch := make([]AccessEvent, 0, t.opts.BatchSize)
	ticker := time.NewTicker(t.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		t.observeFill()
		if len(batch) == 0 {
			return
		}
		// Background: контекст запроса к этому моменту уже закрыт
		if err := t.repo.WriteBatch(context.Background(), batch); err != nil {
			t.logger.Error("audit flush failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-t.ch:
			if !ok {
				// канал закрыт в Stop, всё, что было в очереди, уже вычитано
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= t.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// LogStorage пишет события в структурный лог, когда БД не настроена.
type LogStorage struct {
	logger *zap.Logger
}

func NewLogStorage(logger *zap.Logger) *LogStorage {
	return &LogStorage{logger: logger.Named("audit")}
}

func (s *LogStorage) WriteBatch(_ context.Context, events []AccessEvent) error {
	for _, e := range events {
		s.logger.Info("access change",
			zap.String("id", e.ID),
			zap.String("request_id", e.RequestID),
			zap.String("action", e.Action),
			zap.String("device_id", e.DeviceID),
			zap.String("outcome", e.Outcome),
			zap.String("remote_addr", e.RemoteAddr),
			zap.Time("timestamp", e.Timestamp),
			zap.String("error", e.Error),
		)
	}
	return nil
}
