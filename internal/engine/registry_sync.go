package engine

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/infra"
)

// TemporarySync держит временные допуски нескольких инстансов согласованными через Redis:
// набор лежит в Redis-set, изменения рассылаются в pub/sub. Побеждает последняя запись.
type TemporarySync struct {
	reg    *IdentityRegistry
	rdb    *redis.Client
	logger *zap.Logger
}

func NewTemporarySync(reg *IdentityRegistry, rdb *redis.Client, logger *zap.Logger) *TemporarySync {
	return &TemporarySync{
		reg:    reg,
		rdb:    rdb,
		logger: logger.With(zap.String("mod", "temporary_access")),
	}
}

// Init сидирует Redis локальным набором (если там пусто) и забирает итоговое состояние.
func (s *TemporarySync) Init(ctx context.Context) error {
	seed := s.reg.ListTemporary()
	err := WarmupSet(ctx, s.rdb, s.logger, seed,
		infra.RedisKeyTemporaryAccess, infra.GetWarmupLockKey(infra.WarmupResourceTemporaryAccess),
		func(ids []string) {
			for _, id := range ids {
				s.reg.AddTemporary(id)
			}
		})
	if err != nil {
		return fmt.Errorf("warm-up temporary access: %w", err)
	}
	return s.resync(ctx)
}

func (s *TemporarySync) resync(ctx context.Context) error {
	ids, err := s.rdb.SMembers(ctx, infra.RedisKeyTemporaryAccess).Result()
	if err != nil {
		return fmt.Errorf("load temporary access: %w", err)
	}
	s.reg.ReplaceTemporary(ids)
	s.logger.Info("temporary access synced", zap.Int("count", len(ids)))
	return nil
}

// StartListener блокируется до отмены ctx, применяя сигналы других инстансов.
func (s *TemporarySync) StartListener(ctx context.Context) {
	ListenStateResilient(ctx, s.rdb, s.logger, infra.RedisChanTemporaryAccess,
		func() error { return s.resync(ctx) },
		func(id string, on bool) {
			if on {
				s.reg.AddTemporary(id)
				return
			}
			s.reg.RemoveTemporary(id)
		},
	)
}

// Add применяет изменение локально, затем в Redis одной транзакцией с рассылкой.
func (s *TemporarySync) Add(ctx context.Context, id string) (bool, error) {
	id = domain.NormalizeID(id)
	added := s.reg.AddTemporary(id)

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, infra.RedisKeyTemporaryAccess, id)
		pipe.Publish(ctx, infra.RedisChanTemporaryAccess, FormatSignal(id, true))
		return nil
	})
	if err != nil {
		s.logger.Error("failed to propagate temporary access", zap.String("id", id), zap.Error(err))
		return added, fmt.Errorf("propagate %s: %w", id, err)
	}
	return added, nil
}

// Remove находит идентификатор как локально, так и в Redis: другой инстанс мог
// добавить его раньше, чем до нас дошёл сигнал.
func (s *TemporarySync) Remove(ctx context.Context, id string) (bool, error) {
	id = domain.NormalizeID(id)
	found := s.reg.RemoveTemporary(id)

	var srem *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		srem = pipe.SRem(ctx, infra.RedisKeyTemporaryAccess, id)
		pipe.Publish(ctx, infra.RedisChanTemporaryAccess, FormatSignal(id, false))
		return nil
	})
	if err != nil {
		s.logger.Error("failed to propagate temporary access removal", zap.String("id", id), zap.Error(err))
		return found, fmt.Errorf("propagate %s: %w", id, err)
	}
	return found || srem.Val() > 0, nil
}

func (s *TemporarySync) List(context.Context) ([]string, error) {
	return s.reg.ListTemporary(), nil
}

// LocalAccess - то же API без Redis, для одиночного инстанса.
type LocalAccess struct {
	reg *IdentityRegistry
}

func NewLocalAccess(reg *IdentityRegistry) *LocalAccess {
	return &LocalAccess{reg: reg}
}

func (l *LocalAccess) Add(_ context.Context, id string) (bool, error) {
	return l.reg.AddTemporary(id), nil
}

func (l *LocalAccess) Remove(_ context.Context, id string) (bool, error) {
	return l.reg.RemoveTemporary(id), nil
}

func (l *LocalAccess) List(context.Context) ([]string, error) {
	return l.reg.ListTemporary(), nil
}
