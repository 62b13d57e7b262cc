package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const warmupLockTTL = 30 * time.Second

// WarmupSet прогревает L1 (память процесса) и L2 (Redis-набор) одним и тем же списком.
// В Redis список заливается только если набор пуст: уже живущее там состояние важнее
// стартового сида. Заливает один инстанс, остальные видят занятый лок и выходят.
func WarmupSet(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	ids []string,
	redisKey string,
	lockKey string,
	updateL1 func([]string),
) error {
	updateL1(ids)

	ok, err := rdb.SetNX(ctx, lockKey, "processing", warmupLockTTL).Result()
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("warm-up is held by another instance", zap.String("key", redisKey))
		return nil
	}
	defer rdb.Del(context.WithoutCancel(ctx), lockKey)

	count, err := rdb.SCard(ctx, redisKey).Result()
	if err != nil {
		count = 0
		logger.Warn("could not check Redis set size, proceeding with warm-up",
			zap.String("key", redisKey), zap.Error(err))
	}

	if count > 0 || len(ids) == 0 {
		return nil
	}

	logger.Info("Redis set is empty, performing warm-up",
		zap.String("key", redisKey), zap.Int("count", len(ids)))

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	return rdb.SAdd(ctx, redisKey, members...).Err()
}
