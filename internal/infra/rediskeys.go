package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "floorwatch"
)

// Ключи для Sets (состояние)
const (
	RedisKeyTemporaryAccess = RedisNamespace + ":access:temporary_set"
)

// Ресурсы, которые прогреваются под блокировкой
const (
	WarmupResourceTemporaryAccess = "temporary_access"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanTemporaryAccess - изменения временного допуска в формате "<mac>:on|off".
	RedisChanTemporaryAccess = RedisNamespace + ":access:temporary-signal"
)

// GetWarmupLockKey Генератор ключей для блокировок прогрева
func GetWarmupLockKey(resource string) string {
	return fmt.Sprintf("%s:lock:warmup:%s", RedisNamespace, resource)
}
