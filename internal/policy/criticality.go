package policy

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xela07ax/floorwatch/internal/domain"
)

// Resolver отвечает на вопрос "насколько критичен станок" и сводит это с уровнем здоровья.
type Resolver interface {
	Priority(machineName string, status domain.HealthStatus) domain.Priority
}

// MachineCriticality - запись справочника критичности (имя станка -> уровень).
type MachineCriticality struct {
	Name  string
	Level domain.Priority
}

type CriticalityRepository interface {
	GetMachineCriticality(ctx context.Context) ([]MachineCriticality, error)
}

// MemoCriticality - in-memory кэш критичности по имени станка.
// Горячий путь (Priority) ходит только в память, Refresh перезаливает кэш из репозитория.
type MemoCriticality struct {
	mu     sync.RWMutex
	levels map[string]domain.Priority // ключ - имя в нижнем регистре

	repo   CriticalityRepository // может быть nil, тогда кэш живёт только на сиде из конфига
	logger *zap.Logger
}

// NewMemoCriticality заполняет кэш списками high и medium из конфигурации.
func NewMemoCriticality(high, medium []string, repo CriticalityRepository, logger *zap.Logger) *MemoCriticality {
	c := &MemoCriticality{
		levels: make(map[string]domain.Priority, len(high)+len(medium)),
		repo:   repo,
		logger: logger.Named("criticality"),
	}
	for _, n := range medium {
		c.levels[normalizeName(n)] = domain.PriorityMedium
	}
	// high перекрывает medium, если имя попало в оба списка
	for _, n := range high {
		c.levels[normalizeName(n)] = domain.PriorityHigh
	}
	return c
}

// Level возвращает критичность станка по имени, Low для незнакомых.
func (c *MemoCriticality) Level(machineName string) domain.Priority {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.levels[normalizeName(machineName)]; ok {
		return p
	}
	return domain.PriorityLow
}

// Priority - старший из приоритета по уровню здоровья и критичности по имени.
// Breakdown всегда даёт High независимо от станка.
func (c *MemoCriticality) Priority(machineName string, status domain.HealthStatus) domain.Priority {
	return StatusPriority(status).Max(c.Level(machineName))
}

// Refresh перечитывает справочник и атомарно подменяет кэш.
func (c *MemoCriticality) Refresh(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	rows, err := c.repo.GetMachineCriticality(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]domain.Priority, len(rows))
	for _, r := range rows {
		key := normalizeName(r.Name)
		if cur, ok := next[key]; ok {
			next[key] = cur.Max(r.Level)
			continue
		}
		next[key] = r.Level
	}

	c.mu.Lock()
	c.levels = next
	c.mu.Unlock()

	c.logger.Info("criticality cache refreshed", zap.Int("count", len(next)))
	return nil
}

// StatusPriority - приоритет, который следует из одного только уровня здоровья.
func StatusPriority(status domain.HealthStatus) domain.Priority {
	switch status {
	case domain.StatusBreakdown:
		return domain.PriorityHigh
	case domain.StatusWarning:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
