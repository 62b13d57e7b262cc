package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/floorwatch/internal/audit"
	"github.com/xela07ax/floorwatch/internal/domain"
)

// TemporaryAccess - хранилище временных допусков: локальный реестр
// (engine.LocalAccess) или реестр с зеркалом в Redis (engine.TemporarySync).
type TemporaryAccess interface {
	Add(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// RequestMeta - что известно о вызывающем для журнала.
type RequestMeta struct {
	RequestID  string
	RemoteAddr string
}

type AccessService struct {
	store   TemporaryAccess
	auditor audit.Auditor
	logger  *zap.Logger
}

func NewAccessService(store TemporaryAccess, auditor audit.Auditor, logger *zap.Logger) *AccessService {
	return &AccessService{
		store:   store,
		auditor: auditor,
		logger:  logger.Named("access-service"),
	}
}

// Grant выдаёт временный допуск. Повторная выдача не ошибка.
// Возвращает идентификатор в каноническом виде.
func (s *AccessService) Grant(ctx context.Context, rawID string, meta RequestMeta) (string, error) {
	id := domain.NormalizeID(rawID)
	if id == "" {
		return "", fmt.Errorf("grant temporary access: %w", domain.ErrInvalidIdentifier)
	}

	added, err := s.store.Add(ctx, id)
	outcome := audit.OutcomeApplied
	if !added {
		outcome = audit.OutcomeUnchanged
	}
	s.record(audit.ActionTemporaryAdd, id, outcome, meta, err)
	if err != nil {
		return id, fmt.Errorf("grant temporary access: %w", err)
	}

	s.logger.Info("temporary access granted", zap.String("id", id), zap.Bool("changed", added))
	return id, nil
}

// Revoke снимает временный допуск. Отсутствующий допуск - domain.ErrNotFound.
func (s *AccessService) Revoke(ctx context.Context, rawID string, meta RequestMeta) (string, error) {
	id := domain.NormalizeID(rawID)
	if id == "" {
		return "", fmt.Errorf("revoke temporary access: %w", domain.ErrInvalidIdentifier)
	}

	found, err := s.store.Remove(ctx, id)
	switch {
	case err != nil:
		s.record(audit.ActionTemporaryRemove, id, audit.OutcomeFailed, meta, err)
		return id, fmt.Errorf("revoke temporary access: %w", err)
	case !found:
		s.record(audit.ActionTemporaryRemove, id, audit.OutcomeNotFound, meta, nil)
		return id, fmt.Errorf("revoke temporary access %s: %w", id, domain.ErrNotFound)
	}

	s.record(audit.ActionTemporaryRemove, id, audit.OutcomeApplied, meta, nil)
	s.logger.Info("temporary access revoked", zap.String("id", id))
	return id, nil
}

// List отдаёт текущий набор временных допусков, никогда не nil.
func (s *AccessService) List(ctx context.Context) ([]string, error) {
	ids, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *AccessService) record(action, id, outcome string, meta RequestMeta, err error) {
	event := audit.AccessEvent{
		ID:         uuid.New().String(),
		RequestID:  meta.RequestID,
		Action:     action,
		DeviceID:   id,
		Outcome:    outcome,
		RemoteAddr: meta.RemoteAddr,
	}
	if err != nil {
		event.Outcome = audit.OutcomeFailed
		event.Error = err.Error()
	}
	s.auditor.Log(event)
}
