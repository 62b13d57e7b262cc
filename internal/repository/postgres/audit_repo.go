package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/floorwatch/internal/audit"
)

// AuditRepo - хранилище журнала изменений временных допусков.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

var auditColumns = []string{"id", "request_id", "action", "device_id", "outcome", "remote_addr", "error", "timestamp"}

// WriteBatch пишет пачку событий через COPY: одна операция на весь flush.
func (r *AuditRepo) WriteBatch(ctx context.Context, events []audit.AccessEvent) error {
	if len(events) == 0 {
		return nil
	}

	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"access_audit"},
		auditColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			id, err := uuid.Parse(e.ID)
			if err != nil {
				return nil, fmt.Errorf("audit event id %q: %w", e.ID, err)
			}
			return []any{id, e.RequestID, e.Action, e.DeviceID, e.Outcome, e.RemoteAddr, e.Error, e.Timestamp}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("postgres: copy %d audit events: %w", len(events), err)
	}
	return nil
}
