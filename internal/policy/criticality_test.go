package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/floorwatch/internal/domain"
)

type stubCriticalityRepo struct {
	rows []MachineCriticality
	err  error
}

func (s *stubCriticalityRepo) GetMachineCriticality(context.Context) ([]MachineCriticality, error) {
	return s.rows, s.err
}

func TestMemoCriticality_Priority(t *testing.T) {
	c := NewMemoCriticality(
		[]string{"Lithography Systems"},
		[]string{"Clean Room Equipment"},
		nil, zap.NewNop(),
	)

	tests := []struct {
		name    string
		machine string
		status  domain.HealthStatus
		want    domain.Priority
	}{
		{"breakdown forces high", "Unknown Press", domain.StatusBreakdown, domain.PriorityHigh},
		{"breakdown on medium machine", "Clean Room Equipment", domain.StatusBreakdown, domain.PriorityHigh},
		{"warning on plain machine", "Unknown Press", domain.StatusWarning, domain.PriorityMedium},
		{"warning on high machine", "lithography systems", domain.StatusWarning, domain.PriorityHigh},
		{"good on high machine", "Lithography Systems", domain.StatusGood, domain.PriorityHigh},
		{"good on medium machine", "CLEAN ROOM EQUIPMENT", domain.StatusGood, domain.PriorityMedium},
		{"good on plain machine", "Unknown Press", domain.StatusGood, domain.PriorityLow},
		{"unknown status", "Unknown Press", domain.StatusUnknown, domain.PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Priority(tt.machine, tt.status))
		})
	}
}

func TestMemoCriticality_HighWinsOverMedium(t *testing.T) {
	c := NewMemoCriticality([]string{"Press"}, []string{"press"}, nil, zap.NewNop())
	assert.Equal(t, domain.PriorityHigh, c.Level("Press"))
}

func TestMemoCriticality_Refresh(t *testing.T) {
	repo := &stubCriticalityRepo{rows: []MachineCriticality{
		{Name: "Etcher", Level: domain.PriorityMedium},
		{Name: "etcher", Level: domain.PriorityHigh},
	}}
	c := NewMemoCriticality([]string{"Lithography Systems"}, nil, repo, zap.NewNop())

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, domain.PriorityHigh, c.Level("ETCHER"))
	assert.Equal(t, domain.PriorityLow, c.Level("Lithography Systems"), "refresh replaces the seed")

	repo.err = errors.New("db down")
	assert.Error(t, c.Refresh(context.Background()))
	assert.Equal(t, domain.PriorityHigh, c.Level("etcher"), "failed refresh keeps the cache")
}
