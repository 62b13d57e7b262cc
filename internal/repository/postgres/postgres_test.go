package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/floorwatch/internal/audit"
	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/infra"
)

// Интеграционные тесты: нужна живая база в FLOORWATCH_TEST_DATABASE_URL.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("FLOORWATCH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLOORWATCH_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, infra.DatabaseConfig{URL: url, MaxConns: 2})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE employees, machines, access_grants, access_audit`)
	require.NoError(t, err)
	return pool
}

func TestDirectoryRepo_LoadDirectory(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO employees (mac_address, name, company, role, floor)
		VALUES ('aa:bb:cc:dd:ee:01', 'Alice', 'Apple', 'Engineer', '1');
		INSERT INTO machines (mac_address, machine_id, name, company, floor, lat, lng, criticality)
		VALUES ('28:3a:4d:31:a1:8d', '49', 'Milling Machine', 'Samsung', '1', 51.4604, -0.9325, 'High'),
		       ('28:3a:4d:31:a1:8e', '45', 'Lathe', 'Nvidia', '1', NULL, NULL, NULL);
		INSERT INTO access_grants (mac_address, kind)
		VALUES ('aa:bb:cc:dd:ee:01', 'permanent'), ('ff:ff:ff:ff:ff:01', 'temporary');
	`)
	require.NoError(t, err)

	repo := NewDirectoryRepo(pool)
	dir, err := repo.LoadDirectory(ctx)
	require.NoError(t, err)

	require.Len(t, dir.Employees, 1)
	assert.Equal(t, "Apple", dir.Employees[0].Zone)
	require.Len(t, dir.Machines, 2)
	assert.Equal(t, "45", dir.Machines[0].MachineID)
	assert.Nil(t, dir.Machines[0].Location)
	require.NotNil(t, dir.Machines[1].Location)
	assert.Equal(t, []string{"aa:bb:cc:dd:ee:01"}, dir.Permanent)
	assert.Equal(t, []string{"ff:ff:ff:ff:ff:01"}, dir.Temporary)

	levels, err := repo.GetMachineCriticality(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, domain.PriorityHigh, levels[0].Level)
}

func TestAuditRepo_WriteBatch(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewAuditRepo(pool)

	require.NoError(t, repo.WriteBatch(ctx, nil))

	events := []audit.AccessEvent{
		{ID: uuid.NewString(), Action: audit.ActionTemporaryAdd, DeviceID: "aa:bb", Outcome: audit.OutcomeApplied, Timestamp: time.Now()},
		{ID: uuid.NewString(), Action: audit.ActionTemporaryRemove, DeviceID: "aa:bb", Outcome: audit.OutcomeNotFound, Timestamp: time.Now()},
	}
	require.NoError(t, repo.WriteBatch(ctx, events))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM access_audit WHERE device_id = 'aa:bb'`).Scan(&count))
	assert.Equal(t, 2, count)
}
