package postgres

/*
Справочник площадки в PostgreSQL: сотрудники, станки, постоянные и стартовые
временные допуски, критичность станков. Читается один раз при старте,
горячий путь работает только с IdentityRegistry в памяти.
*/

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xela07ax/floorwatch/internal/domain"
	"github.com/xela07ax/floorwatch/internal/engine"
	"github.com/xela07ax/floorwatch/internal/policy"
)

type DirectoryRepo struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepo(pool *pgxpool.Pool) *DirectoryRepo {
	return &DirectoryRepo{pool: pool}
}

// LoadDirectory выполняет "холодную загрузку" всего справочника.
func (r *DirectoryRepo) LoadDirectory(ctx context.Context) (engine.Directory, error) {
	var (
		dir engine.Directory
		err error
	)
	if dir.Employees, err = r.GetEmployees(ctx); err != nil {
		return dir, err
	}
	if dir.Machines, err = r.GetMachines(ctx); err != nil {
		return dir, err
	}
	if dir.Permanent, err = r.getGrants(ctx, "permanent"); err != nil {
		return dir, err
	}
	if dir.Temporary, err = r.getGrants(ctx, "temporary"); err != nil {
		return dir, err
	}
	return dir, nil
}

func (r *DirectoryRepo) GetEmployees(ctx context.Context) ([]domain.Entity, error) {
	query := `SELECT mac_address, name, company, role, floor FROM employees ORDER BY mac_address`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query employees: %w", err)
	}
	defer rows.Close()

	var results []domain.Entity
	for rows.Next() {
		e := domain.Entity{Kind: domain.KindEmployee}
		if err := rows.Scan(&e.ID, &e.Name, &e.Zone, &e.Role, &e.Floor); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func (r *DirectoryRepo) GetMachines(ctx context.Context) ([]domain.Entity, error) {
	query := `SELECT mac_address, machine_id, name, company, floor, lat, lng FROM machines ORDER BY machine_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query machines: %w", err)
	}
	defer rows.Close()

	var results []domain.Entity
	for rows.Next() {
		var (
			m        = domain.Entity{Kind: domain.KindMachine}
			lat, lng *float64
		)
		if err := rows.Scan(&m.ID, &m.MachineID, &m.Name, &m.Zone, &m.Floor, &lat, &lng); err != nil {
			return nil, err
		}
		if lat != nil && lng != nil {
			loc := domain.NewLocation(*lat, *lng)
			m.Location = &loc
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

func (r *DirectoryRepo) getGrants(ctx context.Context, kind string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT mac_address FROM access_grants WHERE kind = $1`, kind)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s grants: %w", kind, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan %s grants: %w", kind, err)
	}
	return ids, nil
}

// GetMachineCriticality отдаёт уровни критичности для policy.MemoCriticality.
func (r *DirectoryRepo) GetMachineCriticality(ctx context.Context) ([]policy.MachineCriticality, error) {
	query := `SELECT name, criticality FROM machines WHERE criticality IS NOT NULL`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query criticality: %w", err)
	}
	defer rows.Close()

	var results []policy.MachineCriticality
	for rows.Next() {
		var (
			name  string
			level string
		)
		if err := rows.Scan(&name, &level); err != nil {
			return nil, err
		}
		results = append(results, policy.MachineCriticality{Name: name, Level: domain.Priority(level)})
	}
	return results, rows.Err()
}
