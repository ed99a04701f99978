package tenant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"compliance-platform/internal/catalog"
	"compliance-platform/pkg/utils"
)

// PostgresRepo uses the tenants and tenant_services tables.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const tenantColumns = `id, name, slug, status, COALESCE(parent_id, ''), disabled_at, disabled_by, disabled_reason, created_at, updated_at`

func scanTenant(row interface{ Scan(...any) error }) (Tenant, error) {
	var (
		t          Tenant
		disabledAt sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Status, &t.ParentID, &disabledAt,
		&t.DisabledBy, &t.DisabledReason, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Tenant{}, err
	}
	if disabledAt.Valid {
		at := disabledAt.Time
		t.DisabledAt = &at
	}
	return t, nil
}

func (r *PostgresRepo) Create(ctx context.Context, t Tenant) error {
	const q = `
INSERT INTO tenants (id, name, slug, status, parent_id, disabled_by, disabled_reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), '', '', $6, $7)
`
	_, err := r.db.ExecContext(ctx, q, t.ID, t.Name, t.Slug, string(t.Status), t.ParentID, t.CreatedAt, t.UpdatedAt)
	if utils.IsUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Tenant, error) {
	t, err := scanTenant(r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	return t, err
}

func (r *PostgresRepo) UpdateStatus(ctx context.Context, t Tenant) error {
	const q = `
UPDATE tenants
SET status = $2, disabled_at = $3, disabled_by = $4, disabled_reason = $5, updated_at = $6
WHERE id = $1
`
	var disabledAt any
	if t.DisabledAt != nil {
		disabledAt = *t.DisabledAt
	}
	res, err := r.db.ExecContext(ctx, q, t.ID, string(t.Status), disabledAt, t.DisabledBy, t.DisabledReason, t.UpdatedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListChildren(ctx context.Context, parentID string) ([]Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE parent_id = $1 ORDER BY slug`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) SetService(ctx context.Context, tenantID string, code catalog.ServiceCode, enabled bool, actorID string, at time.Time) error {
	const q = `
INSERT INTO tenant_services (tenant_id, service_code, enabled, updated_at, updated_by)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id, service_code)
DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at, updated_by = EXCLUDED.updated_by
`
	_, err := r.db.ExecContext(ctx, q, tenantID, string(code), enabled, at, actorID)
	return err
}

func (r *PostgresRepo) ServiceEnabled(ctx context.Context, tenantID string, code catalog.ServiceCode) (bool, error) {
	var enabled bool
	err := r.db.QueryRowContext(ctx,
		`SELECT enabled FROM tenant_services WHERE tenant_id = $1 AND service_code = $2`,
		tenantID, string(code)).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return enabled, err
}

func (r *PostgresRepo) Services(ctx context.Context, tenantID string) (map[catalog.ServiceCode]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT service_code, enabled FROM tenant_services WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[catalog.ServiceCode]bool)
	for rows.Next() {
		var (
			code    catalog.ServiceCode
			enabled bool
		)
		if err := rows.Scan(&code, &enabled); err != nil {
			return nil, err
		}
		out[code] = enabled
	}
	return out, rows.Err()
}
