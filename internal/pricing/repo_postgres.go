package pricing

import (
	"context"
	"database/sql"
	"errors"

	"compliance-platform/internal/catalog"
)

// PostgresRepo stores prices in service_prices. The platform default row has a NULL
// tenant_id; uniqueness is enforced on (COALESCE(tenant_id, ''), service_code).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const priceColumns = `id, COALESCE(tenant_id, ''), service_code, price_minor, currency, active, created_at, updated_at, updated_by`

func scanPrice(row interface{ Scan(...any) error }) (ServicePrice, error) {
	var p ServicePrice
	err := row.Scan(&p.ID, &p.TenantID, &p.ServiceCode, &p.PriceMinor, &p.Currency, &p.Active, &p.CreatedAt, &p.UpdatedAt, &p.UpdatedBy)
	return p, err
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error) {
	q := `SELECT ` + priceColumns + `
FROM service_prices
WHERE COALESCE(tenant_id, '') = $1 AND service_code = $2`
	p, err := scanPrice(r.db.QueryRowContext(ctx, q, tenantID, string(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return ServicePrice{}, false, nil
	}
	if err != nil {
		return ServicePrice{}, false, err
	}
	return p, true, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, p ServicePrice) (ServicePrice, error) {
	const q = `
INSERT INTO service_prices (id, tenant_id, service_code, price_minor, currency, active, created_at, updated_at, updated_by)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $7, $8)
ON CONFLICT ((COALESCE(tenant_id, '')), service_code)
DO UPDATE SET price_minor = EXCLUDED.price_minor,
              currency = EXCLUDED.currency,
              active = EXCLUDED.active,
              updated_at = EXCLUDED.updated_at,
              updated_by = EXCLUDED.updated_by
RETURNING id, created_at
`
	if err := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.TenantID,
		string(p.ServiceCode),
		p.PriceMinor,
		p.Currency,
		p.Active,
		p.UpdatedAt,
		p.UpdatedBy,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return ServicePrice{}, err
	}
	return p, nil
}

func (r *PostgresRepo) List(ctx context.Context, tenantID string) ([]ServicePrice, error) {
	q := `SELECT ` + priceColumns + `
FROM service_prices
WHERE COALESCE(tenant_id, '') = $1
ORDER BY service_code`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ServicePrice, 0)
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
