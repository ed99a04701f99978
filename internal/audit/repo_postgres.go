package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PostgresRepo stores entries in audit_logs. The table carries no UPDATE/DELETE
// grants for the application role; see internal/db/migrations.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const auditColumns = `id, tenant_id, event_type, category, result, actor_id, actor_role, actor_type,
       target_type, target_id, message, metadata, ip_address, user_agent, request_id, created_at, duration_ms`

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	meta, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO audit_logs (
  id, tenant_id, event_type, category, result, actor_id, actor_role, actor_type,
  target_type, target_id, message, metadata, ip_address, user_agent, request_id, created_at, duration_ms
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)
`
	var duration any
	if e.DurationMs != nil {
		duration = *e.DurationMs
	}
	_, err = r.db.ExecContext(ctx, q,
		e.ID,
		nullIfEmpty(e.TenantID),
		string(e.EventType),
		string(e.Category),
		string(e.Result),
		e.Actor.ID,
		e.Actor.Role,
		string(e.Actor.Type),
		e.TargetType,
		e.TargetID,
		e.Message,
		meta,
		e.Request.IPAddress,
		e.Request.UserAgent,
		e.Request.RequestID,
		e.CreatedAt,
		duration,
	)
	return err
}

func (r *PostgresRepo) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q, args := buildQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var (
			e        Entry
			tenantID sql.NullString
			meta     []byte
			duration sql.NullInt64
		)
		if err := rows.Scan(
			&e.ID,
			&tenantID,
			&e.EventType,
			&e.Category,
			&e.Result,
			&e.Actor.ID,
			&e.Actor.Role,
			&e.Actor.Type,
			&e.TargetType,
			&e.TargetID,
			&e.Message,
			&meta,
			&e.Request.IPAddress,
			&e.Request.UserAgent,
			&e.Request.RequestID,
			&e.CreatedAt,
			&duration,
		); err != nil {
			return nil, err
		}
		e.TenantID = tenantID.String
		if duration.Valid {
			d := duration.Int64
			e.DurationMs = &d
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("audit: decode metadata for %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// buildQuery renders f into a parameterized SELECT. Set filters expand into
// IN lists so the arguments stay plain driver values.
func buildQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	in := func(col string, vals []string) {
		ph := make([]string, len(vals))
		for i, v := range vals {
			ph[i] = arg(v)
		}
		where = append(where, fmt.Sprintf("%s IN (%s)", col, strings.Join(ph, ",")))
	}

	if f.TenantID != "" {
		where = append(where, "tenant_id = "+arg(f.TenantID))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < "+arg(f.To))
	}
	if len(f.EventTypes) > 0 {
		in("event_type", toStrings(f.EventTypes))
	}
	if len(f.Results) > 0 {
		in("result", toStrings(f.Results))
	}
	if len(f.Categories) > 0 {
		in("category", toStrings(f.Categories))
	}
	if f.ActorID != "" {
		where = append(where, "actor_id = "+arg(f.ActorID))
	}
	if f.TargetType != "" {
		where = append(where, "target_type = "+arg(f.TargetType))
	}
	if f.TargetID != "" {
		where = append(where, "target_id = "+arg(f.TargetID))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(auditColumns)
	b.WriteString("\nFROM audit_logs")
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY created_at DESC, id DESC")
	b.WriteString("\nLIMIT " + arg(f.Limit))
	b.WriteString(" OFFSET " + arg(f.Offset))
	return b.String(), args
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("audit: encode metadata: %w", err)
	}
	return b, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
