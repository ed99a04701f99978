package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

var exportHeader = []string{
	"id", "created_at", "tenant_id", "event_type", "category", "result",
	"actor_id", "actor_role", "actor_type", "target_type", "target_id",
	"message", "ip_address", "user_agent", "request_id", "duration_ms", "metadata",
}

// Export pages through every entry matching f (ignoring f.Limit/f.Offset) and
// writes them as CSV, newest first. It returns the number of rows written.
func (r *Recorder) Export(ctx context.Context, f Filter, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	page := r.maxLimit()
	f.Limit = page
	f.Offset = 0
	n := 0
	for {
		batch, err := r.Query(ctx, f)
		if err != nil {
			return n, err
		}
		for _, e := range batch {
			if err := cw.Write(exportRow(e)); err != nil {
				return n, err
			}
			n++
		}
		if len(batch) < page {
			break
		}
		f.Offset += page
	}
	cw.Flush()
	return n, cw.Error()
}

func exportRow(e Entry) []string {
	duration := ""
	if e.DurationMs != nil {
		duration = strconv.FormatInt(*e.DurationMs, 10)
	}
	meta := ""
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			meta = string(b)
		}
	}
	return []string{
		e.ID,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.TenantID,
		string(e.EventType),
		string(e.Category),
		string(e.Result),
		e.Actor.ID,
		e.Actor.Role,
		string(e.Actor.Type),
		e.TargetType,
		e.TargetID,
		e.Message,
		e.Request.IPAddress,
		e.Request.UserAgent,
		e.Request.RequestID,
		duration,
		meta,
	}
}
