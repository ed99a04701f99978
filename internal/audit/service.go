package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"compliance-platform/internal/metrics"
	"compliance-platform/pkg/utils"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only: there are no Update/Delete methods.
// Append is atomic; Query never observes a partially written entry.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
}

var (
	ErrInvalidEntry  = errors.New("audit: invalid entry")
	ErrInvalidFilter = errors.New("audit: invalid filter")
)

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// Recorder appends and queries the audit trail.
//
// Record never drops an entry silently: any repository failure is returned to the
// caller (wrapped with utils.ErrStorageUnavailable) and must be treated as fatal.
type Recorder struct {
	repo    Repository
	metrics *metrics.Metrics
	clock   func() time.Time

	// MaxLimit caps Query page size. Zero means MaxQueryLimit.
	MaxLimit int
}

func NewRecorder(repo Repository, m *metrics.Metrics) *Recorder {
	return &Recorder{repo: repo, metrics: m, clock: time.Now}
}

// Record validates e, stamps id/time and request/actor context, and appends it.
func (r *Recorder) Record(ctx context.Context, e Entry) (string, error) {
	if r.repo == nil {
		return "", fmt.Errorf("%w: audit repository not configured", utils.ErrStorageUnavailable)
	}
	if d, ok := Describe(e.EventType); ok && e.Category == "" {
		e.Category = d.Category
	}
	if err := e.Validate(); err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.clock().UTC()
	}
	if e.Actor.Type == "" {
		e.Actor = ActorFromContext(ctx)
	}
	if e.Request == (RequestInfo{}) {
		e.Request = RequestFromContext(ctx)
	}

	if err := r.repo.Append(ctx, e); err != nil {
		return "", utils.Unavailable(err)
	}
	r.metrics.ObserveAudit(string(e.Category), string(e.Result))
	return e.ID, nil
}

// Query returns matching entries newest first.
func (r *Recorder) Query(ctx context.Context, f Filter) ([]Entry, error) {
	if r.repo == nil {
		return nil, fmt.Errorf("%w: audit repository not configured", utils.ErrStorageUnavailable)
	}
	f, err := f.normalize(r.maxLimit())
	if err != nil {
		return nil, err
	}
	out, err := r.repo.Query(ctx, f)
	if err != nil {
		return nil, utils.Unavailable(err)
	}
	return out, nil
}

func (r *Recorder) maxLimit() int {
	if r.MaxLimit <= 0 {
		return MaxQueryLimit
	}
	return r.MaxLimit
}
