package audit

import "time"

// Filter selects audit entries. All populated fields are combined with AND;
// set-valued fields match any member of the set.
type Filter struct {
	TenantID string `json:"tenant_id,omitempty"`

	// From is inclusive, To is exclusive. Zero values are unbounded.
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`

	EventTypes []EventType `json:"event_types,omitempty"`
	Results    []Result    `json:"results,omitempty"`
	Categories []Category  `json:"categories,omitempty"`

	ActorID    string `json:"actor_id,omitempty"`
	TargetType string `json:"target_type,omitempty"`
	TargetID   string `json:"target_id,omitempty"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func (f Filter) normalize(maxLimit int) (Filter, error) {
	if f.Offset < 0 || f.Limit < 0 {
		return Filter{}, ErrInvalidFilter
	}
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return Filter{}, ErrInvalidFilter
	}
	for _, t := range f.EventTypes {
		if !t.Valid() {
			return Filter{}, ErrInvalidFilter
		}
	}
	for _, r := range f.Results {
		if !r.Valid() {
			return Filter{}, ErrInvalidFilter
		}
	}
	if f.Limit == 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	return f, nil
}

// Matches reports whether e satisfies every populated criterion.
func (f Filter) Matches(e Entry) bool {
	if f.TenantID != "" && e.TenantID != f.TenantID {
		return false
	}
	if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
		return false
	}
	if len(f.EventTypes) > 0 && !contains(f.EventTypes, e.EventType) {
		return false
	}
	if len(f.Results) > 0 && !contains(f.Results, e.Result) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, e.Category) {
		return false
	}
	if f.ActorID != "" && e.Actor.ID != f.ActorID {
		return false
	}
	if f.TargetType != "" && e.TargetType != f.TargetType {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	return true
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
