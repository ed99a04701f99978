package pricing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/catalog"
)

func newTestService() (*Service, *MemoryRepo, *audit.MemoryRepo) {
	repo := NewMemoryRepo()
	logs := audit.NewMemoryRepo()
	return NewService(repo, nil, audit.NewRecorder(logs, nil)), repo, logs
}

func TestSetPrice_UpsertsAndAudits(t *testing.T) {
	svc, repo, logs := newTestService()
	ctx := context.Background()

	first, err := svc.SetPrice(ctx, SetPriceRequest{ServiceCode: catalog.KYCBasic, PriceMinor: 200, Currency: "usd", ActorID: "admin"})
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	second, err := svc.SetPrice(ctx, SetPriceRequest{ServiceCode: catalog.KYCBasic, PriceMinor: 250, Currency: "USD", ActorID: "admin"})
	if err != nil {
		t.Fatalf("set again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected upsert to keep id")
	}

	p, ok, _ := repo.Get(ctx, "", catalog.KYCBasic)
	if !ok || p.PriceMinor != 250 || p.Currency != "USD" || !p.Active {
		t.Fatalf("unexpected stored price: %+v", p)
	}

	entries := logs.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	last := entries[1]
	if last.EventType != audit.EventAdminPriceUpdated || last.Category != audit.CategoryAdmin || last.TargetID != p.ID {
		t.Fatalf("unexpected audit entry: %+v", last)
	}
	if last.Metadata["previous_price_minor"] != int64(200) {
		t.Fatalf("expected previous price in metadata, got %+v", last.Metadata)
	}
}

func TestSetPrice_Validation(t *testing.T) {
	svc, _, logs := newTestService()
	ctx := context.Background()
	if _, err := svc.SetPrice(ctx, SetPriceRequest{ServiceCode: "NOPE", PriceMinor: 1, Currency: "USD"}); !errors.Is(err, catalog.ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService, got %v", err)
	}
	if _, err := svc.SetPrice(ctx, SetPriceRequest{ServiceCode: catalog.KYCBasic, PriceMinor: 0, Currency: "USD"}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if _, err := svc.SetPrice(ctx, SetPriceRequest{ServiceCode: catalog.KYCBasic, PriceMinor: 1, Currency: "DOLLARS"}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
	if n := len(logs.Entries()); n != 0 {
		t.Fatalf("rejected requests must not be audited, got %d", n)
	}
}

func TestDeactivatePrice_FallsBackToNextLevel(t *testing.T) {
	svc, repo, logs := newTestService()
	ctx := context.Background()
	seed(t, repo, "", catalog.KYCBasic, 200, true)
	if _, err := svc.SetPrice(ctx, SetPriceRequest{TenantID: "t1", ServiceCode: catalog.KYCBasic, PriceMinor: 100, Currency: "USD"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := svc.DeactivatePrice(ctx, "t1", catalog.KYCBasic, "admin"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := NewResolver(repo).Resolve(ctx, "t1", "", catalog.KYCBasic)
	if err != nil || got.PriceMinor != 200 {
		t.Fatalf("expected platform price after deactivation, got %+v, %v", got, err)
	}
	entries := logs.Entries()
	if entries[len(entries)-1].EventType != audit.EventAdminPriceDeactivated || entries[len(entries)-1].TenantID != "t1" {
		t.Fatalf("unexpected last entry: %+v", entries[len(entries)-1])
	}

	if _, err := svc.DeactivatePrice(ctx, "t2", catalog.KYCBasic, "admin"); !errors.Is(err, ErrPriceNotFound) {
		t.Fatalf("expected ErrPriceNotFound, got %v", err)
	}
}

func TestListPrices_ScopedToTenant(t *testing.T) {
	svc, repo, _ := newTestService()
	seed(t, repo, "", catalog.KYCBasic, 200, true)
	seed(t, repo, "t1", catalog.VoiceCall, 10, true)
	seed(t, repo, "t1", catalog.KYCBasic, 150, true)

	got, err := svc.ListPrices(context.Background(), "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ServiceCode != catalog.KYCBasic {
		t.Fatalf("unexpected list: %+v", got)
	}
}

type knownTenants map[string]bool

func (k knownTenants) Exists(_ context.Context, id string) (bool, error) { return k[id], nil }

func TestSetPrice_UnknownTenantRejected(t *testing.T) {
	repo := NewMemoryRepo()
	logs := audit.NewMemoryRepo()
	svc := NewService(repo, knownTenants{"t1": true}, audit.NewRecorder(logs, nil))
	ctx := context.Background()

	_, err := svc.SetPrice(ctx, SetPriceRequest{TenantID: "ghost", ServiceCode: catalog.KYCBasic, PriceMinor: 100, Currency: "USD"})
	if !errors.Is(err, ErrUnknownTenant) {
		t.Fatalf("expected ErrUnknownTenant, got %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "ghost", catalog.KYCBasic); ok {
		t.Fatalf("no row must be written for an unknown tenant")
	}
	if n := len(logs.Entries()); n != 0 {
		t.Fatalf("expected no audit entry, got %d", n)
	}
	if _, err := svc.SetPrice(ctx, SetPriceRequest{TenantID: "t1", ServiceCode: catalog.KYCBasic, PriceMinor: 100, Currency: "USD"}); err != nil {
		t.Fatalf("known tenant: %v", err)
	}
}

// syncCache applies writes immediately, unlike ristretto's buffered sets.
type syncCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *syncCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *syncCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *syncCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func TestDeactivatePrice_IgnoresCachedRow(t *testing.T) {
	backing := NewMemoryRepo()
	seed(t, backing, "t1", catalog.KYCBasic, 200, true)
	cached := NewCachedRepository(backing, &syncCache{m: map[string][]byte{}}, time.Minute, nil)
	svc := NewService(cached, nil, audit.NewRecorder(audit.NewMemoryRepo(), nil))
	ctx := context.Background()

	if _, _, err := cached.Get(ctx, "t1", catalog.KYCBasic); err != nil {
		t.Fatalf("warm: %v", err)
	}
	// another instance changed the row; this cache still holds 200
	seed(t, backing, "t1", catalog.KYCBasic, 300, true)

	p, err := svc.DeactivatePrice(ctx, "t1", catalog.KYCBasic, "admin")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	stored, ok, _ := backing.Get(ctx, "t1", catalog.KYCBasic)
	if !ok || stored.Active || stored.PriceMinor != 300 || p.PriceMinor != 300 {
		t.Fatalf("expected the stored 300 row deactivated, got %+v", stored)
	}
}
