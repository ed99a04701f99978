package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"compliance-platform/internal/catalog"
	"compliance-platform/pkg/utils"
)

func seed(t *testing.T, repo *MemoryRepo, tenantID string, code catalog.ServiceCode, price int64, active bool) {
	t.Helper()
	if _, err := repo.Upsert(context.Background(), ServicePrice{
		TenantID: tenantID, ServiceCode: code, PriceMinor: price, Currency: "USD", Active: active, UpdatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestResolve_MostSpecificActiveWins(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, "", catalog.KYCBasic, 200, true)
	seed(t, repo, "parent", catalog.KYCBasic, 150, true)
	seed(t, repo, "sub", catalog.KYCBasic, 120, true)
	r := NewResolver(repo)
	ctx := context.Background()

	got, err := r.Resolve(ctx, "parent", "sub", catalog.KYCBasic)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.PriceMinor != 120 || got.Level != LevelSubTenant {
		t.Fatalf("expected sub-tenant price, got %+v", got)
	}

	got, _ = r.Resolve(ctx, "parent", "", catalog.KYCBasic)
	if got.PriceMinor != 150 || got.Level != LevelTenant {
		t.Fatalf("expected tenant price, got %+v", got)
	}

	got, _ = r.Resolve(ctx, "other", "", catalog.KYCBasic)
	if got.PriceMinor != 200 || got.Level != LevelPlatform {
		t.Fatalf("expected platform price, got %+v", got)
	}
}

func TestResolve_InactiveLevelFallsThrough(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, "", catalog.KYCBasic, 200, true)
	seed(t, repo, "parent", catalog.KYCBasic, 150, false)
	seed(t, repo, "sub", catalog.KYCBasic, 120, false)

	got, err := NewResolver(repo).Resolve(context.Background(), "parent", "sub", catalog.KYCBasic)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.PriceMinor != 200 || got.Level != LevelPlatform {
		t.Fatalf("expected platform fallback, got %+v", got)
	}
}

func TestResolve_SubTenantFallsBackToPlatformThenNotConfigured(t *testing.T) {
	repo := NewMemoryRepo()
	seed(t, repo, "", catalog.VoiceVerify, 300, true)
	r := NewResolver(repo)

	got, err := r.Resolve(context.Background(), "parent", "sub", catalog.VoiceVerify)
	if err != nil || got.Level != LevelPlatform {
		t.Fatalf("expected platform default, got %+v, %v", got, err)
	}

	repo.Delete("", catalog.VoiceVerify)
	if _, err := r.Resolve(context.Background(), "parent", "sub", catalog.VoiceVerify); !errors.Is(err, ErrPriceNotConfigured) {
		t.Fatalf("expected ErrPriceNotConfigured, got %v", err)
	}
}

func TestResolve_UnknownService(t *testing.T) {
	if _, err := NewResolver(NewMemoryRepo()).Resolve(context.Background(), "t", "", "BOGUS"); !errors.Is(err, catalog.ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService, got %v", err)
	}
}

type errRepo struct{ MemoryRepo }

func (*errRepo) Get(ctx context.Context, tenantID string, code catalog.ServiceCode) (ServicePrice, bool, error) {
	return ServicePrice{}, false, errors.New("timeout")
}

func TestResolve_StorageFailure(t *testing.T) {
	if _, err := NewResolver(&errRepo{}).Resolve(context.Background(), "t", "", catalog.KYCBasic); !errors.Is(err, utils.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
