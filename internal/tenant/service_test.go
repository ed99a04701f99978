package tenant

import (
	"context"
	"errors"
	"testing"

	"compliance-platform/internal/audit"
	"compliance-platform/internal/catalog"
	"compliance-platform/internal/wallet"
)

type fixture struct {
	svc     *Service
	wallets *wallet.Service
	logs    *audit.MemoryRepo
}

func newFixture() fixture {
	logs := audit.NewMemoryRepo()
	wallets := wallet.NewService(wallet.NewMemoryStore(), nil)
	return fixture{
		svc:     NewService(NewMemoryRepo(), wallets, audit.NewRecorder(logs, nil), "EUR"),
		wallets: wallets,
		logs:    logs,
	}
}

func adminCtx() context.Context {
	return audit.WithActor(context.Background(), audit.Actor{ID: "admin-1", Role: "super_admin"})
}

func TestEffectiveStatus(t *testing.T) {
	active := Tenant{Status: StatusActive}
	disabled := Tenant{Status: StatusDisabled}
	suspended := Tenant{Status: StatusSuspended}

	cases := []struct {
		own    Tenant
		parent *Tenant
		want   Status
	}{
		{active, nil, StatusActive},
		{active, &active, StatusActive},
		{active, &suspended, StatusSuspended},
		{disabled, &suspended, StatusDisabled},
		{suspended, &active, StatusSuspended},
	}
	for i, c := range cases {
		if got := EffectiveStatus(c.own, c.parent); got != c.want {
			t.Fatalf("case %d: expected %s, got %s", i, c.want, got)
		}
	}
}

func TestCreate_OpensWalletAndEnablesCatalog(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	tn, err := f.svc.Create(ctx, CreateRequest{Name: "Acme", Slug: "Acme-Corp"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tn.Slug != "acme-corp" || tn.Status != StatusActive {
		t.Fatalf("unexpected tenant: %+v", tn)
	}

	bal, err := f.wallets.GetBalance(ctx, tn.ID)
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if bal.Currency != "EUR" || bal.BalanceMinor != 0 {
		t.Fatalf("unexpected wallet: %+v", bal)
	}

	services, _ := f.svc.Services(ctx, tn.ID)
	if len(services) != len(catalog.All()) {
		t.Fatalf("expected whole catalog enabled, got %v", services)
	}

	entries := f.logs.Entries()
	if len(entries) != 1 || entries[0].EventType != audit.EventAccountCreated || entries[0].Actor.ID != "admin-1" {
		t.Fatalf("unexpected audit trail: %+v", entries)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()

	if _, err := f.svc.Create(ctx, CreateRequest{Name: "x", Slug: "bad slug"}); !errors.Is(err, ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateRequest{Name: "x", Slug: "x", ParentID: "missing"}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
	parent, _ := f.svc.Create(ctx, CreateRequest{Name: "p", Slug: "p"})
	sub, err := f.svc.Create(ctx, CreateRequest{Name: "s", Slug: "s", ParentID: parent.ID})
	if err != nil {
		t.Fatalf("create sub: %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateRequest{Name: "g", Slug: "g", ParentID: sub.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("expected nesting to be rejected, got %v", err)
	}
	if _, err := f.svc.Create(ctx, CreateRequest{Name: "dup", Slug: "p"}); !errors.Is(err, ErrSlugTaken) {
		t.Fatalf("expected ErrSlugTaken, got %v", err)
	}
}

func TestStatusTransitionsAreAudited(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	tn, _ := f.svc.Create(ctx, CreateRequest{Name: "Acme", Slug: "acme"})

	if _, err := f.svc.Suspend(ctx, tn.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected reason required, got %v", err)
	}
	got, err := f.svc.Suspend(ctx, tn.ID, "chargeback")
	if err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if got.DisabledBy != "admin-1" || got.DisabledReason != "chargeback" || got.DisabledAt == nil {
		t.Fatalf("expected disable metadata, got %+v", got)
	}
	if _, err := f.svc.Suspend(ctx, tn.ID, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, err = f.svc.Enable(ctx, tn.ID)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if got.DisabledAt != nil || got.DisabledReason != "" {
		t.Fatalf("expected disable metadata cleared, got %+v", got)
	}

	entries := f.logs.Entries()
	want := []audit.EventType{audit.EventAccountCreated, audit.EventAccountSuspended, audit.EventAccountEnabled}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if e.EventType != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], e.EventType)
		}
	}
}

func TestResolveContext(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	parent, _ := f.svc.Create(ctx, CreateRequest{Name: "p", Slug: "p"})
	sub, _ := f.svc.Create(ctx, CreateRequest{Name: "s", Slug: "s", ParentID: parent.ID})
	other, _ := f.svc.Create(ctx, CreateRequest{Name: "o", Slug: "o"})

	tc, err := f.svc.ResolveContext(ctx, parent.ID, sub.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tc.TenantID != parent.ID || tc.SubTenantID != sub.ID || tc.Status != StatusActive || tc.BilledTenantID() != sub.ID {
		t.Fatalf("unexpected context: %+v", tc)
	}

	// A sub-tenant acting directly is normalized to (parent, sub).
	tc, _ = f.svc.ResolveContext(ctx, sub.ID, "")
	if tc.TenantID != parent.ID || tc.SubTenantID != sub.ID {
		t.Fatalf("expected normalization, got %+v", tc)
	}

	if _, err := f.svc.ResolveContext(ctx, other.ID, sub.ID); !errors.Is(err, ErrNotSubTenant) {
		t.Fatalf("expected ErrNotSubTenant, got %v", err)
	}

	if _, err := f.svc.Disable(ctx, parent.ID, "fraud"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	tc, _ = f.svc.ResolveContext(ctx, parent.ID, sub.ID)
	if tc.Status != StatusDisabled {
		t.Fatalf("expected inherited DISABLED, got %s", tc.Status)
	}
}

func TestServiceEnabled_RequiresParentAndSub(t *testing.T) {
	f := newFixture()
	ctx := adminCtx()
	parent, _ := f.svc.Create(ctx, CreateRequest{Name: "p", Slug: "p"})
	sub, _ := f.svc.Create(ctx, CreateRequest{Name: "s", Slug: "s", ParentID: parent.ID, Services: []catalog.ServiceCode{catalog.KYCBasic}})
	tc := Context{TenantID: parent.ID, SubTenantID: sub.ID}

	if ok, _ := f.svc.ServiceEnabled(ctx, tc, catalog.KYCBasic); !ok {
		t.Fatalf("expected enabled")
	}
	if ok, _ := f.svc.ServiceEnabled(ctx, tc, catalog.VoiceCall); ok {
		t.Fatalf("sub-tenant never enabled VOICE_CALL")
	}

	if err := f.svc.SetServiceEnabled(ctx, parent.ID, catalog.KYCBasic, false); err != nil {
		t.Fatalf("disable service: %v", err)
	}
	if ok, _ := f.svc.ServiceEnabled(ctx, tc, catalog.KYCBasic); ok {
		t.Fatalf("parent disablement must apply to sub-tenant")
	}

	last := f.logs.Entries()[len(f.logs.Entries())-1]
	if last.EventType != audit.EventAdminServiceDisabled || last.TargetID != string(catalog.KYCBasic) {
		t.Fatalf("unexpected audit entry: %+v", last)
	}
	if err := f.svc.SetServiceEnabled(ctx, parent.ID, "NOPE", true); !errors.Is(err, catalog.ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService, got %v", err)
	}
}
