package pricing

import (
	"context"
	"regexp"
	"testing"
	"time"

	"compliance-platform/internal/catalog"

	"github.com/DATA-DOG/go-sqlmock"
)

var priceCols = []string{"id", "tenant_id", "service_code", "price_minor", "currency", "active", "created_at", "updated_at", "updated_by"}

func TestPostgresRepo_GetPlatformDefault(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE COALESCE(tenant_id, '') = $1 AND service_code = $2")).
		WithArgs("", "KYC_BASIC").
		WillReturnRows(sqlmock.NewRows(priceCols).AddRow("p1", "", "KYC_BASIC", int64(200), "USD", true, now, now, "admin"))

	p, ok, err := NewPostgresRepo(db).Get(context.Background(), "", catalog.KYCBasic)
	if err != nil || !ok {
		t.Fatalf("get: %v %v", ok, err)
	}
	if p.PriceMinor != 200 || p.TenantID != "" || !p.Active {
		t.Fatalf("unexpected price: %+v", p)
	}
}

func TestPostgresRepo_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM service_prices").WithArgs("t1", "VOICE_CALL").WillReturnRows(sqlmock.NewRows(priceCols))
	_, ok, err := NewPostgresRepo(db).Get(context.Background(), "t1", catalog.VoiceCall)
	if err != nil || ok {
		t.Fatalf("expected clean miss, got %v %v", ok, err)
	}
}

func TestPostgresRepo_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Unix(1700000000, 0).UTC()
	created := now.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT ((COALESCE(tenant_id, '')), service_code)")).
		WithArgs("new-id", "t1", "KYC_BASIC", int64(150), "USD", true, now, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing-id", created))

	p, err := NewPostgresRepo(db).Upsert(context.Background(), ServicePrice{
		ID: "new-id", TenantID: "t1", ServiceCode: catalog.KYCBasic, PriceMinor: 150, Currency: "USD",
		Active: true, UpdatedAt: now, UpdatedBy: "admin",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.ID != "existing-id" || !p.CreatedAt.Equal(created) {
		t.Fatalf("expected existing row identity, got %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
