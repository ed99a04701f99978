package catalog

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	c, err := Parse(" kyc_basic ")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c != KYCBasic {
		t.Fatalf("expected KYC_BASIC, got %q", c)
	}

	if _, err := Parse("KYC_PLATINUM"); !errors.Is(err, ErrUnknownService) {
		t.Fatalf("expected ErrUnknownService, got %v", err)
	}
	if _, err := Parse(""); err == nil {
		t.Fatalf("expected error for empty code")
	}
}

func TestAllIsCopy(t *testing.T) {
	a := All()
	if len(a) != 8 {
		t.Fatalf("expected 8 codes, got %d", len(a))
	}
	a[0] = "MUTATED"
	if All()[0] != KYCBasic {
		t.Fatalf("All must not expose internal slice")
	}
	for _, c := range All() {
		if !c.Valid() {
			t.Fatalf("catalog code %q reported invalid", c)
		}
	}
}
