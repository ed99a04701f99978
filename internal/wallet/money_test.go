package wallet

import (
	"errors"
	"testing"
)

func TestFormatMinor(t *testing.T) {
	cases := map[int64]string{0: "0.00", 5: "0.05", 1000: "10.00", 123456: "1234.56", -250: "-2.50"}
	for in, want := range cases {
		if got := FormatMinor(in); got != want {
			t.Fatalf("FormatMinor(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestParseAmount(t *testing.T) {
	good := map[string]int64{"10": 1000, "0.01": 1, "12.5": 1250, "3.10": 310}
	for in, want := range good {
		got, err := ParseAmount(in)
		if err != nil || got != want {
			t.Fatalf("ParseAmount(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"0", "-1", "0.001", "abc", "NaN", ""} {
		if _, err := ParseAmount(in); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q): expected ErrInvalidAmount, got %v", in, err)
		}
	}
}
