package pipeline

import (
	"math"
	"testing"
	"time"
)

func TestAnnualizedReturnOneYear(t *testing.T) {
	inception := day(2023, 1, 1)
	asOf := day(2024, 1, 1)

	got := AnnualizedReturn(asOf, inception, dec("1.10"))
	if got == nil {
		t.Fatal("got nil")
	}
	if math.Abs(*got-10.0) > 1e-9 {
		t.Fatalf("got %v want 10.0", *got)
	}
}

func TestAnnualizedReturnHalfYear(t *testing.T) {
	inception := day(2024, 1, 1)
	asOf := day(2024, 7, 1) // 182 days

	got := AnnualizedReturn(asOf, inception, dec("1.05"))
	if got == nil {
		t.Fatal("got nil")
	}
	want := (math.Pow(1.05, 365.0/182.0) - 1) * 100
	if math.Abs(*got-want) > 1e-9 {
		t.Fatalf("got %v want %v", *got, want)
	}
}

func TestAnnualizedReturnDegradesToNil(t *testing.T) {
	d1 := day(2024, 1, 1)
	d2 := day(2024, 6, 1)

	cases := []struct {
		name string
		got  *float64
	}{
		{name: "same day", got: AnnualizedReturn(d1, d1, dec("1.10"))},
		{name: "inverted dates", got: AnnualizedReturn(d1, d2, dec("1.10"))},
		{name: "nil value", got: AnnualizedReturn(d2, d1, nil)},
		{name: "unknown as-of", got: AnnualizedReturn(time.Time{}, d1, dec("1.10"))},
		{name: "unknown inception", got: AnnualizedReturn(d2, time.Time{}, dec("1.10"))},
		{name: "negative base", got: AnnualizedReturn(d2, d1, dec("-0.5"))},
	}

	for _, tc := range cases {
		if tc.got != nil {
			t.Fatalf("%s: got %v, want nil", tc.name, *tc.got)
		}
	}
}

func TestAnnualizedReturnZeroValue(t *testing.T) {
	got := AnnualizedReturn(day(2024, 1, 1), day(2023, 1, 1), dec("0"))
	if got == nil {
		t.Fatal("got nil")
	}
	if *got != -100 {
		t.Fatalf("got %v want -100", *got)
	}
}
