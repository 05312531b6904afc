package budget

import (
	"math"
	"testing"
)

func TestNormalizeEntryDerivesRM(t *testing.T) {
	tests := []struct {
		name   string
		asp    *float64
		morm   *float64
		rmIn   *float64
		wantRM *float64
	}{
		{"both present", f64(2.0), f64(0.5), nil, f64(1.5)},
		{"client rm ignored", f64(10), f64(4), f64(999), f64(6)},
		{"rounded to 2 decimals", f64(2.555), f64(0.111), nil, f64(2.44)},
		{"asp missing forces null", nil, f64(0.5), f64(3), nil},
		{"morm missing forces null", f64(2.0), nil, f64(3), nil},
		{"both missing", nil, nil, f64(7), nil},
		{"zero bounds ok", f64(0), f64(0), nil, f64(0)},
		{"max bounds ok", f64(1000), f64(0), nil, f64(1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := PricingRoundingEntry{ProductGroup: "Film A", ASPRound: tt.asp, MORMRound: tt.morm, RMRound: tt.rmIn}
			if err := normalizeEntry(&e); err != nil {
				t.Fatalf("normalizeEntry() error = %v", err)
			}
			switch {
			case tt.wantRM == nil && e.RMRound != nil:
				t.Errorf("rm = %v, want null", *e.RMRound)
			case tt.wantRM != nil && e.RMRound == nil:
				t.Errorf("rm = null, want %v", *tt.wantRM)
			case tt.wantRM != nil && math.Abs(*e.RMRound-*tt.wantRM) > 1e-9:
				t.Errorf("rm = %v, want %v", *e.RMRound, *tt.wantRM)
			}
		})
	}
}

func TestNormalizeEntryRejectsOutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		asp  *float64
		morm *float64
	}{
		{"asp negative", f64(-0.01), f64(0.5)},
		{"asp above max", f64(1000.01), f64(0.5)},
		{"morm negative", f64(2.0), f64(-5)},
		{"morm above max", f64(2.0), f64(1001)},
		{"derived rm negative", f64(1.0), f64(2.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := PricingRoundingEntry{ProductGroup: "Film A", ASPRound: tt.asp, MORMRound: tt.morm}
			err := normalizeEntry(&e)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !IsValidationError(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestNormalizeEntryRequiresProductGroup(t *testing.T) {
	e := PricingRoundingEntry{ProductGroup: "  ", ASPRound: f64(1)}
	if err := normalizeEntry(&e); err == nil || !IsValidationError(err) {
		t.Errorf("expected ValidationError for blank product group, got %v", err)
	}
}

func TestNormalizeEntryIdempotent(t *testing.T) {
	e := PricingRoundingEntry{ProductGroup: "Film A", ASPRound: f64(2.0), MORMRound: f64(0.5)}
	if err := normalizeEntry(&e); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first := *e.RMRound
	if err := normalizeEntry(&e); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if *e.RMRound != first {
		t.Errorf("rm changed on re-application: %v then %v", first, *e.RMRound)
	}
}
