package budget

import (
	"math"
	"testing"
)

func TestUnitConversionRoundTrip(t *testing.T) {
	// Storage KGS -> display MT -> storage KGS must agree within 1 KGS.
	values := []int64{0, 1, 499, 500, 999, 1000, 1001, 5000, 123456, 999999, 4500000, 10000000}
	for _, kgs := range values {
		mt := float64(kgs) / 1000
		back := mtToKGS(mt)
		if diff := back - kgs; diff > 1 || diff < -1 {
			t.Errorf("round trip %d KGS -> %v MT -> %d KGS", kgs, mt, back)
		}
	}
}

func TestComputeTotals(t *testing.T) {
	records := []BudgetRecord{
		{ProductGroup: "Film A", Month: 1, KGS: 6000},
		{ProductGroup: "Film A", Month: 2, KGS: 2500},
		{ProductGroup: "Laminate B", Month: 3, KGS: 500},
	}
	sc := []ServicesChargesRecord{
		{Month: 1, Amount: 45000},
		{Month: 6, Amount: 12500},
	}
	totals := computeTotals(records, sc)
	if totals.VolumeKGS != 9000 {
		t.Errorf("volumeKGS = %v, want 9000", totals.VolumeKGS)
	}
	if math.Abs(totals.VolumeMT-9) > 1e-9 {
		t.Errorf("volumeMT = %v, want 9", totals.VolumeMT)
	}
	// Services Charges feeds amount and morm equally, never volume.
	if totals.Amount != 57500 {
		t.Errorf("amount = %v, want 57500", totals.Amount)
	}
	if totals.MORM != totals.Amount {
		t.Errorf("morm = %v, want equal to amount %v", totals.MORM, totals.Amount)
	}
}

func TestServicesChargesMarginPolicy(t *testing.T) {
	for _, amount := range []float64{0, 1, 45000, 999999.5} {
		if got := ServicesChargesMarginPolicy.MormFromAmount(amount); got != amount {
			t.Errorf("MormFromAmount(%v) = %v, want %v", amount, got, amount)
		}
	}
}

func TestScreenRecords(t *testing.T) {
	parsed := &ParsedBudget{
		Division:   "FP",
		BudgetYear: 2025,
		Records: []BudgetRecord{
			{ProductGroup: "Film A", Month: 1, KGS: 5000},
			{ProductGroup: "", Month: 2, KGS: 100},
			{ProductGroup: "Film A", Month: 13, KGS: 100},
			{ProductGroup: "Film A", Month: 3, KGS: -5},
		},
		ServicesChargesRecords: []ServicesChargesRecord{
			{Month: 1, Amount: 45000},
			{Month: 0, Amount: 10},
			{Month: 2, Amount: -1},
		},
	}
	result := &ImportResult{}
	records, scRecords := screenRecords(parsed, result)
	if len(records) != 1 || records[0].ProductGroup != "Film A" || records[0].Month != 1 {
		t.Errorf("kept records = %+v, want only Film A month 1", records)
	}
	if len(scRecords) != 1 || scRecords[0].Month != 1 {
		t.Errorf("kept sc records = %+v, want only month 1", scRecords)
	}
	if len(result.SkippedRecords) != 5 {
		t.Errorf("skipped = %d, want 5: %+v", len(result.SkippedRecords), result.SkippedRecords)
	}
	if len(result.ValidationErrors) != 5 {
		t.Errorf("validation errors = %d, want 5", len(result.ValidationErrors))
	}
}

func TestIsServicesCharges(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Services Charges", true},
		{"services charges", true},
		{" SERVICES CHARGES ", true},
		{"Film A", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsServicesCharges(tt.in); got != tt.want {
			t.Errorf("IsServicesCharges(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
