package division

import "testing"

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain upper", "FP", "fp"},
		{"already lower", "hc", "hc"},
		{"suffixed", "FP-NORTH", "fp"},
		{"multi segment", "hc-west-2", "hc"},
		{"empty defaults", "", "fp"},
		{"whitespace defaults", "   ", "fp"},
		{"leading dash defaults", "-east", "fp"},
		{"trims", "  HC ", "hc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.in); got != tt.want {
				t.Errorf("Code(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTableSetNames(t *testing.T) {
	tables := tableSetFor("fp")
	if tables.Pricing != "fp_product_group_pricing_rounding" {
		t.Errorf("pricing table = %q", tables.Pricing)
	}
	if tables.Budget != "fp_divisional_budget" {
		t.Errorf("budget table = %q", tables.Budget)
	}
	if tables.Material != "fp_material_percentage" {
		t.Errorf("material table = %q", tables.Material)
	}
	if tables.ExcelData != "fp_excel_data" {
		t.Errorf("excel data table = %q", tables.ExcelData)
	}
}

func TestResolveUnknownFallsBack(t *testing.T) {
	r := NewRegistry()
	// Nothing registered: resolution still yields deterministic names for
	// the requested code.
	tables := r.Resolve("ZZ")
	if tables.Budget != "zz_divisional_budget" {
		t.Errorf("budget table = %q", tables.Budget)
	}
	if _, err := r.ResolveStrict("ZZ"); err == nil {
		t.Error("ResolveStrict should fail for unregistered division")
	}
}
