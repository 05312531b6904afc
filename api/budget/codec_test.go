package budget

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"
)

func f64(v float64) *float64 { return &v }

func samplePayload() *BudgetDisplayPayload {
	return &BudgetDisplayPayload{
		Division:   "FP",
		ActualYear: 2024,
		BudgetYear: 2025,
		TableData: []ProductGroupActuals{
			{
				ProductGroup: "Film A",
				MonthlyActual: map[int]*MonthValues{
					1: {KGS: 5000, MT: 5, Amount: 10000, MORM: 2500},
					2: {KGS: 1500, MT: 1.5, Amount: 3200, MORM: 800},
				},
			},
			{
				ProductGroup: "Laminate B",
				MonthlyActual: map[int]*MonthValues{
					3: {KGS: 250, MT: 0.25, Amount: 900, MORM: 120},
				},
			},
		},
		ServicesChargesData: &ServicesChargesActuals{
			MonthlyActual: map[int]*ServicesChargesMonth{
				1: {Amount: 42000, MORM: 42000},
			},
		},
		PricingData: map[string]PricingInfo{
			"Film A": {ASP: f64(2.0), MORM: f64(0.5), RM: f64(1.5)},
		},
		BudgetData: map[string]map[int]float64{
			"Film A":     {1: 6, 2: 2.5, 12: 10.125},
			"Laminate B": {3: 0.5},
		},
		ServicesChargesBudget: map[int]float64{1: 45, 6: 12.5},
	}
}

func sortRecords(records []BudgetRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ProductGroup != records[j].ProductGroup {
			return records[i].ProductGroup < records[j].ProductGroup
		}
		return records[i].Month < records[j].Month
	})
}

func sortSC(records []ServicesChargesRecord) {
	sort.Slice(records, func(i, j int) bool { return records[i].Month < records[j].Month })
}

func TestGenerateDivisionalBudgetHTML(t *testing.T) {
	html, err := GenerateDivisionalBudgetHTML(samplePayload())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	for _, want := range []string{
		`<meta name="division" content="FP">`,
		`<meta name="actual-year" content="2024">`,
		`<meta name="budget-year" content="2025">`,
		`id="budget-data"`,
		`data-group="Film A" data-month="1" value="6"`,
		`data-group="Services Charges" data-metric="AMOUNT" data-month="1" value="45"`,
		`class="month-header"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("encoded html missing %q", want)
		}
	}
}

func TestDecodeEncodedForm(t *testing.T) {
	html, err := GenerateDivisionalBudgetHTML(samplePayload())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	parsed, err := ParseImportedHTML(html)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if parsed.Division != "FP" || parsed.ActualYear != 2024 || parsed.BudgetYear != 2025 {
		t.Fatalf("metadata mismatch: %+v", parsed)
	}
	sortRecords(parsed.Records)
	want := []BudgetRecord{
		{ProductGroup: "Film A", Month: 1, KGS: 6000},
		{ProductGroup: "Film A", Month: 2, KGS: 2500},
		{ProductGroup: "Film A", Month: 12, KGS: 10125},
		{ProductGroup: "Laminate B", Month: 3, KGS: 500},
	}
	if len(parsed.Records) != len(want) {
		t.Fatalf("records = %+v, want %+v", parsed.Records, want)
	}
	for i := range want {
		if parsed.Records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, parsed.Records[i], want[i])
		}
	}
	sortSC(parsed.ServicesChargesRecords)
	wantSC := []ServicesChargesRecord{{Month: 1, Amount: 45000}, {Month: 6, Amount: 12500}}
	if len(parsed.ServicesChargesRecords) != len(wantSC) {
		t.Fatalf("sc records = %+v, want %+v", parsed.ServicesChargesRecords, wantSC)
	}
	for i := range wantSC {
		if parsed.ServicesChargesRecords[i] != wantSC[i] {
			t.Errorf("sc record %d = %+v, want %+v", i, parsed.ServicesChargesRecords[i], wantSC[i])
		}
	}
}

var islandScriptRe = regexp.MustCompile(`(?is)<script type="application/json" id="budget-data">.*?</script>`)

// stripIsland forces the decoder onto the legacy editable-input path.
func stripIsland(html string) string {
	return islandScriptRe.ReplaceAllString(html, "")
}

// staticRender simulates the filled/saved variant: no island, inputs
// replaced by their rendered values.
func staticRender(html string) string {
	html = stripIsland(html)
	inputWithValue := regexp.MustCompile(`(?is)<input\b[^>]*\bvalue="([^"]*)"[^>]*>`)
	return inputWithValue.ReplaceAllString(html, `<span>$1</span>`)
}

func TestDecodeDualStrategyEquivalence(t *testing.T) {
	html, err := GenerateDivisionalBudgetHTML(samplePayload())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	variants := map[string]string{
		"island":   html,
		"editable": stripIsland(html),
		"static":   staticRender(html),
	}
	var baseline *ParsedBudget
	for name, variant := range variants {
		parsed, err := ParseImportedHTML(variant)
		if err != nil {
			t.Fatalf("%s decode failed: %v", name, err)
		}
		sortRecords(parsed.Records)
		sortSC(parsed.ServicesChargesRecords)
		if baseline == nil {
			baseline = parsed
			continue
		}
		if len(parsed.Records) != len(baseline.Records) {
			t.Fatalf("%s records = %+v, baseline %+v", name, parsed.Records, baseline.Records)
		}
		for i := range baseline.Records {
			if parsed.Records[i] != baseline.Records[i] {
				t.Errorf("%s record %d = %+v, want %+v", name, i, parsed.Records[i], baseline.Records[i])
			}
		}
		if len(parsed.ServicesChargesRecords) != len(baseline.ServicesChargesRecords) {
			t.Fatalf("%s sc records = %+v, baseline %+v", name, parsed.ServicesChargesRecords, baseline.ServicesChargesRecords)
		}
		for i := range baseline.ServicesChargesRecords {
			if parsed.ServicesChargesRecords[i] != baseline.ServicesChargesRecords[i] {
				t.Errorf("%s sc record %d = %+v, want %+v", name, i, parsed.ServicesChargesRecords[i], baseline.ServicesChargesRecords[i])
			}
		}
	}
}

func TestParseImportedHTMLValidation(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"missing division meta", `<html><head><meta name="budget-year" content="2025"></head><body></body></html>`},
		{"missing budget year meta", `<html><head><meta name="division" content="FP"></head><body></body></html>`},
		{"no values", `<html><head><meta name="division" content="FP"><meta name="budget-year" content="2025"></head><body><table></table></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImportedHTML(tt.html)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !IsValidationError(err) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestDecodeStaticRowsRejectsReorderedHeader(t *testing.T) {
	html := `<html><head>
<meta name="division" content="FP"><meta name="budget-year" content="2025">
</head><body><table>
<tr class="month-header"><th>Product Group</th><th>Dec</th><th>Nov</th><th>Oct</th><th>Sep</th><th>Aug</th><th>Jul</th><th>Jun</th><th>May</th><th>Apr</th><th>Mar</th><th>Feb</th><th>Jan</th></tr>
<tr class="actual-row" data-pg="Film A"><td>Film A</td></tr>
<tr class="budget-row"><td>Budget</td><td>5</td><td>6</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td></tr>
</table></body></html>`
	_, err := ParseImportedHTML(html)
	if err == nil {
		t.Fatal("expected decode to reject reordered month header")
	}
}

func TestDecodeStaticRowsNumericHeader(t *testing.T) {
	var header strings.Builder
	header.WriteString(`<tr class="month-header"><th>Group</th>`)
	for m := 1; m <= 12; m++ {
		header.WriteString("<th>" + strconv.Itoa(m) + "</th>")
	}
	header.WriteString("</tr>")

	html := `<html><head>
<meta name="division" content="FP"><meta name="budget-year" content="2025">
</head><body><table>` + header.String() + `
<tr class="actual-row" data-pg="Film A"><td>Film A</td></tr>
<tr class="budget-row"><td>Budget</td><td>1,250.5</td><td></td><td>abc</td><td>0</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td>3</td></tr>
</table></body></html>`
	parsed, err := ParseImportedHTML(html)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	sortRecords(parsed.Records)
	want := []BudgetRecord{
		{ProductGroup: "Film A", Month: 1, KGS: 1250500},
		{ProductGroup: "Film A", Month: 12, KGS: 3000},
	}
	if len(parsed.Records) != len(want) {
		t.Fatalf("records = %+v, want %+v", parsed.Records, want)
	}
	for i := range want {
		if parsed.Records[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, parsed.Records[i], want[i])
		}
	}
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2025, time.March, 7, 9, 5, 0, 0, time.UTC)
	got := ExportFilename("fp", 2025, at)
	want := "BUDGET_Divisional_FP_2025_07032025_0905.html"
	if got != want {
		t.Errorf("ExportFilename = %q, want %q", got, want)
	}
}
