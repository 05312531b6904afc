package budget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"
	"time"

	"SalesBudgetSuite/api/constants"
)

// The exported form round-trips between two states: freshly exported and
// still editable (live <input> cells), and filled-in / re-saved as a static
// render. The JSON data island is the primary machine-readable contract;
// the input scan and the positional row scan below are compatibility shims
// for files produced before the island existed.

var monthShort = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

type islandDocument struct {
	Division        string              `json:"division"`
	ActualYear      int                 `json:"actualYear"`
	BudgetYear      int                 `json:"budgetYear"`
	Budget          map[string][]string `json:"budget"`
	ServicesCharges []string            `json:"servicesCharges"`
}

type exportCell struct {
	Month int
	Value string
}

type exportRow struct {
	ProductGroup string
	ActualCells  []string
	BudgetCells  []exportCell
	ASP          string
	MORM         string
}

type exportView struct {
	Division           string
	ActualYear         int
	BudgetYear         int
	GeneratedAt        string
	Months             []string
	Rows               []exportRow
	HasServicesCharges bool
	ServicesActual     []string
	ServicesCells      []exportCell
	DataIsland         template.JS
}

const exportTemplateText = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="division" content="{{.Division}}">
<meta name="actual-year" content="{{.ActualYear}}">
<meta name="budget-year" content="{{.BudgetYear}}">
<title>BUDGET Divisional {{.Division}} {{.BudgetYear}}</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; margin: 24px; color: #1a1a2e; }
h1 { font-size: 20px; }
table { border-collapse: collapse; width: 100%; font-size: 12px; }
th, td { border: 1px solid #b9c2cf; padding: 4px 6px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
tr.month-header th { background: #20446e; color: #fff; }
tr.actual-row td { background: #eef2f7; }
tr.services-charges-row td { background: #fdf3e3; }
input.budget-input { width: 72px; text-align: right; border: 1px solid #8aa0bb; }
.note { font-size: 11px; color: #5a6575; margin: 8px 0 16px; }
</style>
</head>
<body>
<h1>Divisional Budget &mdash; {{.Division}} {{.BudgetYear}}</h1>
<p class="note">Actuals {{.ActualYear}} shown in MT. Services Charges in thousands. Generated {{.GeneratedAt}}.</p>
<script type="application/json" id="budget-data">{{.DataIsland}}</script>
<table>
<thead>
<tr class="month-header"><th>Product Group</th>{{range .Months}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Rows}}<tr class="actual-row" data-pg="{{.ProductGroup}}"><td>{{.ProductGroup}} (Actual MT{{if .ASP}}, ASP {{.ASP}}{{end}}{{if .MORM}}, MoRM {{.MORM}}{{end}})</td>{{range .ActualCells}}<td>{{.}}</td>{{end}}</tr>
<tr class="budget-row"><td>Budget {{$.BudgetYear}} (MT)</td>{{$pg := .ProductGroup}}{{range .BudgetCells}}<td><input class="budget-input" type="text" data-group="{{$pg}}" data-month="{{.Month}}" value="{{.Value}}"></td>{{end}}</tr>
{{end}}{{if .HasServicesCharges}}<tr class="actual-row" data-pg="Services Charges"><td>Services Charges (Actual &#39;000)</td>{{range .ServicesActual}}<td>{{.}}</td>{{end}}</tr>
<tr class="services-charges-row"><td>Services Charges Budget {{.BudgetYear}} (&#39;000)</td>{{range .ServicesCells}}<td><input class="budget-input" type="text" data-group="Services Charges" data-metric="AMOUNT" data-month="{{.Month}}" value="{{.Value}}"></td>{{end}}</tr>
{{end}}</tbody>
</table>
<script>
(function () {
	var island = document.getElementById('budget-data');
	function syncIsland() {
		var doc = JSON.parse(island.textContent);
		document.querySelectorAll('input.budget-input').forEach(function (el) {
			var m = parseInt(el.getAttribute('data-month'), 10) - 1;
			if (el.getAttribute('data-metric') === 'AMOUNT') {
				doc.servicesCharges[m] = el.value;
			} else {
				doc.budget[el.getAttribute('data-group')][m] = el.value;
			}
		});
		island.textContent = JSON.stringify(doc);
	}
	document.addEventListener('change', function (ev) {
		if (ev.target && ev.target.classList.contains('budget-input')) { syncIsland(); }
	});
})();
</script>
</body>
</html>
`

var exportTemplate = template.Must(template.New("budget-export").Parse(exportTemplateText))

func fmtCell(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// GenerateDivisionalBudgetHTML encodes the aggregator payload into a
// self-contained editable HTML document.
func GenerateDivisionalBudgetHTML(payload *BudgetDisplayPayload) (string, error) {
	view := exportView{
		Division:    strings.ToUpper(strings.TrimSpace(payload.Division)),
		ActualYear:  payload.ActualYear,
		BudgetYear:  payload.BudgetYear,
		GeneratedAt: time.Now().Format(constants.DateTimeFormat),
		Months:      monthShort,
	}
	island := islandDocument{
		Division:   view.Division,
		ActualYear: payload.ActualYear,
		BudgetYear: payload.BudgetYear,
		Budget:     make(map[string][]string),
	}

	for _, group := range payload.TableData {
		row := exportRow{ProductGroup: group.ProductGroup}
		if info, ok := payload.PricingData[group.ProductGroup]; ok {
			row.ASP = fmtPtr(info.ASP)
			row.MORM = fmtPtr(info.MORM)
		}
		cells := make([]string, 12)
		for m := 1; m <= 12; m++ {
			if mv := group.MonthlyActual[m]; mv != nil {
				row.ActualCells = append(row.ActualCells, fmtCell(mv.MT))
			} else {
				row.ActualCells = append(row.ActualCells, "")
			}
			v := payload.BudgetData[group.ProductGroup][m]
			cell := fmtCell(v)
			row.BudgetCells = append(row.BudgetCells, exportCell{Month: m, Value: cell})
			cells[m-1] = cell
		}
		island.Budget[group.ProductGroup] = cells
		view.Rows = append(view.Rows, row)
	}

	// Product groups that only exist in a prior budget still need a row.
	for pg, months := range payload.BudgetData {
		if _, seen := island.Budget[pg]; seen || IsServicesCharges(pg) {
			continue
		}
		row := exportRow{ProductGroup: pg}
		cells := make([]string, 12)
		for m := 1; m <= 12; m++ {
			row.ActualCells = append(row.ActualCells, "")
			cell := fmtCell(months[m])
			row.BudgetCells = append(row.BudgetCells, exportCell{Month: m, Value: cell})
			cells[m-1] = cell
		}
		island.Budget[pg] = cells
		view.Rows = append(view.Rows, row)
	}

	if payload.ServicesChargesData != nil || len(payload.ServicesChargesBudget) > 0 {
		view.HasServicesCharges = true
		island.ServicesCharges = make([]string, 12)
		for m := 1; m <= 12; m++ {
			actual := ""
			if payload.ServicesChargesData != nil {
				if sm := payload.ServicesChargesData.MonthlyActual[m]; sm != nil {
					actual = fmtCell(sm.Amount / constants.KgsPerMT)
				}
			}
			view.ServicesActual = append(view.ServicesActual, actual)
			cell := fmtCell(payload.ServicesChargesBudget[m])
			view.ServicesCells = append(view.ServicesCells, exportCell{Month: m, Value: cell})
			island.ServicesCharges[m-1] = cell
		}
	}

	islandJSON, err := json.Marshal(island)
	if err != nil {
		return "", err
	}
	view.DataIsland = template.JS(islandJSON)

	var buf bytes.Buffer
	if err := exportTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportFilename follows the fixed attachment naming pattern the frontend
// matches on.
func ExportFilename(divisionName string, budgetYear int, at time.Time) string {
	return fmt.Sprintf("BUDGET_Divisional_%s_%d_%s_%s.html",
		strings.ToUpper(strings.TrimSpace(divisionName)), budgetYear,
		at.Format(constants.ExportStampFormat), at.Format(constants.ExportClockFormat))
}

func mtToKGS(mt float64) int64 {
	return int64(math.Round(mt * constants.KgsPerMT))
}

func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
