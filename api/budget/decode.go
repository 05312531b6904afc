package budget

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"SalesBudgetSuite/api/constants"
)

var (
	metaTagRe    = regexp.MustCompile(`(?is)<meta\s+name\s*=\s*"([^"]+)"\s+content\s*=\s*"([^"]*)"`)
	dataIslandRe = regexp.MustCompile(`(?is)<script[^>]*id\s*=\s*"budget-data"[^>]*>(.*?)</script>`)
	inputTagRe   = regexp.MustCompile(`(?is)<input\b[^>]*>`)
	pairedRowsRe = regexp.MustCompile(`(?is)<tr[^>]*class\s*=\s*"[^"]*\bactual-row\b[^"]*"[^>]*data-pg\s*=\s*"([^"]*)"[^>]*>.*?</tr>\s*<tr[^>]*class\s*=\s*"[^"]*\bbudget-row\b[^"]*"[^>]*>(.*?)</tr>`)
	scRowRe      = regexp.MustCompile(`(?is)<tr[^>]*class\s*=\s*"[^"]*\bservices-charges-row\b[^"]*"[^>]*>(.*?)</tr>`)
	headerRowRe  = regexp.MustCompile(`(?is)<tr[^>]*class\s*=\s*"[^"]*\bmonth-header\b[^"]*"[^>]*>(.*?)</tr>`)
	tdCellRe     = regexp.MustCompile(`(?is)<td[^>]*>(.*?)</td>`)
	thCellRe     = regexp.MustCompile(`(?is)<th[^>]*>(.*?)</th>`)
	spanRe       = regexp.MustCompile(`(?is)<span[^>]*>(.*?)</span>`)
	anyTagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	valueAttrRe  = regexp.MustCompile(`(?i)\bvalue\s*=\s*"([^"]*)"`)
)

func attrValue(tag, name string) string {
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s*=\s*"([^"]*)"`)
	if m := re.FindStringSubmatch(tag); m != nil {
		return m[1]
	}
	return ""
}

func stripTags(s string) string {
	return strings.TrimSpace(anyTagRe.ReplaceAllString(s, ""))
}

// ParseImportedHTML decodes a (possibly user-edited) exported budget form
// back into structured records. Strategy order: the embedded JSON data
// island, then the editable-input scan, then the positional static-row scan.
// Division and budget year metadata are mandatory; a file that yields no
// records at all is rejected.
func ParseImportedHTML(htmlContent string) (*ParsedBudget, error) {
	metas := make(map[string]string)
	for _, m := range metaTagRe.FindAllStringSubmatch(htmlContent, -1) {
		metas[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
	}
	divisionName := metas["division"]
	budgetYear, _ := strconv.Atoi(metas["budget-year"])
	if divisionName == "" || budgetYear == 0 {
		return nil, NewValidationError(constants.ErrMissingBudgetMetadata)
	}
	actualYear, _ := strconv.Atoi(metas["actual-year"])

	parsed := &ParsedBudget{
		Division:   divisionName,
		ActualYear: actualYear,
		BudgetYear: budgetYear,
	}

	decodeDataIsland(htmlContent, parsed)
	if len(parsed.Records) == 0 {
		decodeInputs(htmlContent, parsed)
	}
	if len(parsed.Records) == 0 {
		decodeStaticRows(htmlContent, parsed)
	}
	if len(parsed.ServicesChargesRecords) == 0 {
		decodeServicesChargesRow(htmlContent, parsed)
	}

	if len(parsed.Records) == 0 && len(parsed.ServicesChargesRecords) == 0 {
		return nil, NewValidationError(constants.ErrNoBudgetValues)
	}
	return parsed, nil
}

// decodeDataIsland reads the embedded JSON document written at export time
// and kept in sync by the form's inline script.
func decodeDataIsland(htmlContent string, parsed *ParsedBudget) {
	m := dataIslandRe.FindStringSubmatch(htmlContent)
	if m == nil {
		return
	}
	var doc islandDocument
	if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &doc); err != nil {
		return
	}
	for pg, cells := range doc.Budget {
		if IsServicesCharges(pg) {
			continue
		}
		for i, raw := range cells {
			if i >= 12 {
				break
			}
			if v, ok := parseNumber(raw); ok && v != 0 {
				parsed.Records = append(parsed.Records, BudgetRecord{
					ProductGroup: strings.TrimSpace(pg),
					Month:        i + 1,
					KGS:          mtToKGS(v),
				})
			}
		}
	}
	for i, raw := range doc.ServicesCharges {
		if i >= 12 {
			break
		}
		if v, ok := parseNumber(raw); ok && v != 0 {
			parsed.ServicesChargesRecords = append(parsed.ServicesChargesRecords, ServicesChargesRecord{
				Month:  i + 1,
				Amount: mtToKGS(v),
			})
		}
	}
}

// decodeInputs scans editable <input> cells tagged with data-group and
// data-month. Services Charges inputs additionally carry data-metric=AMOUNT
// and are scaled out of thousands; regular cells convert MT to KGS.
func decodeInputs(htmlContent string, parsed *ParsedBudget) {
	// The island may have produced Services Charges records already even
	// when it held no regular ones; don't double-collect them here.
	scDone := len(parsed.ServicesChargesRecords) > 0
	for _, tag := range inputTagRe.FindAllString(htmlContent, -1) {
		group := strings.TrimSpace(attrValue(tag, "data-group"))
		monthRaw := attrValue(tag, "data-month")
		valueMatch := valueAttrRe.FindStringSubmatch(tag)
		if group == "" || monthRaw == "" || valueMatch == nil {
			continue
		}
		month, err := strconv.Atoi(strings.TrimSpace(monthRaw))
		if err != nil || month < 1 || month > 12 {
			continue
		}
		v, ok := parseNumber(valueMatch[1])
		if !ok || v == 0 {
			continue
		}
		if IsServicesCharges(group) {
			if !scDone && strings.EqualFold(attrValue(tag, "data-metric"), constants.MetricAmount) {
				parsed.ServicesChargesRecords = append(parsed.ServicesChargesRecords, ServicesChargesRecord{
					Month:  month,
					Amount: mtToKGS(v),
				})
			}
			continue
		}
		parsed.Records = append(parsed.Records, BudgetRecord{ProductGroup: group, Month: month, KGS: mtToKGS(v)})
	}
}

// monthHeaderTrusted checks the table's header labels before the positional
// fallback trusts cell order. A reordered or filtered export must not be
// silently misattributed to the wrong months. Files without a recognisable
// header row predate the check and are accepted as-is.
func monthHeaderTrusted(htmlContent string) bool {
	m := headerRowRe.FindStringSubmatch(htmlContent)
	if m == nil {
		return true
	}
	var labels []string
	for _, c := range thCellRe.FindAllStringSubmatch(m[1], -1) {
		labels = append(labels, stripTags(c[1]))
	}
	if len(labels) == 0 {
		for _, c := range tdCellRe.FindAllStringSubmatch(m[1], -1) {
			labels = append(labels, stripTags(c[1]))
		}
	}
	// First label is the row-name column.
	if len(labels) < 13 {
		return false
	}
	for i := 0; i < 12; i++ {
		label := strings.ToLower(strings.TrimSpace(labels[i+1]))
		want := strings.ToLower(monthShort[i])
		if label == want || label == strconv.Itoa(i+1) {
			continue
		}
		return false
	}
	return true
}

// decodeStaticRows handles the filled/saved static render: paired
// actual-row / budget-row rows where the first 12 cells map positionally to
// months 1-12.
func decodeStaticRows(htmlContent string, parsed *ParsedBudget) {
	if !monthHeaderTrusted(htmlContent) {
		return
	}
	for _, rowMatch := range pairedRowsRe.FindAllStringSubmatch(htmlContent, -1) {
		group := strings.TrimSpace(rowMatch[1])
		if group == "" || IsServicesCharges(group) {
			continue
		}
		cells := tdCellRe.FindAllStringSubmatch(rowMatch[2], -1)
		for month, cell := range monthCells(cells) {
			v, ok := parseNumber(stripTags(cell))
			if !ok || v == 0 {
				continue
			}
			parsed.Records = append(parsed.Records, BudgetRecord{ProductGroup: group, Month: month + 1, KGS: mtToKGS(v)})
		}
	}
}

// monthCells maps a row's <td> contents positionally onto months 1-12. Rows
// with more than 12 cells carry a leading label cell, which is dropped;
// shorter rows are taken as-is from month 1.
func monthCells(cells [][]string) []string {
	raw := make([]string, 0, len(cells))
	for _, c := range cells {
		raw = append(raw, c[1])
	}
	if len(raw) > 12 {
		raw = raw[1:]
	}
	if len(raw) > 12 {
		raw = raw[:12]
	}
	return raw
}

// decodeServicesChargesRow is the independent fallback for the Services
// Charges row, reading nested inputs, spans, or bare text, in that order of
// preference, positionally mapped to months 1-12.
func decodeServicesChargesRow(htmlContent string, parsed *ParsedBudget) {
	m := scRowRe.FindStringSubmatch(htmlContent)
	if m == nil {
		return
	}
	cells := tdCellRe.FindAllStringSubmatch(m[1], -1)
	for month, cell := range monthCells(cells) {
		v, ok := parseNumber(cellValue(cell))
		if !ok || v == 0 {
			continue
		}
		parsed.ServicesChargesRecords = append(parsed.ServicesChargesRecords, ServicesChargesRecord{
			Month:  month + 1,
			Amount: mtToKGS(v),
		})
	}
}

func cellValue(cellHTML string) string {
	if tag := inputTagRe.FindString(cellHTML); tag != "" {
		if vm := valueAttrRe.FindStringSubmatch(tag); vm != nil {
			return vm[1]
		}
	}
	if sm := spanRe.FindStringSubmatch(cellHTML); sm != nil {
		return stripTags(sm[1])
	}
	return stripTags(cellHTML)
}
