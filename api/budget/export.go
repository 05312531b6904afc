package budget

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"SalesBudgetSuite/api"
	"SalesBudgetSuite/api/constants"
)

func decodeExportRequest(r *http.Request) (*BudgetDisplayPayload, error) {
	var req struct {
		Division              string                     `json:"division"`
		ActualYear            int                        `json:"actualYear"`
		BudgetYear            int                        `json:"budgetYear"`
		TableData             []ProductGroupActuals      `json:"tableData"`
		ServicesChargesData   *ServicesChargesActuals    `json:"servicesChargesData"`
		PricingData           map[string]PricingInfo     `json:"pricingData"`
		BudgetData            map[string]map[int]float64 `json:"budgetData"`
		ServicesChargesBudget map[int]float64            `json:"servicesChargesBudget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, NewValidationError(constants.ErrInvalidRequestBody)
	}
	if strings.TrimSpace(req.Division) == "" {
		return nil, NewValidationError(constants.ErrDivisionRequired)
	}
	if req.ActualYear == 0 {
		return nil, NewValidationError(constants.ErrActualYearRequired)
	}
	if req.BudgetYear == 0 {
		req.BudgetYear = req.ActualYear + 1
	}
	payload := &BudgetDisplayPayload{
		Division:              req.Division,
		TableData:             req.TableData,
		ServicesChargesData:   req.ServicesChargesData,
		PricingData:           req.PricingData,
		BudgetData:            req.BudgetData,
		ServicesChargesBudget: req.ServicesChargesBudget,
		ActualYear:            req.ActualYear,
		BudgetYear:            req.BudgetYear,
	}
	if payload.PricingData == nil {
		payload.PricingData = map[string]PricingInfo{}
	}
	if payload.BudgetData == nil {
		payload.BudgetData = map[string]map[int]float64{}
	}
	if payload.ServicesChargesBudget == nil {
		payload.ServicesChargesBudget = map[int]float64{}
	}
	return payload, nil
}

// ExportBudgetHandler renders the editable HTML form as a file attachment.
func ExportBudgetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodeExportRequest(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		html, err := GenerateDivisionalBudgetHTML(payload)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		filename := ExportFilename(payload.Division, payload.BudgetYear, time.Now())
		w.Header().Set("Content-Type", constants.ContentTypeHTML)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.Write([]byte(html))
	}
}

// ExportBudgetExcelHandler renders the same payload as a workbook for users
// who prefer a spreadsheet over the HTML form. Excel files are export-only;
// re-import goes through the HTML path.
func ExportBudgetExcelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := decodeExportRequest(r)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		f := excelize.NewFile()
		defer f.Close()
		sheet := "Budget"
		f.SetSheetName(f.GetSheetName(0), sheet)

		header := append([]interface{}{"Product Group", "Row"}, make([]interface{}, 12)...)
		for i, m := range monthShort {
			header[i+2] = m
		}
		f.SetSheetRow(sheet, "A1", &header)

		rowIdx := 2
		writeRow := func(pg, kind string, values [12]float64) {
			row := make([]interface{}, 14)
			row[0] = pg
			row[1] = kind
			for i, v := range values {
				if v != 0 {
					row[i+2] = v
				}
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			f.SetSheetRow(sheet, cell, &row)
			rowIdx++
		}

		seen := make(map[string]bool)
		for _, group := range payload.TableData {
			seen[group.ProductGroup] = true
			var actual, budget [12]float64
			for m := 1; m <= 12; m++ {
				if mv := group.MonthlyActual[m]; mv != nil {
					actual[m-1] = mv.MT
				}
				budget[m-1] = payload.BudgetData[group.ProductGroup][m]
			}
			writeRow(group.ProductGroup, fmt.Sprintf("Actual %d (MT)", payload.ActualYear), actual)
			writeRow(group.ProductGroup, fmt.Sprintf("Budget %d (MT)", payload.BudgetYear), budget)
		}
		for pg, months := range payload.BudgetData {
			if seen[pg] || IsServicesCharges(pg) {
				continue
			}
			var budget [12]float64
			for m := 1; m <= 12; m++ {
				budget[m-1] = months[m]
			}
			writeRow(pg, fmt.Sprintf("Budget %d (MT)", payload.BudgetYear), budget)
		}
		if payload.ServicesChargesData != nil || len(payload.ServicesChargesBudget) > 0 {
			var actual, budget [12]float64
			for m := 1; m <= 12; m++ {
				if payload.ServicesChargesData != nil {
					if sm := payload.ServicesChargesData.MonthlyActual[m]; sm != nil {
						actual[m-1] = sm.Amount / constants.KgsPerMT
					}
				}
				budget[m-1] = payload.ServicesChargesBudget[m]
			}
			writeRow(constants.ServicesChargesGroup, fmt.Sprintf("Actual %d ('000)", payload.ActualYear), actual)
			writeRow(constants.ServicesChargesGroup, fmt.Sprintf("Budget %d ('000)", payload.BudgetYear), budget)
		}

		filename := strings.TrimSuffix(ExportFilename(payload.Division, payload.BudgetYear, time.Now()), ".html") + ".xlsx"
		w.Header().Set("Content-Type", constants.ContentTypeXLSX)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		if err := f.Write(w); err != nil {
			api.LogError("excel export write failed: %v", err)
		}
	}
}
