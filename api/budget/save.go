package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"SalesBudgetSuite/api"
	"SalesBudgetSuite/api/constants"
	"SalesBudgetSuite/internal/cache"
	"SalesBudgetSuite/internal/division"
	"SalesBudgetSuite/internal/logger"
)

// LiveRecord is one cell from the in-app budget editor. KGS-metric values
// arrive in MT (the display unit) and are converted to KGS on write;
// AMOUNT and MORM values are stored as sent.
type LiveRecord struct {
	ProductGroup string  `json:"productGroup"`
	Month        int     `json:"month"`
	Metric       string  `json:"metric"`
	Value        float64 `json:"value"`
}

// SaveResult mirrors ImportResult for the live-edit path.
type SaveResult struct {
	RecordsInserted        int             `json:"recordsInserted"`
	RecordsProcessed       int             `json:"recordsProcessed"`
	ServicesChargesRecords int             `json:"servicesChargesRecords"`
	BudgetTotals           *BudgetTotals   `json:"budgetTotals"`
	SkippedRecords         []SkippedRecord `json:"skippedRecords"`
	ValidationErrors       []string        `json:"validationErrors"`
	Warnings               []string        `json:"warnings"`
	PricingYear            int             `json:"pricingYear"`
}

// SaveDivisionalBudget persists the live editor's record set with the same
// upsert discipline as the HTML import: per-record skips are reported, the
// write itself is one transaction.
func SaveDivisionalBudget(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, budgetYear int, records []LiveRecord, scRecords []ServicesChargesRecord) (*SaveResult, error) {
	result := &SaveResult{
		SkippedRecords:   []SkippedRecord{},
		ValidationErrors: []string{},
		Warnings:         []string{},
		PricingYear:      budgetYear - 1,
	}
	totals := &BudgetTotals{}

	type row struct {
		productGroup string
		month        int
		metric       string
		value        float64
	}
	rows := make([]row, 0, len(records))
	for _, rec := range records {
		metric := strings.ToUpper(strings.TrimSpace(rec.Metric))
		if metric == "" {
			metric = constants.MetricKGS
		}
		switch {
		case strings.TrimSpace(rec.ProductGroup) == "":
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{Month: rec.Month, Reason: "missing product group"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("month %d: missing product group", rec.Month))
			continue
		case rec.Month < 1 || rec.Month > 12:
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: rec.ProductGroup, Month: rec.Month, Reason: "month out of range"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("%s: month %d out of range", rec.ProductGroup, rec.Month))
			continue
		case metric != constants.MetricKGS && metric != constants.MetricAmount && metric != constants.MetricMORM:
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: rec.ProductGroup, Month: rec.Month, Reason: "unknown metric " + metric})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("%s month %d: unknown metric %s", rec.ProductGroup, rec.Month, metric))
			continue
		case rec.Value < 0:
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: rec.ProductGroup, Month: rec.Month, Reason: "negative value"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("%s month %d: negative value", rec.ProductGroup, rec.Month))
			continue
		}
		value := rec.Value
		if metric == constants.MetricKGS {
			value = math.Round(rec.Value * constants.KgsPerMT)
			totals.VolumeKGS += value
		} else if metric == constants.MetricAmount {
			totals.Amount += value
		} else {
			totals.MORM += value
		}
		rows = append(rows, row{productGroup: strings.TrimSpace(rec.ProductGroup), month: rec.Month, metric: metric, value: value})
	}
	totals.VolumeMT = totals.VolumeKGS / constants.KgsPerMT

	scClean := make([]ServicesChargesRecord, 0, len(scRecords))
	for _, rec := range scRecords {
		if rec.Month < 1 || rec.Month > 12 {
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: constants.ServicesChargesGroup, Month: rec.Month, Reason: "month out of range"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("services charges: month %d out of range", rec.Month))
			continue
		}
		if rec.Amount < 0 {
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: constants.ServicesChargesGroup, Month: rec.Month, Reason: "negative amount"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("services charges month %d: negative amount", rec.Month))
			continue
		}
		scClean = append(scClean, rec)
		amount := float64(rec.Amount)
		totals.Amount += amount
		totals.MORM += ServicesChargesMarginPolicy.MormFromAmount(amount)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrTxStartFailed+"%w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	upsert := fmt.Sprintf(`
		INSERT INTO %s (division, year, month, product_group, metric, value, uploaded_filename, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, NOW())
		ON CONFLICT (division, year, month, product_group, metric)
		DO UPDATE SET value = EXCLUDED.value, uploaded_at = NOW()`, tables.Budget)
	div := strings.ToUpper(strings.TrimSpace(divisionName))
	written := 0
	for _, rw := range rows {
		if _, err := tx.Exec(ctx, upsert, div, budgetYear, rw.month, rw.productGroup, rw.metric, rw.value); err != nil {
			return nil, fmt.Errorf("budget upsert failed for %q month %d: %w", rw.productGroup, rw.month, err)
		}
		written++
	}
	for _, rec := range scClean {
		amount := float64(rec.Amount)
		morm := ServicesChargesMarginPolicy.MormFromAmount(amount)
		if _, err := tx.Exec(ctx, upsert, div, budgetYear, rec.Month, constants.ServicesChargesGroup, constants.MetricAmount, amount); err != nil {
			return nil, fmt.Errorf("services charges upsert failed for month %d: %w", rec.Month, err)
		}
		if _, err := tx.Exec(ctx, upsert, div, budgetYear, rec.Month, constants.ServicesChargesGroup, constants.MetricMORM, morm); err != nil {
			return nil, fmt.Errorf("services charges upsert failed for month %d: %w", rec.Month, err)
		}
		written += 2
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf(constants.ErrTxCommitFailed+"%w", err)
	}
	committed = true

	result.RecordsInserted = written
	result.RecordsProcessed = len(records) + len(scRecords)
	result.ServicesChargesRecords = len(scClean)
	result.BudgetTotals = totals
	return result, nil
}

// DeleteDivisionalBudget removes every budget row for the target year.
// Destructive and final; callers gate it behind explicit user confirmation.
func DeleteDivisionalBudget(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, budgetYear int) (int64, error) {
	q := fmt.Sprintf(`DELETE FROM %s WHERE UPPER(division) = UPPER($1) AND year = $2`, tables.Budget)
	tag, err := pool.Exec(ctx, q, divisionName, budgetYear)
	if err != nil {
		return 0, fmt.Errorf("budget delete failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SaveDivisionalBudgetHandler serves the live-edit save path.
func SaveDivisionalBudgetHandler(reg *division.Registry, payloadCache *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Division               string                  `json:"division"`
			BudgetYear             int                     `json:"budgetYear"`
			Records                []LiveRecord            `json:"records"`
			ServicesChargesRecords []ServicesChargesRecord `json:"servicesChargesRecords"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		if strings.TrimSpace(req.Division) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrDivisionRequired)
			return
		}
		if req.BudgetYear == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrBudgetYearRequired)
			return
		}
		if len(req.Records) == 0 && len(req.ServicesChargesRecords) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrNoBudgetValues)
			return
		}
		pool, err := reg.Pool(req.Division)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		tables, err := reg.ResolveStrict(req.Division)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := SaveDivisionalBudget(r.Context(), pool, tables, req.Division, req.BudgetYear, req.Records, req.ServicesChargesRecords)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payloadCache.InvalidateDivision(r.Context(), req.Division)
		api.RespondWithJSON(w, http.StatusOK, result)
	}
}

// DeleteDivisionalBudgetHandler serves the whole-year delete that the
// live-save flow uses for explicit delete-then-recreate.
func DeleteDivisionalBudgetHandler(reg *division.Registry, payloadCache *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		divisionName := strings.TrimSpace(vars["division"])
		budgetYear, err := strconv.Atoi(vars["budgetYear"])
		if divisionName == "" || err != nil || budgetYear == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrBudgetYearRequired)
			return
		}
		pool, perr := reg.Pool(divisionName)
		if perr != nil {
			api.RespondWithError(w, http.StatusInternalServerError, perr.Error())
			return
		}
		tables, terr := reg.ResolveStrict(divisionName)
		if terr != nil {
			api.RespondWithError(w, http.StatusBadRequest, terr.Error())
			return
		}
		deleted, derr := DeleteDivisionalBudget(r.Context(), pool, tables, divisionName, budgetYear)
		if derr != nil {
			api.RespondWithError(w, http.StatusInternalServerError, derr.Error())
			return
		}
		payloadCache.InvalidateDivision(r.Context(), divisionName)
		logger.GlobalLogger.LogAudit(fmt.Sprintf("budget delete: %d rows removed for %s/%d", deleted, divisionName, budgetYear))
		api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"message":        "Divisional budget deleted",
			"division":       strings.ToUpper(divisionName),
			"budgetYear":     budgetYear,
			"recordsDeleted": deleted,
		})
	}
}
