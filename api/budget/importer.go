package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"SalesBudgetSuite/api"
	"SalesBudgetSuite/api/constants"
	"SalesBudgetSuite/internal/cache"
	"SalesBudgetSuite/internal/division"
	"SalesBudgetSuite/internal/logger"
)

// ImportResult is the single response shape for both import outcomes: the
// confirmation gate and the persisted summary.
type ImportResult struct {
	SessionID              string          `json:"sessionId"`
	NeedsConfirmation      bool            `json:"needsConfirmation,omitempty"`
	ExistingBudget         *ExistingBudget `json:"existingBudget,omitempty"`
	Metadata               *ParsedBudget   `json:"metadata,omitempty"`
	RecordsToImport        int             `json:"recordsToImport,omitempty"`
	RecordsInserted        int             `json:"recordsInserted"`
	RecordsProcessed       int             `json:"recordsProcessed"`
	ServicesChargesRecords int             `json:"servicesChargesRecords"`
	BudgetTotals           *BudgetTotals   `json:"budgetTotals,omitempty"`
	SkippedRecords         []SkippedRecord `json:"skippedRecords"`
	ValidationErrors       []string        `json:"validationErrors"`
	Warnings               []string        `json:"warnings"`
	PricingYear            int             `json:"pricingYear,omitempty"`
}

// CheckForExistingBudget counts what is already stored for the target year.
func CheckForExistingBudget(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, budgetYear int) (*ExistingBudget, error) {
	q := fmt.Sprintf(`
		SELECT COUNT(*), MAX(uploaded_at)
		FROM %s
		WHERE UPPER(division) = UPPER($1) AND year = $2`, tables.Budget)
	var count int
	var lastUpload *time.Time
	if err := pool.QueryRow(ctx, q, divisionName, budgetYear).Scan(&count, &lastUpload); err != nil {
		return nil, fmt.Errorf(constants.ErrQueryFailed+"%w", err)
	}
	existing := &ExistingBudget{RecordCount: count}
	if lastUpload != nil {
		existing.LastUpload = lastUpload.Format(constants.DateTimeFormat)
	}
	return existing, nil
}

// upsertBudgetRows writes regular and Services Charges rows under one
// transaction with insert-or-update semantics: a subset import never
// destroys untouched months. Returns the number of rows written.
func upsertBudgetRows(ctx context.Context, tx pgx.Tx, tables division.TableSet, divisionName string, budgetYear int, records []BudgetRecord, scRecords []ServicesChargesRecord, filename string) (int, error) {
	upsert := fmt.Sprintf(`
		INSERT INTO %s (division, year, month, product_group, metric, value, uploaded_filename, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (division, year, month, product_group, metric)
		DO UPDATE SET value = EXCLUDED.value,
		              uploaded_filename = EXCLUDED.uploaded_filename,
		              uploaded_at = NOW()`, tables.Budget)
	div := strings.ToUpper(strings.TrimSpace(divisionName))
	written := 0
	for _, rec := range records {
		if _, err := tx.Exec(ctx, upsert, div, budgetYear, rec.Month, rec.ProductGroup, constants.MetricKGS, rec.KGS, filename); err != nil {
			return written, fmt.Errorf("budget upsert failed for %q month %d: %w", rec.ProductGroup, rec.Month, err)
		}
		written++
	}
	for _, rec := range scRecords {
		amount := float64(rec.Amount)
		if _, err := tx.Exec(ctx, upsert, div, budgetYear, rec.Month, constants.ServicesChargesGroup, constants.MetricAmount, amount, filename); err != nil {
			return written, fmt.Errorf("services charges upsert failed for month %d: %w", rec.Month, err)
		}
		written++
		morm := ServicesChargesMarginPolicy.MormFromAmount(amount)
		if _, err := tx.Exec(ctx, upsert, div, budgetYear, rec.Month, constants.ServicesChargesGroup, constants.MetricMORM, morm, filename); err != nil {
			return written, fmt.Errorf("services charges upsert failed for month %d: %w", rec.Month, err)
		}
		written++
	}
	return written, nil
}

// ImportBudget runs the one-shot import state machine: parsed records either
// hit the confirmation gate (existing budget, no forceUpdate, zero writes)
// or are persisted idempotently.
func ImportBudget(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, parsed *ParsedBudget, forceUpdate bool, filename string) (*ImportResult, error) {
	result := &ImportResult{
		SessionID:        uuid.NewString(),
		SkippedRecords:   []SkippedRecord{},
		ValidationErrors: []string{},
		Warnings:         []string{},
	}

	existing, err := CheckForExistingBudget(ctx, pool, tables, parsed.Division, parsed.BudgetYear)
	if err != nil {
		return nil, err
	}
	if existing.RecordCount > 0 && !forceUpdate {
		result.NeedsConfirmation = true
		result.ExistingBudget = existing
		result.Metadata = parsed
		result.RecordsToImport = len(parsed.Records) + len(parsed.ServicesChargesRecords)
		return result, nil
	}

	records, scRecords := screenRecords(parsed, result)

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
	written, err := upsertBudgetRows(ctx, tx, tables, parsed.Division, parsed.BudgetYear, records, scRecords, filename)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf(constants.ErrTxCommitFailed+"%w", err)
	}
	committed = true

	result.RecordsInserted = written
	result.RecordsProcessed = len(parsed.Records) + len(parsed.ServicesChargesRecords)
	result.ServicesChargesRecords = len(scRecords)
	result.BudgetTotals = computeTotals(records, scRecords)
	result.PricingYear = parsed.BudgetYear - 1
	return result, nil
}

// screenRecords drops out-of-contract records with a per-record report
// instead of failing the whole import.
func screenRecords(parsed *ParsedBudget, result *ImportResult) ([]BudgetRecord, []ServicesChargesRecord) {
	records := make([]BudgetRecord, 0, len(parsed.Records))
	for _, rec := range parsed.Records {
		switch {
		case strings.TrimSpace(rec.ProductGroup) == "":
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{Month: rec.Month, Reason: "missing product group"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("month %d: missing product group", rec.Month))
		case rec.Month < 1 || rec.Month > 12:
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: rec.ProductGroup, Month: rec.Month, Reason: "month out of range"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("%s: month %d out of range", rec.ProductGroup, rec.Month))
		case rec.KGS < 0:
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: rec.ProductGroup, Month: rec.Month, Reason: "negative volume"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("%s month %d: negative volume", rec.ProductGroup, rec.Month))
		default:
			records = append(records, rec)
		}
	}
	scRecords := make([]ServicesChargesRecord, 0, len(parsed.ServicesChargesRecords))
	for _, rec := range parsed.ServicesChargesRecords {
		switch {
		case rec.Month < 1 || rec.Month > 12:
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: constants.ServicesChargesGroup, Month: rec.Month, Reason: "month out of range"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("services charges: month %d out of range", rec.Month))
		case rec.Amount < 0:
			result.SkippedRecords = append(result.SkippedRecords, SkippedRecord{ProductGroup: constants.ServicesChargesGroup, Month: rec.Month, Reason: "negative amount"})
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("services charges month %d: negative amount", rec.Month))
		default:
			scRecords = append(scRecords, rec)
		}
	}
	return records, scRecords
}

// computeTotals summarises a written record set. Services Charges feeds
// amount and morm (equal by policy) but never volume.
func computeTotals(records []BudgetRecord, scRecords []ServicesChargesRecord) *BudgetTotals {
	totals := &BudgetTotals{}
	for _, rec := range records {
		totals.VolumeKGS += float64(rec.KGS)
	}
	totals.VolumeMT = totals.VolumeKGS / constants.KgsPerMT
	for _, rec := range scRecords {
		amount := float64(rec.Amount)
		totals.Amount += amount
		totals.MORM += ServicesChargesMarginPolicy.MormFromAmount(amount)
	}
	return totals
}

// ImportBudgetHandler accepts a previously exported (and possibly edited)
// HTML form and runs the conflict-gated import.
func ImportBudgetHandler(reg *division.Registry, payloadCache *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HTMLContent    string `json:"htmlContent"`
			Filename       string `json:"filename"`
			ForceUpdate    bool   `json:"forceUpdate"`
			ConfirmReplace bool   `json:"confirmReplace"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		if strings.TrimSpace(req.HTMLContent) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrHTMLContentRequired)
			return
		}
		parsed, err := ParseImportedHTML(req.HTMLContent)
		if err != nil {
			if IsValidationError(err) {
				api.RespondWithError(w, http.StatusBadRequest, err.Error())
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		pool, err := reg.Pool(parsed.Division)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		tables, err := reg.ResolveStrict(parsed.Division)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		force := req.ForceUpdate || req.ConfirmReplace
		result, err := ImportBudget(r.Context(), pool, tables, parsed, force, strings.TrimSpace(req.Filename))
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !result.NeedsConfirmation {
			payloadCache.InvalidateDivision(r.Context(), parsed.Division)
			logger.GlobalLogger.LogAudit(fmt.Sprintf("budget import %s: %d rows written for %s/%d",
				result.SessionID, result.RecordsInserted, parsed.Division, parsed.BudgetYear))
		}
		api.RespondWithJSON(w, http.StatusOK, result)
	}
}
