package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"SalesBudgetSuite/api"
	"SalesBudgetSuite/api/constants"
	"SalesBudgetSuite/internal/cache"
	"SalesBudgetSuite/internal/division"
)

// PricingRoundingEntry is one per-product-group set of rounded pricing
// figures. RM is always derived server-side as ASP minus MoRM.
type PricingRoundingEntry struct {
	ProductGroup string   `json:"productGroup"`
	ASPRound     *float64 `json:"aspRound"`
	MORMRound    *float64 `json:"mormRound"`
	RMRound      *float64 `json:"rmRound"`
	UpdatedAt    string   `json:"updatedAt,omitempty"`
}

var (
	roundingMin = decimal.NewFromInt(constants.RoundingMin)
	roundingMax = decimal.NewFromInt(constants.RoundingMax)
)

func checkRoundingBound(productGroup, field string, v *float64) error {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	if d.LessThan(roundingMin) || d.GreaterThan(roundingMax) {
		return NewValidationError("%s for %q must be between %d and %d",
			field, productGroup, constants.RoundingMin, constants.RoundingMax)
	}
	return nil
}

// normalizeEntry enforces the derived-field rule: when both ASP and MoRM are
// present, RM is recomputed as round(ASP - MoRM, 2) and bounds-checked;
// when either side is missing, RM is forced to null no matter what the
// client supplied.
func normalizeEntry(e *PricingRoundingEntry) error {
	if strings.TrimSpace(e.ProductGroup) == "" {
		return NewValidationError("product group is required for every rounding entry")
	}
	if err := checkRoundingBound(e.ProductGroup, "ASP rounding", e.ASPRound); err != nil {
		return err
	}
	if err := checkRoundingBound(e.ProductGroup, "MoRM rounding", e.MORMRound); err != nil {
		return err
	}
	if e.ASPRound == nil || e.MORMRound == nil {
		e.RMRound = nil
		return nil
	}
	rm, _ := decimal.NewFromFloat(*e.ASPRound).
		Sub(decimal.NewFromFloat(*e.MORMRound)).
		Round(2).Float64()
	if err := checkRoundingBound(e.ProductGroup, "RM rounding", &rm); err != nil {
		return err
	}
	e.RMRound = &rm
	return nil
}

// GetRoundedPrices is a plain select over the division's pricing table.
func GetRoundedPrices(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, year int) ([]PricingRoundingEntry, error) {
	q := fmt.Sprintf(`
		SELECT product_group, asp_round, morm_round, rm_round, updated_at
		FROM %s
		WHERE UPPER(division) = UPPER($1) AND year = $2
		ORDER BY product_group`, tables.Pricing)
	rows, err := pool.Query(ctx, q, divisionName, year)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrQueryFailed+"%w", err)
	}
	defer rows.Close()
	var out []PricingRoundingEntry
	for rows.Next() {
		var e PricingRoundingEntry
		var updatedAt time.Time
		if err := rows.Scan(&e.ProductGroup, &e.ASPRound, &e.MORMRound, &e.RMRound, &updatedAt); err != nil {
			return nil, err
		}
		e.UpdatedAt = updatedAt.Format(constants.DateTimeFormat)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveRoundedPrices validates and upserts a batch of rounding entries in a
// single transaction. Any failure rolls back the whole batch.
func SaveRoundedPrices(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, year int, entries []PricingRoundingEntry) error {
	if len(entries) == 0 {
		return NewValidationError(constants.ErrRoundedDataRequired)
	}
	// Fail fast: validate the whole batch before the first write.
	for i := range entries {
		if err := normalizeEntry(&entries[i]); err != nil {
			return err
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf(constants.ErrTxStartFailed+"%w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback(ctx)
		}
	}()

	upsert := fmt.Sprintf(`
		INSERT INTO %s (division, year, product_group, asp_round, morm_round, rm_round, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (division, year, product_group)
		DO UPDATE SET asp_round = EXCLUDED.asp_round,
		              morm_round = EXCLUDED.morm_round,
		              rm_round = EXCLUDED.rm_round,
		              updated_at = NOW()`, tables.Pricing)
	div := strings.ToUpper(strings.TrimSpace(divisionName))
	for _, e := range entries {
		if _, err := tx.Exec(ctx, upsert, div, year, strings.TrimSpace(e.ProductGroup), e.ASPRound, e.MORMRound, e.RMRound); err != nil {
			return fmt.Errorf("rounding upsert failed for %q: %w", e.ProductGroup, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf(constants.ErrTxCommitFailed+"%w", err)
	}
	committed = true
	return nil
}

// GetRoundedPricesHandler serves the per-division rounded pricing list.
func GetRoundedPricesHandler(reg *division.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Division string `json:"division"`
			Year     int    `json:"year"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		if strings.TrimSpace(req.Division) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrDivisionRequired)
			return
		}
		if req.Year == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrYearRequired)
			return
		}
		pool, err := reg.Pool(req.Division)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entries, err := GetRoundedPrices(r.Context(), pool, reg.Resolve(req.Division), req.Division, req.Year)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if entries == nil {
			entries = []PricingRoundingEntry{}
		}
		api.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"rows":    entries,
		})
	}
}

// SaveRoundedPricesHandler persists a rounding batch, all-or-nothing.
func SaveRoundedPricesHandler(reg *division.Registry, payloadCache *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Division    string                 `json:"division"`
			Year        int                    `json:"year"`
			RoundedData []PricingRoundingEntry `json:"roundedData"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		if strings.TrimSpace(req.Division) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrDivisionRequired)
			return
		}
		if req.Year == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrYearRequired)
			return
		}
		if len(req.RoundedData) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrRoundedDataRequired)
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
		if err := SaveRoundedPrices(r.Context(), pool, tables, req.Division, req.Year, req.RoundedData); err != nil {
			if IsValidationError(err) {
				api.RespondWithError(w, http.StatusBadRequest, err.Error())
			} else {
				api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		payloadCache.InvalidateDivision(r.Context(), req.Division)
		api.RespondWithResult(w, true, "")
	}
}
