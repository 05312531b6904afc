package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"SalesBudgetSuite/api"
	"SalesBudgetSuite/api/constants"
	"SalesBudgetSuite/internal/cache"
	"SalesBudgetSuite/internal/division"
)

// GetDivisionalBudgetInfo builds the payload behind the budget entry screen:
// summed actuals by product group and month, the Services Charges slice,
// rounded pricing metadata, and whatever budget already exists for the
// target year. Absence of a prior budget is normal and yields empty maps.
func GetDivisionalBudgetInfo(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, actualYear, budgetYear int) (*BudgetDisplayPayload, error) {
	if budgetYear == 0 {
		budgetYear = actualYear + 1
	}
	payload := &BudgetDisplayPayload{
		Division:              divisionName,
		PricingData:           make(map[string]PricingInfo),
		BudgetData:            make(map[string]map[int]float64),
		ServicesChargesBudget: make(map[int]float64),
		ActualYear:            actualYear,
		BudgetYear:            budgetYear,
	}

	byGroup := make(map[string]*ProductGroupActuals)
	actualsQ := fmt.Sprintf(`
		SELECT product_group, month, UPPER(value_type), COALESCE(SUM(value), 0)
		FROM %s
		WHERE year = $1
		  AND type = 'Actual'
		  AND UPPER(value_type) IN ('AMOUNT', 'KGS', 'MORM')
		  AND TRIM(COALESCE(product_group, '')) <> ''
		  AND TRIM(product_group) <> $2
		GROUP BY product_group, month, UPPER(value_type)`, tables.ExcelData)
	rows, err := pool.Query(ctx, actualsQ, actualYear, constants.ServicesChargesGroup)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrQueryFailed+"%w", err)
	}
	for rows.Next() {
		var pg, valueType string
		var month int
		var value float64
		if err := rows.Scan(&pg, &month, &valueType, &value); err != nil {
			rows.Close()
			return nil, err
		}
		pg = strings.TrimSpace(pg)
		g, ok := byGroup[pg]
		if !ok {
			g = &ProductGroupActuals{ProductGroup: pg, MonthlyActual: make(map[int]*MonthValues)}
			byGroup[pg] = g
		}
		mv := g.MonthlyActual[month]
		if mv == nil {
			mv = &MonthValues{}
			g.MonthlyActual[month] = mv
		}
		switch valueType {
		case constants.MetricKGS:
			mv.KGS = value
			mv.MT = value / constants.KgsPerMT
		case constants.MetricAmount:
			mv.Amount = value
		case constants.MetricMORM:
			mv.MORM = value
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]string, 0, len(byGroup))
	for pg := range byGroup {
		groups = append(groups, pg)
	}
	sort.Strings(groups)
	for _, pg := range groups {
		payload.TableData = append(payload.TableData, *byGroup[pg])
	}

	sc, err := servicesChargesActuals(ctx, pool, tables, actualYear)
	if err != nil {
		return nil, err
	}
	payload.ServicesChargesData = sc

	if err := attachPricing(ctx, pool, tables, divisionName, actualYear, payload); err != nil {
		return nil, err
	}
	if err := attachExistingBudget(ctx, pool, tables, divisionName, budgetYear, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// servicesChargesActuals aggregates the service-revenue group separately:
// it carries AMOUNT and MORM only, never volume. Returns nil when the
// division has no Services Charges activity at all.
func servicesChargesActuals(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, actualYear int) (*ServicesChargesActuals, error) {
	q := fmt.Sprintf(`
		SELECT month, UPPER(value_type), COALESCE(SUM(value), 0)
		FROM %s
		WHERE year = $1
		  AND type = 'Actual'
		  AND TRIM(product_group) = $2
		  AND UPPER(value_type) IN ('AMOUNT', 'MORM')
		GROUP BY month, UPPER(value_type)`, tables.ExcelData)
	rows, err := pool.Query(ctx, q, actualYear, constants.ServicesChargesGroup)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrQueryFailed+"%w", err)
	}
	defer rows.Close()
	sc := &ServicesChargesActuals{MonthlyActual: make(map[int]*ServicesChargesMonth)}
	for rows.Next() {
		var month int
		var valueType string
		var value float64
		if err := rows.Scan(&month, &valueType, &value); err != nil {
			return nil, err
		}
		m := sc.MonthlyActual[month]
		if m == nil {
			m = &ServicesChargesMonth{}
			sc.MonthlyActual[month] = m
		}
		if valueType == constants.MetricAmount {
			m.Amount = value
		} else {
			m.MORM = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(sc.MonthlyActual) == 0 {
		return nil, nil
	}
	return sc, nil
}

// attachPricing joins the rounded pricing table and the material-percentage
// metadata for the actual year.
func attachPricing(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, actualYear int, payload *BudgetDisplayPayload) error {
	q := fmt.Sprintf(`
		SELECT product_group, asp_round, morm_round, rm_round
		FROM %s
		WHERE UPPER(division) = UPPER($1) AND year = $2`, tables.Pricing)
	rows, err := pool.Query(ctx, q, divisionName, actualYear)
	if err != nil {
		return fmt.Errorf(constants.ErrQueryFailed+"%w", err)
	}
	for rows.Next() {
		var pg string
		var asp, morm, rm *float64
		if err := rows.Scan(&pg, &asp, &morm, &rm); err != nil {
			rows.Close()
			return err
		}
		payload.PricingData[strings.TrimSpace(pg)] = PricingInfo{ASP: asp, MORM: morm, RM: rm}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	matQ := fmt.Sprintf(`SELECT product_group, COALESCE(material, ''), COALESCE(process, '') FROM %s`, tables.Material)
	matRows, err := pool.Query(ctx, matQ)
	if err != nil {
		// Material metadata is optional display garnish; an absent table must
		// not break the budget screen.
		api.LogInfo("material metadata unavailable for %s: %v", divisionName, err)
		return nil
	}
	defer matRows.Close()
	for matRows.Next() {
		var pg, material, process string
		if err := matRows.Scan(&pg, &material, &process); err != nil {
			return err
		}
		pg = strings.TrimSpace(pg)
		info := payload.PricingData[pg]
		info.Material = material
		info.Process = process
		payload.PricingData[pg] = info
	}
	return matRows.Err()
}

// attachExistingBudget merges any prior budget for the target year into the
// payload, converting storage units back to display units: regular KGS
// values to MT, Services Charges amounts to thousands.
func attachExistingBudget(ctx context.Context, pool *pgxpool.Pool, tables division.TableSet, divisionName string, budgetYear int, payload *BudgetDisplayPayload) error {
	q := fmt.Sprintf(`
		SELECT product_group, month, UPPER(metric), value
		FROM %s
		WHERE UPPER(division) = UPPER($1) AND year = $2`, tables.Budget)
	rows, err := pool.Query(ctx, q, divisionName, budgetYear)
	if err != nil {
		return fmt.Errorf(constants.ErrQueryFailed+"%w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pg, metric string
		var month int
		var value float64
		if err := rows.Scan(&pg, &month, &metric, &value); err != nil {
			return err
		}
		pg = strings.TrimSpace(pg)
		if IsServicesCharges(pg) {
			if metric == constants.MetricAmount {
				payload.ServicesChargesBudget[month] = value / constants.KgsPerMT
			}
			continue
		}
		if metric != constants.MetricKGS {
			continue
		}
		if payload.BudgetData[pg] == nil {
			payload.BudgetData[pg] = make(map[int]float64)
		}
		payload.BudgetData[pg][month] = value / constants.KgsPerMT
	}
	return rows.Err()
}

// GetDivisionalBudgetInfoHandler serves the budget entry payload, fronted by
// the division-scoped read-through cache.
func GetDivisionalBudgetInfoHandler(reg *division.Registry, payloadCache *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Division   string `json:"division"`
			ActualYear int    `json:"actualYear"`
			BudgetYear int    `json:"budgetYear"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		if strings.TrimSpace(req.Division) == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrDivisionRequired)
			return
		}
		if req.ActualYear == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrActualYearRequired)
			return
		}
		budgetYear := req.BudgetYear
		if budgetYear == 0 {
			budgetYear = req.ActualYear + 1
		}

		ctx := r.Context()
		key := cache.Key(req.Division, "info", fmt.Sprintf("%d-%d", req.ActualYear, budgetYear))
		var cached BudgetDisplayPayload
		if payloadCache.GetJSON(ctx, key, &cached) {
			api.RespondWithJSON(w, http.StatusOK, &cached)
			return
		}

		pool, err := reg.Pool(req.Division)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payload, err := GetDivisionalBudgetInfo(ctx, pool, reg.Resolve(req.Division), req.Division, req.ActualYear, budgetYear)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		payloadCache.SetJSON(ctx, key, payload)
		api.RespondWithJSON(w, http.StatusOK, payload)
	}
}
