package budget

import (
	"strings"

	"SalesBudgetSuite/api/constants"
)

// MarginPolicy states how margin-over-RM is derived from amount for a class
// of product groups that carries no volume-based pricing.
type MarginPolicy struct {
	Name           string
	MormFromAmount func(amount float64) float64
}

// ServicesChargesMarginPolicy is the fixed 100%-margin convention for the
// Services Charges group: MoRM always equals Amount. Asserted here once and
// reused by every write path instead of duplicating the rule inline.
var ServicesChargesMarginPolicy = MarginPolicy{
	Name:           "services-charges-full-margin",
	MormFromAmount: func(amount float64) float64 { return amount },
}

// IsServicesCharges reports whether a product group is the distinguished
// service-revenue group. Comparison is case-insensitive on purpose: imported
// files have been seen with inconsistent casing.
func IsServicesCharges(productGroup string) bool {
	return strings.EqualFold(strings.TrimSpace(productGroup), constants.ServicesChargesGroup)
}
