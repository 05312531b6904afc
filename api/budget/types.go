package budget

// MonthValues holds one product group's actuals for a single month. Volume
// is carried both in storage units (KGS) and display units (MT).
type MonthValues struct {
	KGS    float64 `json:"KGS"`
	MT     float64 `json:"MT"`
	Amount float64 `json:"AMOUNT"`
	MORM   float64 `json:"MORM"`
}

// ProductGroupActuals is one row of the actuals reference table.
type ProductGroupActuals struct {
	ProductGroup  string               `json:"productGroup"`
	MonthlyActual map[int]*MonthValues `json:"monthlyActual"`
}

// ServicesChargesMonth holds service-revenue actuals, which have no volume.
type ServicesChargesMonth struct {
	Amount float64 `json:"AMOUNT"`
	MORM   float64 `json:"MORM"`
}

// ServicesChargesActuals is the Services Charges slice of the payload.
type ServicesChargesActuals struct {
	MonthlyActual map[int]*ServicesChargesMonth `json:"monthlyActual"`
}

// PricingInfo carries the per-kg rounded pricing figures and the material /
// process metadata attached to a product group.
type PricingInfo struct {
	ASP      *float64 `json:"asp"`
	MORM     *float64 `json:"morm"`
	RM       *float64 `json:"rm"`
	Material string   `json:"material,omitempty"`
	Process  string   `json:"process,omitempty"`
}

// BudgetDisplayPayload is the full payload behind the budget entry screen
// and the exported form.
type BudgetDisplayPayload struct {
	Division              string                  `json:"division"`
	TableData             []ProductGroupActuals   `json:"data"`
	ServicesChargesData   *ServicesChargesActuals `json:"servicesChargesData"`
	PricingData           map[string]PricingInfo  `json:"pricingData"`
	BudgetData            map[string]map[int]float64 `json:"budgetData"`
	ServicesChargesBudget map[int]float64         `json:"servicesChargesBudget"`
	ActualYear            int                     `json:"actualYear"`
	BudgetYear            int                     `json:"budgetYear"`
}

// BudgetRecord is one decoded regular budget value, already converted to
// storage units (KGS).
type BudgetRecord struct {
	ProductGroup string `json:"productGroup"`
	Month        int    `json:"month"`
	KGS          int64  `json:"kgs"`
}

// ServicesChargesRecord is one decoded Services Charges value, already
// scaled out of thousands.
type ServicesChargesRecord struct {
	Month  int   `json:"month"`
	Amount int64 `json:"amount"`
}

// ParsedBudget is the outcome of decoding one exported form.
type ParsedBudget struct {
	Division               string                  `json:"division"`
	ActualYear             int                     `json:"actualYear"`
	BudgetYear             int                     `json:"budgetYear"`
	Records                []BudgetRecord          `json:"records"`
	ServicesChargesRecords []ServicesChargesRecord `json:"servicesChargesRecords"`
}

// BudgetTotals summarises a just-written record set for the confirmation UI.
type BudgetTotals struct {
	VolumeMT  float64 `json:"volumeMT"`
	VolumeKGS float64 `json:"volumeKGS"`
	Amount    float64 `json:"amount"`
	MORM      float64 `json:"morm"`
}

// SkippedRecord reports one record rejected during a live save or import.
type SkippedRecord struct {
	ProductGroup string `json:"productGroup"`
	Month        int    `json:"month"`
	Reason       string `json:"reason"`
}

// ExistingBudget describes what is already stored for a (division, year)
// target when an import needs confirmation.
type ExistingBudget struct {
	RecordCount int    `json:"recordCount"`
	LastUpload  string `json:"lastUpload,omitempty"`
}
