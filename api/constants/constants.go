package constants

// Common error messages
const (
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrInvalidRequestBody = "Invalid request body"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrDB                 = "DB error"
	ErrFailedToQuery      = "Failed to query"
)

// Budget / pricing validation messages
const (
	ErrDivisionRequired      = "Division is required"
	ErrYearRequired          = "Year is required"
	ErrActualYearRequired    = "Actual year is required"
	ErrBudgetYearRequired    = "Budget year is required"
	ErrRoundedDataRequired   = "Rounded pricing data is required"
	ErrHTMLContentRequired   = "HTML content is required"
	ErrMissingBudgetMetadata = "Imported file is missing division or budget year metadata"
	ErrNoBudgetValues        = "No valid budget values found in the imported file"
)

// DB / SQL error templates
const (
	ErrTxStartFailed  = "failed to start transaction: "
	ErrTxCommitFailed = "failed to commit transaction: "
	ErrQueryFailed    = "query failed: "
)

// Content types
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Date formats
const (
	DateTimeFormat    = "2006-01-02 15:04:05"
	DateFormat        = "2006-01-02"
	ExportStampFormat = "02012006"
	ExportClockFormat = "1504"
)

// Distinguished product group holding service revenue with no physical
// volume. MoRM is defined to equal Amount for this group.
const ServicesChargesGroup = "Services Charges"

// Rounding value bounds shared by validation and the check constraints.
const (
	RoundingMin = 0
	RoundingMax = 1000
)

// Budget metrics
const (
	MetricKGS    = "KGS"
	MetricAmount = "AMOUNT"
	MetricMORM   = "MORM"
)

// KgsPerMT converts between storage volume (KGS) and display volume (MT).
const KgsPerMT = 1000
