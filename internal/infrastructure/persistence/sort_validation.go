package persistence

import (
	"strings"

	"github.com/pass-culture/pass-culture-main-sub045/internal/domain/shared"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC. Anything else,
// including an empty string, gives DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, defaultField
// otherwise
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderClause builds the ORDER BY of a list query. id breaks ties so pages
// are stable.
func orderClause(f shared.Filter, allowedFields map[string]bool, defaultField string) string {
	dir := ValidateSortOrder(f.OrderDir)
	return ValidateSortField(f.OrderBy, allowedFields, defaultField) + " " + dir + ", id " + dir
}

// EventSortFields are the sortable columns of finance_events
var EventSortFields = map[string]bool{
	"pricing_ordering_date": true,
	"value_date":            true,
	"created_at":            true,
}

// CashflowSortFields are the sortable columns of cashflows
var CashflowSortFields = map[string]bool{
	"created_at": true,
	"amount":     true,
}
