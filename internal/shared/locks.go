package shared

import "fmt"

// FiscalYearLockKey builds redis keys for year-end critical sections.
func FiscalYearLockKey(year int) string {
	return fmt.Sprintf("ledger:fiscal-year:%d:lock", year)
}
