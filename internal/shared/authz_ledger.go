package shared

// Ledger permissions declared for RBAC.
const (
	PermLedgerAccountsManage = "ledger.accounts.manage"
	PermLedgerEntriesPost    = "ledger.entries.post"
	PermLedgerEntriesDelete  = "ledger.entries.delete"
	PermLedgerReportsView    = "ledger.reports.view"
	PermLedgerYearsClose     = "ledger.years.close"
	PermLedgerAuditView      = "ledger.audit.view"
)

// LedgerScopes lists all permissions related to the ledger.
func LedgerScopes() []string {
	return []string{
		PermLedgerAccountsManage,
		PermLedgerEntriesPost,
		PermLedgerEntriesDelete,
		PermLedgerReportsView,
		PermLedgerYearsClose,
		PermLedgerAuditView,
	}
}
