package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Mugambi-md/Orion-sub000/internal/accounting"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "ledger.events", cfg.LedgerEventsTopic)
	require.Equal(t, 2*time.Minute, cfg.LedgerLockTTL)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, accounting.RetainedEarningsPerAccount, cfg.LedgerConfig().RetainedEarningsMode)
	require.Equal(t, "1001", cfg.IntegrationAccounts().Cash)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigLedgerSwitches(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("LEDGER_RE_MODE", "single")
	t.Setenv("LEDGER_REQUIRE_REVERSAL_BEFORE_DELETE", "true")
	t.Setenv("LEDGER_GRANTS", "alice:*,bob:ledger.reports.view|ledger.entries.post")
	t.Setenv("INTEGRATION_SALARIES_ACCOUNT", "5010")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, accounting.ServiceConfig{
		RetainedEarningsMode:        accounting.RetainedEarningsSingle,
		RequireReversalBeforeDelete: true,
	}, cfg.LedgerConfig())
	require.Equal(t, "ledger.reports.view|ledger.entries.post", cfg.LedgerGrants["bob"])
	require.Equal(t, "5010", cfg.IntegrationAccounts().SalariesExpense)
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	t.Setenv("LEDGER_RE_MODE", "weighted")
	_, err := LoadConfig()
	require.ErrorIs(t, err, accounting.ErrValidation)
}

func TestLoadConfigRejectsUnknownGrant(t *testing.T) {
	t.Setenv("LEDGER_GRANTS", "carol:ledger.reports.veiw")
	_, err := LoadConfig()
	require.ErrorContains(t, err, `unknown permission "ledger.reports.veiw"`)
}
