package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestCacheFetchJSONUsesVersionedKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewCache(client, time.Minute)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return BuildTrialBalance(sampleBalances()), nil
	}

	key, err := cache.BuildKey(ctx, "trial_balance", "-:-")
	require.NoError(t, err)
	require.Equal(t, "ledger:reports:trial_balance:-:-:v1", key)

	var first TrialBalance
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second TrialBalance
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))
	require.Equal(t, 1, calls)
	require.True(t, second.TotalDebit.Equal(first.TotalDebit))
	require.Len(t, second.Rows, 7)

	require.NoError(t, cache.Bump(ctx))
	bumped, err := cache.BuildKey(ctx, "trial_balance", "-:-")
	require.NoError(t, err)
	require.Equal(t, "ledger:reports:trial_balance:-:-:v2", bumped)

	var third TrialBalance
	require.NoError(t, cache.FetchJSON(ctx, bumped, &third, loader))
	require.Equal(t, 2, calls)
}

func TestNilCacheCallsLoader(t *testing.T) {
	var cache *Cache
	key, err := cache.BuildKey(context.Background(), "cash_flow")
	require.NoError(t, err)
	require.Equal(t, "ledger:reports:cash_flow", key)

	var out CashFlow
	err = cache.FetchJSON(context.Background(), key, &out, func(context.Context) (any, error) {
		return BuildCashFlow(sampleBalances()), nil
	})
	require.NoError(t, err)
	require.Len(t, out.Operating.Rows, 2)
	require.NoError(t, cache.Bump(context.Background()))
}

func TestCacheRebuildsUndecodablePayload(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewCache(client, time.Minute)

	key, err := cache.BuildKey(ctx, "income_statement", "-:-")
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, "{not json"))

	var out IncomeStatement
	require.NoError(t, cache.FetchJSON(ctx, key, &out, func(context.Context) (any, error) {
		return BuildIncomeStatement(sampleBalances()), nil
	}))
	cached, err := mr.Get(key)
	require.NoError(t, err)
	require.NotEqual(t, "{not json", cached)
	require.Equal(t, time.Minute, mr.TTL(key))
}

func TestCacheSurfacesRedisOutage(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	cache := NewCache(client, time.Minute)
	mr.Close()

	_, err := cache.BuildKey(ctx, "balance_sheet")
	require.Error(t, err)
	require.Error(t, cache.Bump(ctx))
}
