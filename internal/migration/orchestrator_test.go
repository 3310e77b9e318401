package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/identity"
	"github.com/Veraticus/profitfirst/internal/localcache"
	"github.com/Veraticus/profitfirst/internal/service"
	"github.com/Veraticus/profitfirst/internal/testutil"
)

const testOwner = "owner-1"

const snapshotJSON = `{
	"state": {
		"accounts": [
			{"id": "a-income", "name": "Real Revenue", "type": "INCOME", "balance": 0, "targetPercentage": 0, "currentPercentage": 0},
			{"id": "a-profit", "name": "Company Profit", "type": "PROFIT", "balance": 120.5, "targetPercentage": 40, "currentPercentage": 100}
		],
		"transactions": [
			{
				"id": "t-1",
				"date": "2024-03-15T10:00:00.000Z",
				"description": "Income Allocation",
				"totalAmount": 301.25,
				"allocations": [{"accountId": "a-profit", "amount": 120.5}]
			}
		],
		"bankAccounts": [
			{"id": "b-1", "bankName": "First Bank", "branchName": "Main", "accountNumber": "123", "accountType": "checking", "createdAt": "2024-01-01T00:00:00.000Z"}
		],
		"profitDistributions": [
			{"id": "d-1", "date": "2024-03-31T00:00:00.000Z", "quarter": "Q1 2024", "totalProfit": 100, "distributionAmount": 50, "toOwners": 25, "toCompany": 25, "isCompleted": false}
		],
		"currencySymbol": "৳"
	},
	"version": 0
}`

type recorded struct {
	status  Status
	percent int
}

func newCache(t *testing.T, entries map[string]string) *localcache.Cache {
	t.Helper()
	cache, err := localcache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	for k, v := range entries {
		require.NoError(t, cache.Set(context.Background(), k, v))
	}
	return cache
}

func newOrchestrator(store service.Storage, provider identity.Provider, cache Cache) (*Orchestrator, *[]recorded) {
	var seen []recorded
	o := New(store, provider, cache, "").WithObserver(func(s Status, p int) {
		seen = append(seen, recorded{s, p})
	})
	return o, &seen
}

func TestRun_MigratesLocalSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cache := newCache(t, map[string]string{"profit-first-storage": snapshotJSON})
	o, seen := newOrchestrator(db.Storage, identity.Static{ID: testOwner}, cache)
	ctx := context.Background()

	state, err := o.Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, StatusComplete, o.Status())

	assert.Equal(t, []recorded{
		{StatusChecking, 10},
		{StatusChecking, 20},
		{StatusMigrating, 30},
		{StatusMigrating, 70},
		{StatusLoading, 80},
		{StatusComplete, 100},
	}, *seen)

	require.Len(t, state.Accounts, 2)
	assert.Equal(t, "a-income", state.Accounts[0].ID)
	assert.True(t, decimal.RequireFromString("120.5").Equal(state.Accounts[1].Balance))
	require.Len(t, state.Transactions, 1)
	require.Len(t, state.Transactions[0].Allocations, 1)
	assert.Equal(t, "a-profit", state.Transactions[0].Allocations[0].AccountID)
	assert.Len(t, state.BankAccounts, 1)
	assert.Len(t, state.ProfitDistributions, 1)
	assert.Equal(t, "৳", state.CurrencySymbol)

	flag, ok, err := cache.Get(ctx, "profit-first-migrated")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", flag)
}

func TestRun_SkipsWhenRemoteHasData(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedAccounts(testOwner, service.AccountRecord{ID: "remote-profit", Name: "Profit", Type: "PROFIT", Balance: decimal.NewFromInt(5)})
	cache := newCache(t, map[string]string{"profit-first-storage": snapshotJSON})
	o, seen := newOrchestrator(db.Storage, identity.Static{ID: testOwner}, cache)
	ctx := context.Background()

	state, err := o.Run(ctx)
	require.NoError(t, err)
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, "remote-profit", state.Accounts[0].ID)
	assert.Empty(t, state.Transactions)

	for _, r := range *seen {
		assert.NotEqual(t, StatusMigrating, r.status)
	}

	_, ok, err := cache.Get(ctx, "profit-first-migrated")
	require.NoError(t, err)
	assert.False(t, ok, "a skipped migration does not set the flag")
}

func TestRun_FlagPreventsMigration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cache := newCache(t, map[string]string{
		"profit-first-storage":  snapshotJSON,
		"profit-first-migrated": "true",
	})
	o, _ := newOrchestrator(db.Storage, identity.Static{ID: testOwner}, cache)

	state, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, state.Accounts)
	assert.Empty(t, db.MustListAccounts(testOwner))
}

func TestRun_SecondRunDoesNotInsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cache := newCache(t, map[string]string{"profit-first-storage": snapshotJSON})
	o, _ := newOrchestrator(db.Storage, identity.Static{ID: testOwner}, cache)
	ctx := context.Background()

	_, err := o.Run(ctx)
	require.NoError(t, err)
	state, err := o.Run(ctx)
	require.NoError(t, err)

	assert.Len(t, state.Accounts, 2)
	assert.Len(t, state.Transactions, 1)
}

func TestRun_Anonymous(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cache := newCache(t, map[string]string{"profit-first-storage": snapshotJSON})
	o, seen := newOrchestrator(db.Storage, identity.Static{}, cache)

	state, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, state)
	assert.Equal(t, StatusComplete, o.Status())
	assert.Equal(t, recorded{StatusComplete, 100}, (*seen)[len(*seen)-1])
}

// flakyProvider fails until fails reaches zero.
type flakyProvider struct {
	fails int
}

func (p *flakyProvider) Owner(_ context.Context) (string, error) {
	if p.fails > 0 {
		p.fails--
		return "", errors.New("identity service unavailable")
	}
	return testOwner, nil
}

func TestRun_IdentityFailureAndRetry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	o, seen := newOrchestrator(db.Storage, &flakyProvider{fails: 1}, nil)
	ctx := context.Background()

	_, err := o.Retry(ctx)
	assert.ErrorIs(t, err, ErrRetryNotAllowed)

	_, err = o.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusError, o.Status())
	assert.Contains(t, o.Err().Error(), "identity service unavailable")
	assert.Equal(t, StatusError, (*seen)[len(*seen)-1].status)

	state, err := o.Retry(ctx)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, StatusComplete, o.Status())
	assert.NoError(t, o.Err())

	_, err = o.Retry(ctx)
	assert.ErrorIs(t, err, ErrRetryNotAllowed)
}

func TestRun_CorruptSnapshotFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cache := newCache(t, map[string]string{"profit-first-storage": "{not json"})
	o, _ := newOrchestrator(db.Storage, identity.Static{ID: testOwner}, cache)

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, common.ErrUnsupportedInput)
	assert.Equal(t, StatusError, o.Status())
}

func TestRun_InvalidSnapshotIsNotMigrated(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "allocation to unknown account",
			data: `{"state": {"accounts": [{"id": "a-profit", "name": "Profit", "type": "PROFIT", "balance": 0}],
				"transactions": [{"id": "t-1", "date": "2024-03-15", "totalAmount": 10,
					"allocations": [{"accountId": "a-ghost", "amount": 10}]}]}}`,
		},
		{
			name: "repeated transaction id",
			data: `{"accounts": [{"id": "a-profit", "name": "Profit", "type": "PROFIT", "balance": 0}],
				"transactions": [
					{"id": "t-1", "date": "2024-03-15", "totalAmount": 10, "allocations": [{"accountId": "a-profit", "amount": 10}]},
					{"id": "t-1", "date": "2024-03-15", "totalAmount": 10, "allocations": [{"accountId": "a-profit", "amount": 10}]}
				]}`,
		},
		{
			name: "amount out of range",
			data: `{"accounts": [{"id": "a-profit", "name": "Profit", "type": "PROFIT", "balance": 0}],
				"transactions": [{"id": "t-1", "date": "2024-03-15", "totalAmount": 1e200000000}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			cache := newCache(t, map[string]string{"profit-first-storage": tt.data})
			o, _ := newOrchestrator(db.Storage, identity.Static{ID: testOwner}, cache)
			ctx := context.Background()

			_, err := o.Run(ctx)
			require.ErrorIs(t, err, common.ErrValidationFailed)
			assert.Equal(t, StatusError, o.Status())
			assert.Empty(t, db.MustListAccounts(testOwner))

			_, ok, err := cache.Get(ctx, "profit-first-migrated")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

// failingTxStore hands out transactions whose InsertTransactions fails while
// fails is above zero.
type failingTxStore struct {
	service.Storage
	fails int
}

type failingTx struct {
	service.Transaction
}

func (t *failingTx) InsertTransactions(_ context.Context, _ []service.TransactionRecord) error {
	return errUnavailable
}

func (s *failingTxStore) BeginTx(ctx context.Context) (service.Transaction, error) {
	tx, err := s.Storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	if s.fails > 0 {
		s.fails--
		return &failingTx{Transaction: tx}, nil
	}
	return tx, nil
}

func TestRun_StoreFailureWhileMigratingAndRetry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := &failingTxStore{Storage: db.Storage, fails: 1}
	cache := newCache(t, map[string]string{"profit-first-storage": snapshotJSON})
	o, seen := newOrchestrator(store, identity.Static{ID: testOwner}, cache)
	ctx := context.Background()

	_, err := o.Run(ctx)
	require.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, StatusError, o.Status())
	assert.ErrorIs(t, o.Err(), errUnavailable)
	assert.Contains(t, *seen, recorded{StatusMigrating, 30})
	assert.NotContains(t, *seen, recorded{StatusMigrating, 70})

	// Accounts went in before the failing insert and were rolled back with it
	assert.Empty(t, db.MustListAccounts(testOwner))
	_, ok, err := cache.Get(ctx, "profit-first-migrated")
	require.NoError(t, err)
	assert.False(t, ok)

	state, err := o.Retry(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, o.Status())
	assert.Len(t, state.Accounts, 2)
	require.Len(t, state.Transactions, 1)
	assert.Len(t, state.Transactions[0].Allocations, 1)

	flag, _, err := cache.Get(ctx, "profit-first-migrated")
	require.NoError(t, err)
	assert.Equal(t, "true", flag)
}

func TestClearLocalCache(t *testing.T) {
	cache := newCache(t, map[string]string{
		"profit-first-storage":  snapshotJSON,
		"profit-first-migrated": "true",
		"other":                 "x",
	})
	o := New(nil, identity.Static{}, cache, "")

	removed, err := o.ClearLocalCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	keys, err := cache.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"profit-first-migrated"}, keys)
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	cache := newCache(t, nil)
	o := New(nil, identity.Static{}, cache, "custom")
	ctx := context.Background()

	original, err := DecodeSnapshot([]byte(snapshotJSON))
	require.NoError(t, err)
	require.NoError(t, o.SaveSnapshot(ctx, original))

	_, ok, err := cache.Get(ctx, "custom-storage")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := o.readSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, original.Accounts, loaded.state.Accounts)
	assert.Len(t, loaded.state.Transactions, 1)
	assert.True(t, original.Transactions[0].Date.Equal(loaded.state.Transactions[0].Date))
}
