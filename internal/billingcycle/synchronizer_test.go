package billingcycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

var created = time.Date(2025, time.January, 31, 9, 30, 0, 0, time.UTC)

func seeded(t *testing.T) (*Synchronizer, *memStore, *countingObserver) {
	t.Helper()
	store := newMemStore()
	store.addCustomer(Customer{ID: 1, FirstName: "Ana", LastName: "Reyes", AccountNumber: "ACC-1", CustomerType: "residential", CreatedAt: created})
	store.addCustomer(Customer{ID: 2, FirstName: "Ben", LastName: "Lim", AccountNumber: "ACC-2", CustomerType: "commercial", CreatedAt: created.AddDate(0, 1, 0)})
	obs := newCountingObserver()
	return NewSynchronizer(store, testLogger(), obs), store, obs
}

func TestSyncForNewCustomerCreatesOneActiveCycle(t *testing.T) {
	sync, store, obs := seeded(t)

	res := sync.SyncForNewCustomer(context.Background(), 1)
	require.False(t, res.Failed(), res.Message)
	assert.Equal(t, ActionCreated, res.Action)

	cycles := store.cyclesFor(1)
	require.Len(t, cycles, 1)
	c := cycles[0]
	assert.Equal(t, created, c.BillingStartDate)
	// Jan 31 plus one month normalises into March.
	assert.Equal(t, created.AddDate(0, 1, 0), c.BillingEndDate)
	assert.Equal(t, StatusActive, c.Status)
	assert.True(t, c.AmountDue.IsZero())
	assert.Equal(t, 1, obs.counts[ActionCreated])
}

func TestSyncForNewCustomerIsIdempotent(t *testing.T) {
	sync, store, _ := seeded(t)
	ctx := context.Background()

	first := sync.SyncForNewCustomer(ctx, 1)
	require.Equal(t, ActionCreated, first.Action)

	cycle := store.cycles[first.CycleID]
	cycle.Status = StatusInactive
	cycle.BillingStartDate = created.AddDate(-1, 0, 0)
	store.cycles[cycle.ID] = cycle

	second := sync.SyncForNewCustomer(ctx, 1)
	require.Equal(t, ActionUpdated, second.Action)
	assert.Equal(t, first.CycleID, second.CycleID)

	cycles := store.cyclesFor(1)
	require.Len(t, cycles, 1)
	assert.Equal(t, StatusActive, cycles[0].Status)
	assert.Equal(t, created, cycles[0].BillingStartDate)
}

func TestSyncForUnknownCustomerReportsError(t *testing.T) {
	sync, store, obs := seeded(t)

	res := sync.SyncForNewCustomer(context.Background(), 99)
	assert.True(t, res.Failed())
	assert.Equal(t, "customer 99 not found", res.Message)
	assert.Empty(t, store.cycles)
	assert.Equal(t, 1, obs.counts[ActionError])
}

func TestUpdateForCustomerActivatesWithoutTouchingDates(t *testing.T) {
	sync, store, _ := seeded(t)
	ctx := context.Background()
	require.Equal(t, ActionCreated, sync.SyncForNewCustomer(ctx, 1).Action)

	id := store.cyclesFor(1)[0].ID
	c := store.cycles[id]
	c.Status = StatusInactive
	store.cycles[id] = c

	res := sync.UpdateForCustomer(ctx, 1)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, StatusActive, store.cycles[id].Status)
	assert.Equal(t, c.BillingStartDate, store.cycles[id].BillingStartDate)

	none := sync.UpdateForCustomer(ctx, 2)
	assert.Equal(t, ActionUpdated, none.Action)
	assert.Zero(t, none.Count)
}

func TestDeleteForCustomerRemovesCycles(t *testing.T) {
	sync, store, obs := seeded(t)
	ctx := context.Background()
	sync.SyncForNewCustomer(ctx, 1)
	sync.SyncForNewCustomer(ctx, 2)

	res := sync.DeleteForCustomer(ctx, 1)
	assert.Equal(t, ActionDeleted, res.Action)
	assert.Equal(t, 1, res.Count)
	assert.Empty(t, store.cyclesFor(1))
	assert.Len(t, store.cyclesFor(2), 1)
	assert.Equal(t, 1, obs.counts[ActionDeleted])
}

func TestCreateForAllCustomersSummarisesIndependently(t *testing.T) {
	sync, store, obs := seeded(t)
	ctx := context.Background()
	store.addCustomer(Customer{ID: 3, FirstName: "Cora", LastName: "Tan", AccountNumber: "ACC-3", CustomerType: "government", CreatedAt: created})
	store.failInsert[3] = true
	require.Equal(t, ActionCreated, sync.SyncForNewCustomer(ctx, 2).Action)

	summary := sync.CreateForAllCustomers(ctx)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, int64(3), summary.Failures[0].CustomerID)

	assert.Len(t, store.cyclesFor(1), 1, "earlier successes survive a later failure")
	assert.Len(t, store.cyclesFor(2), 1)
	assert.Empty(t, store.cyclesFor(3))
	assert.Equal(t, 1, obs.counts[ActionError])
	assert.Equal(t, 2, obs.counts[ActionCreated])
}

func TestCreateForAllCustomersListFailure(t *testing.T) {
	sync, store, _ := seeded(t)
	store.listErr = errors.New("connection reset")

	summary := sync.CreateForAllCustomers(context.Background())
	assert.Equal(t, 1, summary.Errors)
	assert.Zero(t, summary.Total)
}

func TestCreateForAllCustomersStopsOnCancelledContext(t *testing.T) {
	sync, store, _ := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := sync.CreateForAllCustomers(ctx)
	assert.Equal(t, 2, summary.Errors)
	assert.Empty(t, store.cycles)
}

func TestAccrueAmountDueUsesHalfOpenWindow(t *testing.T) {
	sync, store, _ := seeded(t)
	ctx := context.Background()
	res := sync.SyncForNewCustomer(ctx, 1)
	require.False(t, res.Failed())
	start, end := Window(created)

	ok, err := sync.AccrueAmountDue(ctx, 1, start, decimal.RequireFromString("120.50"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = sync.AccrueAmountDue(ctx, 1, end, decimal.RequireFromString("99"))
	require.NoError(t, err)
	assert.False(t, ok, "the end instant belongs to the next cycle")

	assert.Equal(t, "120.5", store.cycles[res.CycleID].AmountDue.String())
}

func TestAccrueNegativeAmountReversesCancelledBill(t *testing.T) {
	sync, store, _ := seeded(t)
	ctx := context.Background()
	res := sync.SyncForNewCustomer(ctx, 1)
	require.False(t, res.Failed())
	start, _ := Window(created)
	at := start.AddDate(0, 0, 3)

	_, err := sync.AccrueAmountDue(ctx, 1, at, decimal.RequireFromString("300"))
	require.NoError(t, err)
	_, err = sync.AccrueAmountDue(ctx, 1, at, decimal.RequireFromString("75.25"))
	require.NoError(t, err)
	ok, err := sync.AccrueAmountDue(ctx, 1, at, decimal.RequireFromString("-300"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "75.25", store.cycles[res.CycleID].AmountDue.String())
}

func TestManualCreateRejectsUnknownCustomerAndBadWindow(t *testing.T) {
	sync, _, _ := seeded(t)
	ctx := context.Background()

	_, err := sync.Create(ctx, CreateCycleRequest{CustomerID: 42, BillingStartDate: "2025-01-01", BillingEndDate: "2025-02-01"})
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "customer_id")

	_, err = sync.Create(ctx, CreateCycleRequest{CustomerID: 1, BillingStartDate: "2025-02-01", BillingEndDate: "2025-02-01"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "billing_end_date")

	v, err := sync.Create(ctx, CreateCycleRequest{CustomerID: 1, BillingStartDate: "2025-02-01", BillingEndDate: "2025-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Reyes", v.CustomerName)

	_, err = sync.Create(ctx, CreateCycleRequest{CustomerID: 1, BillingStartDate: "2025-04-01", BillingEndDate: "2025-05-01"})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestManualUpdateKeepsUnsetFields(t *testing.T) {
	sync, _, _ := seeded(t)
	ctx := context.Background()
	v, err := sync.Create(ctx, CreateCycleRequest{CustomerID: 1, BillingStartDate: "2025-02-01", BillingEndDate: "2025-03-01"})
	require.NoError(t, err)

	status := StatusInactive
	amount := decimal.RequireFromString("10.555")
	updated, err := sync.Update(ctx, v.ID, UpdateCycleRequest{Status: &status, AmountDue: &amount})
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, updated.Status)
	assert.Equal(t, "10.56", updated.AmountDue.StringFixed(2))
	assert.Equal(t, v.BillingStartDate, updated.BillingStartDate)

	end := "2025-01-15"
	_, err = sync.Update(ctx, v.ID, UpdateCycleRequest{BillingEndDate: &end})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListWithFilters(t *testing.T) {
	sync, _, _ := seeded(t)
	ctx := context.Background()
	sync.CreateForAllCustomers(ctx)

	all, err := sync.ListWithFilters(ctx, Filters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	jan, err := sync.ListWithFilters(ctx, Filters{Period: "2025-01"})
	require.NoError(t, err)
	require.Len(t, jan, 1)
	assert.Equal(t, "ACC-1", jan[0].AccountNumber)

	byName, err := sync.ListWithFilters(ctx, Filters{Search: "  ben "})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "commercial", byName[0].CustomerType)

	_, err = sync.ListWithFilters(ctx, Filters{Period: "January"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestTxHookTurnsErrorResultIntoError(t *testing.T) {
	sync, store, _ := seeded(t)
	hook := NewTxHookWithStore(sync, func(db.DBTX) Store { return store })
	ctx := context.Background()

	require.NoError(t, hook.CustomerCreated(ctx, nil, 1))
	assert.Len(t, store.cyclesFor(1), 1)

	err := hook.CustomerCreated(ctx, nil, 404)
	require.ErrorIs(t, err, ErrSyncFailed)

	require.NoError(t, hook.CustomerUpdated(ctx, nil, 1))
	require.NoError(t, hook.CustomerDeleting(ctx, nil, 1))
	assert.Empty(t, store.cyclesFor(1))
}
