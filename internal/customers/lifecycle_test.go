package customers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrobill/hydrobill/internal/billingcycle"
	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

var _ LifecycleHook = (*billingcycle.TxHook)(nil)

// cycleStore keeps billing cycles next to the mock customer repository so the
// real synchronizer can run inside the mock transaction.
type cycleStore struct {
	repo   *mockRepository
	cycles map[int64]billingcycle.BillingCycle
	nextID int64
}

func (s *cycleStore) GetCustomer(ctx context.Context, id int64) (*billingcycle.Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &billingcycle.Customer{ID: c.ID, FirstName: c.FirstName, LastName: c.LastName, AccountNumber: c.AccountNumber, CustomerType: c.CustomerType, CreatedAt: c.CreatedAt}, nil
}

func (s *cycleStore) ListCustomers(ctx context.Context) ([]billingcycle.Customer, error) {
	var out []billingcycle.Customer
	for id := range s.repo.customers {
		c, _ := s.GetCustomer(ctx, id)
		out = append(out, *c)
	}
	return out, nil
}

func (s *cycleStore) FindByCustomer(_ context.Context, customerID int64) (*billingcycle.BillingCycle, error) {
	for _, c := range s.cycles {
		if c.CustomerID == customerID {
			return &c, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (s *cycleStore) Insert(_ context.Context, c billingcycle.BillingCycle) (int64, error) {
	c.ID = s.nextID
	s.nextID++
	s.cycles[c.ID] = c
	return c.ID, nil
}

func (s *cycleStore) UpdateWindow(_ context.Context, id int64, start, end time.Time, status string) error {
	c := s.cycles[id]
	c.BillingStartDate, c.BillingEndDate, c.Status = start, end, status
	s.cycles[id] = c
	return nil
}

func (s *cycleStore) ActivateByCustomer(_ context.Context, customerID int64) (int, error) {
	n := 0
	for id, c := range s.cycles {
		if c.CustomerID == customerID {
			c.Status = billingcycle.StatusActive
			s.cycles[id] = c
			n++
		}
	}
	return n, nil
}

func (s *cycleStore) DeleteByCustomer(_ context.Context, customerID int64) (int, error) {
	n := 0
	for id, c := range s.cycles {
		if c.CustomerID == customerID {
			delete(s.cycles, id)
			n++
		}
	}
	return n, nil
}

func (s *cycleStore) AddAmountDue(context.Context, int64, time.Time, decimal.Decimal) (int, error) {
	return 0, nil
}

func (s *cycleStore) List(context.Context, billingcycle.Filters) ([]billingcycle.CycleView, error) {
	return nil, nil
}

func (s *cycleStore) Get(context.Context, int64) (*billingcycle.CycleView, error) {
	return nil, httpx.ErrNotFound
}

func (s *cycleStore) Update(context.Context, billingcycle.BillingCycle) error { return nil }

func (s *cycleStore) Delete(context.Context, int64) error { return nil }

func (s *cycleStore) countFor(customerID int64) int {
	n := 0
	for _, c := range s.cycles {
		if c.CustomerID == customerID {
			n++
		}
	}
	return n
}

func TestCustomerLifecycleKeepsExactlyOneCycle(t *testing.T) {
	repo := newMockRepository()
	store := &cycleStore{repo: repo, cycles: make(map[int64]billingcycle.BillingCycle), nextID: 1}
	sync := billingcycle.NewSynchronizer(store, testLogger(), nil)
	hook := billingcycle.NewTxHookWithStore(sync, func(db.DBTX) billingcycle.Store { return store })
	svc := NewService(repo, hook, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	require.Equal(t, 1, store.countFor(c.ID))
	cycle, err := store.FindByCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.CreatedAt, cycle.BillingStartDate)
	assert.Equal(t, c.CreatedAt.AddDate(0, 1, 0), cycle.BillingEndDate)

	cycle.Status = billingcycle.StatusInactive
	store.cycles[cycle.ID] = *cycle

	name := "Mariana"
	_, err = svc.Update(ctx, c.ID, UpdateCustomerRequest{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, 1, store.countFor(c.ID))
	assert.Equal(t, billingcycle.StatusActive, store.cycles[cycle.ID].Status)

	require.NoError(t, svc.Delete(ctx, c.ID))
	assert.Zero(t, store.countFor(c.ID))
	assert.Empty(t, repo.customers)
}
