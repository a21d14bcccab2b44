package billingcycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

type memStore struct {
	customers  map[int64]Customer
	meters     map[int64]string
	cycles     map[int64]BillingCycle
	nextID     int64
	failInsert map[int64]bool
	listErr    error
}

func newMemStore() *memStore {
	return &memStore{
		customers:  make(map[int64]Customer),
		meters:     make(map[int64]string),
		cycles:     make(map[int64]BillingCycle),
		nextID:     1,
		failInsert: make(map[int64]bool),
	}
}

func (m *memStore) addCustomer(c Customer) {
	m.customers[c.ID] = c
	m.meters[c.ID] = fmt.Sprintf("MTR-%03d", c.ID)
}

func (m *memStore) cyclesFor(customerID int64) []BillingCycle {
	var out []BillingCycle
	for _, c := range m.cycles {
		if c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out
}

func (m *memStore) GetCustomer(_ context.Context, id int64) (*Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %d: %w", id, httpx.ErrNotFound)
	}
	return &c, nil
}

func (m *memStore) ListCustomers(context.Context) ([]Customer, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Customer, 0, len(m.customers))
	for _, c := range m.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindByCustomer(_ context.Context, customerID int64) (*BillingCycle, error) {
	found := m.cyclesFor(customerID)
	if len(found) == 0 {
		return nil, httpx.ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	return &found[0], nil
}

func (m *memStore) Insert(_ context.Context, c BillingCycle) (int64, error) {
	if m.failInsert[c.CustomerID] {
		return 0, errors.New("insert rejected")
	}
	if len(m.cyclesFor(c.CustomerID)) > 0 {
		return 0, httpx.ErrConflict
	}
	c.ID = m.nextID
	m.nextID++
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.cycles[c.ID] = c
	return c.ID, nil
}

func (m *memStore) UpdateWindow(_ context.Context, id int64, start, end time.Time, status string) error {
	c, ok := m.cycles[id]
	if !ok {
		return httpx.ErrNotFound
	}
	c.BillingStartDate, c.BillingEndDate, c.Status = start, end, status
	m.cycles[id] = c
	return nil
}

func (m *memStore) ActivateByCustomer(_ context.Context, customerID int64) (int, error) {
	n := 0
	for id, c := range m.cycles {
		if c.CustomerID == customerID {
			c.Status = StatusActive
			m.cycles[id] = c
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteByCustomer(_ context.Context, customerID int64) (int, error) {
	n := 0
	for id, c := range m.cycles {
		if c.CustomerID == customerID {
			delete(m.cycles, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) AddAmountDue(_ context.Context, customerID int64, at time.Time, amount decimal.Decimal) (int, error) {
	n := 0
	for id, c := range m.cycles {
		if c.CustomerID == customerID && !c.BillingStartDate.After(at) && c.BillingEndDate.After(at) {
			c.AmountDue = c.AmountDue.Add(amount)
			m.cycles[id] = c
			n++
		}
	}
	return n, nil
}

func (m *memStore) view(c BillingCycle) CycleView {
	cust := m.customers[c.CustomerID]
	return CycleView{
		BillingCycle:  c,
		CustomerName:  cust.FirstName + " " + cust.LastName,
		AccountNumber: cust.AccountNumber,
		MeterNumber:   m.meters[c.CustomerID],
		CustomerType:  cust.CustomerType,
	}
}

func (m *memStore) List(_ context.Context, f Filters) ([]CycleView, error) {
	var out []CycleView
	for _, c := range m.cycles {
		v := m.view(c)
		if f.CustomerType != "" && v.CustomerType != f.CustomerType {
			continue
		}
		if f.Period != "" && c.BillingStartDate.Format("2006-01") != f.Period {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Search != "" {
			needle := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(v.CustomerName), needle) && !strings.Contains(strings.ToLower(v.AccountNumber), needle) {
				continue
			}
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*CycleView, error) {
	c, ok := m.cycles[id]
	if !ok {
		return nil, fmt.Errorf("billing cycle %d: %w", id, httpx.ErrNotFound)
	}
	v := m.view(c)
	return &v, nil
}

func (m *memStore) Update(_ context.Context, c BillingCycle) error {
	if _, ok := m.cycles[c.ID]; !ok {
		return httpx.ErrNotFound
	}
	m.cycles[c.ID] = c
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.cycles[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(m.cycles, id)
	return nil
}

type countingObserver struct {
	counts map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{counts: make(map[string]int)}
}

func (o *countingObserver) ObserveSync(action string, count int) {
	o.counts[action] += count
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
