package billingcycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

// Observer receives outcome counts; jobmetrics.Metrics implements it.
type Observer interface {
	ObserveSync(action string, count int)
}

type nopObserver struct{}

func (nopObserver) ObserveSync(string, int) {}

// Synchronizer applies the billing cycle lifecycle rules. Lifecycle operations
// never return Go errors: failures are logged and reported through Result.
type Synchronizer struct {
	store    Store
	logger   *slog.Logger
	observer Observer
}

func NewSynchronizer(store Store, logger *slog.Logger, observer Observer) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Synchronizer{store: store, logger: logger, observer: observer}
}

// WithStore returns a copy of the synchronizer operating on store, typically one
// bound to a caller's transaction.
func (s *Synchronizer) WithStore(store Store) *Synchronizer {
	cp := *s
	cp.store = store
	return &cp
}

// SyncForNewCustomer creates the customer's cycle, or refreshes its window and
// status when one already exists.
func (s *Synchronizer) SyncForNewCustomer(ctx context.Context, customerID int64) Result {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if err != nil {
		return s.fail(customerID, "sync billing cycle", err)
	}
	res := s.syncCustomer(ctx, *customer)
	if !res.Failed() {
		s.observer.ObserveSync(res.Action, 1)
	}
	return res
}

func (s *Synchronizer) syncCustomer(ctx context.Context, customer Customer) Result {
	start, end := Window(customer.CreatedAt)
	existing, err := s.store.FindByCustomer(ctx, customer.ID)
	switch {
	case err == nil:
		if err := s.store.UpdateWindow(ctx, existing.ID, start, end, StatusActive); err != nil {
			return s.fail(customer.ID, "refresh billing cycle", err)
		}
		s.logger.Info("billing cycle updated", slog.Int64("customer_id", customer.ID), slog.Int64("cycle_id", existing.ID))
		return Result{Action: ActionUpdated, CustomerID: customer.ID, CycleID: existing.ID, Count: 1}
	case errors.Is(err, httpx.ErrNotFound):
		id, err := s.store.Insert(ctx, BillingCycle{
			CustomerID:       customer.ID,
			BillingStartDate: start,
			BillingEndDate:   end,
			Status:           StatusActive,
			AmountDue:        decimal.Zero,
		})
		if err != nil {
			return s.fail(customer.ID, "create billing cycle", err)
		}
		s.logger.Info("billing cycle created", slog.Int64("customer_id", customer.ID), slog.Int64("cycle_id", id))
		return Result{Action: ActionCreated, CustomerID: customer.ID, CycleID: id, Count: 1}
	default:
		return s.fail(customer.ID, "find billing cycle", err)
	}
}

// UpdateForCustomer marks every cycle of the customer active without touching dates.
func (s *Synchronizer) UpdateForCustomer(ctx context.Context, customerID int64) Result {
	n, err := s.store.ActivateByCustomer(ctx, customerID)
	if err != nil {
		return s.fail(customerID, "activate billing cycles", err)
	}
	s.logger.Info("billing cycles activated", slog.Int64("customer_id", customerID), slog.Int("count", n))
	s.observer.ObserveSync(ActionUpdated, n)
	return Result{Action: ActionUpdated, CustomerID: customerID, Count: n}
}

// DeleteForCustomer removes every cycle of the customer.
func (s *Synchronizer) DeleteForCustomer(ctx context.Context, customerID int64) Result {
	n, err := s.store.DeleteByCustomer(ctx, customerID)
	if err != nil {
		return s.fail(customerID, "delete billing cycles", err)
	}
	s.logger.Info("billing cycles deleted", slog.Int64("customer_id", customerID), slog.Int("count", n))
	s.observer.ObserveSync(ActionDeleted, n)
	return Result{Action: ActionDeleted, CustomerID: customerID, Count: n}
}

// CreateForAllCustomers applies the create-or-update rule to every customer.
// Customers are processed independently; a failure does not undo earlier ones.
func (s *Synchronizer) CreateForAllCustomers(ctx context.Context) Summary {
	var summary Summary
	customers, err := s.store.ListCustomers(ctx)
	if err != nil {
		s.logger.Error("list customers for billing sync", slog.Any("error", err))
		summary.Errors = 1
		summary.Failures = []Failure{{Message: "could not list customers"}}
		s.observer.ObserveSync(ActionError, 1)
		return summary
	}
	summary.Total = len(customers)
	for _, c := range customers {
		if err := ctx.Err(); err != nil {
			res := s.fail(c.ID, "bulk billing sync interrupted", err)
			summary.Errors++
			summary.Failures = append(summary.Failures, Failure{CustomerID: c.ID, Message: res.Message})
			continue
		}
		res := s.syncCustomer(ctx, c)
		switch res.Action {
		case ActionCreated:
			summary.Created++
		case ActionUpdated:
			summary.Updated++
		default:
			summary.Errors++
			summary.Failures = append(summary.Failures, Failure{CustomerID: c.ID, Message: res.Message})
		}
	}
	s.observer.ObserveSync(ActionCreated, summary.Created)
	s.observer.ObserveSync(ActionUpdated, summary.Updated)
	s.logger.Info("bulk billing sync finished",
		slog.Int("total", summary.Total),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("errors", summary.Errors))
	return summary
}

// AccrueAmountDue adds amount to the customer's cycle whose window contains at.
// It reports whether a cycle was found. Cancelled bills pass their total negated.
func (s *Synchronizer) AccrueAmountDue(ctx context.Context, customerID int64, at time.Time, amount decimal.Decimal) (bool, error) {
	n, err := s.store.AddAmountDue(ctx, customerID, at, amount)
	if err != nil {
		return false, fmt.Errorf("accrue amount due: %w", err)
	}
	return n > 0, nil
}

// ListWithFilters returns cycles joined to customers, newest first.
func (s *Synchronizer) ListWithFilters(ctx context.Context, f Filters) ([]CycleView, error) {
	if err := httpx.Validate(f); err != nil {
		return nil, err
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.store.List(ctx, f)
}

func (s *Synchronizer) Get(ctx context.Context, id int64) (*CycleView, error) {
	return s.store.Get(ctx, id)
}

// Create inserts a cycle by hand. A customer can hold only one cycle.
func (s *Synchronizer) Create(ctx context.Context, req CreateCycleRequest) (*CycleView, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCustomer(ctx, req.CustomerID); err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.Invalid("customer_id", "does not exist")
		}
		return nil, err
	}
	start, end, err := parseWindow(req.BillingStartDate, req.BillingEndDate)
	if err != nil {
		return nil, err
	}
	cycle := BillingCycle{
		CustomerID:       req.CustomerID,
		BillingStartDate: start,
		BillingEndDate:   end,
		Status:           StatusActive,
		AmountDue:        decimal.Zero,
	}
	if req.Status != "" {
		cycle.Status = req.Status
	}
	if req.AmountDue != nil {
		if req.AmountDue.IsNegative() {
			return nil, httpx.Invalid("amount_due", "must not be negative")
		}
		cycle.AmountDue = req.AmountDue.Round(2)
	}
	id, err := s.store.Insert(ctx, cycle)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Synchronizer) Update(ctx context.Context, id int64, req UpdateCycleRequest) (*CycleView, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cycle := current.BillingCycle
	startRaw := cycle.BillingStartDate.Format(dateLayout)
	endRaw := cycle.BillingEndDate.Format(dateLayout)
	if req.BillingStartDate != nil {
		startRaw = *req.BillingStartDate
	}
	if req.BillingEndDate != nil {
		endRaw = *req.BillingEndDate
	}
	if req.BillingStartDate != nil || req.BillingEndDate != nil {
		cycle.BillingStartDate, cycle.BillingEndDate, err = parseWindow(startRaw, endRaw)
		if err != nil {
			return nil, err
		}
	}
	if req.Status != nil {
		cycle.Status = *req.Status
	}
	if req.AmountDue != nil {
		if req.AmountDue.IsNegative() {
			return nil, httpx.Invalid("amount_due", "must not be negative")
		}
		cycle.AmountDue = req.AmountDue.Round(2)
	}
	if err := s.store.Update(ctx, cycle); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Synchronizer) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

const dateLayout = "2006-01-02"

func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, httpx.Invalid("billing_start_date", "must be a date (YYYY-MM-DD)")
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, httpx.Invalid("billing_end_date", "must be a date (YYYY-MM-DD)")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, httpx.Invalid("billing_end_date", "must be after billing_start_date")
	}
	return start, end, nil
}

func (s *Synchronizer) fail(customerID int64, op string, err error) Result {
	s.logger.Error(op, slog.Int64("customer_id", customerID), slog.Any("error", err))
	msg := op + " failed"
	if errors.Is(err, httpx.ErrNotFound) {
		msg = fmt.Sprintf("customer %d not found", customerID)
	}
	s.observer.ObserveSync(ActionError, 1)
	return Result{Action: ActionError, CustomerID: customerID, Message: msg}
}
