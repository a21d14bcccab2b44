package bills

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
)

// Accruer adds a bill total to the billing cycle covering at inside tx. A
// negative amount takes a cancelled bill back out. billingcycle.TxHook
// implements it.
type Accruer interface {
	AccrueAmountDue(ctx context.Context, tx db.DBTX, customerID int64, at time.Time, amount decimal.Decimal) (bool, error)
}

type Service struct {
	repo    Repository
	accruer Accruer
	audit   shared.Auditor
	logger  *slog.Logger
	dueDays int
}

func NewService(repo Repository, accruer Accruer, audit shared.Auditor, logger *slog.Logger, dueDays int) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if dueDays <= 0 {
		dueDays = 15
	}
	return &Service{repo: repo, accruer: accruer, audit: audit, logger: logger, dueDays: dueDays}
}

// GenerateFromReading issues the bill of a reading and accrues its total on the
// customer's billing cycle in the same transaction.
func (s *Service) GenerateFromReading(ctx context.Context, readingID int64) (*Bill, error) {
	var billID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		src, err := repo.Source(ctx, readingID)
		if err != nil {
			return err
		}
		billID, err = repo.Insert(ctx, Bill{
			CustomerID:       src.CustomerID,
			ReadingID:        src.ReadingID,
			TotalAmount:      src.Amount,
			RemainingBalance: src.Amount,
			DueDate:          src.ReadingDate.AddDate(0, 0, s.dueDays),
			Status:           StatusUnpaid,
		})
		if err != nil {
			return err
		}
		if err := repo.SetNumber(ctx, billID, Number(src.ReadingDate, billID)); err != nil {
			return err
		}
		if s.accruer != nil {
			accrued, err := s.accruer.AccrueAmountDue(ctx, tx, src.CustomerID, src.ReadingDate, src.Amount)
			if err != nil {
				return err
			}
			if !accrued {
				s.logger.Warn("no billing cycle covers reading date",
					slog.Int64("customer_id", src.CustomerID), slog.Time("reading_date", src.ReadingDate))
			}
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: "bill.generate", Entity: "bill", EntityID: billID,
			Meta: map[string]any{"reading_id": readingID, "total_amount": src.Amount.StringFixed(2)}})
	})
	if err != nil {
		return nil, fmt.Errorf("generate bill: %w", err)
	}
	s.logger.Info("bill generated", slog.Int64("bill_id", billID), slog.Int64("reading_id", readingID))
	return s.repo.Get(ctx, billID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Bill, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListBillsRequest) ([]Bill, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	req.Search = strings.TrimSpace(req.Search)
	return s.repo.List(ctx, req)
}

// ListByAccount returns the bills of the customer identified by both numbers.
func (s *Service) ListByAccount(ctx context.Context, req AccountLookup) ([]Bill, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	return s.repo.ListByAccount(ctx, strings.TrimSpace(req.AccountNumber), strings.TrimSpace(req.MeterNumber))
}

// MarkSent records that an unpaid bill was delivered to the customer.
func (s *Service) MarkSent(ctx context.Context, id int64) (*Bill, error) {
	return s.transition(ctx, id, "bill.send", func(ctx context.Context, repo Repository, _ db.DBTX, b *Bill) (string, error) {
		if b.Status != StatusPending && b.Status != StatusUnpaid {
			return "", fmt.Errorf("bill %d is %s: %w", id, b.Status, httpx.ErrConflict)
		}
		return StatusSent, nil
	})
}

// Cancel voids a bill that has no approved payment. Payments still waiting for
// validation are rejected and the bill total is taken off the billing cycle.
func (s *Service) Cancel(ctx context.Context, id int64) (*Bill, error) {
	return s.transition(ctx, id, "bill.cancel", func(ctx context.Context, repo Repository, tx db.DBTX, b *Bill) (string, error) {
		if !Open(b.Status) {
			return "", fmt.Errorf("bill %d is %s: %w", id, b.Status, httpx.ErrConflict)
		}
		paid, err := repo.HasApprovedPayment(ctx, id)
		if err != nil {
			return "", err
		}
		if paid {
			return "", fmt.Errorf("bill %d has an approved payment: %w", id, httpx.ErrConflict)
		}
		rejected, err := repo.RejectOpenPayments(ctx, id)
		if err != nil {
			return "", err
		}
		if rejected > 0 {
			s.logger.Info("open payments rejected with cancelled bill", slog.Int64("bill_id", id), slog.Int("count", rejected))
		}
		if s.accruer == nil {
			return StatusCancelled, nil
		}
		src, err := repo.Source(ctx, b.ReadingID)
		if err != nil {
			return "", err
		}
		if _, err := s.accruer.AccrueAmountDue(ctx, tx, b.CustomerID, src.ReadingDate, b.TotalAmount.Neg()); err != nil {
			return "", err
		}
		return StatusCancelled, nil
	})
}

func (s *Service) transition(ctx context.Context, id int64, action string, next func(context.Context, Repository, db.DBTX, *Bill) (string, error)) (*Bill, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		b, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		status, err := next(ctx, repo, tx, b)
		if err != nil {
			return err
		}
		if err := repo.SetStatus(ctx, id, status); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: action, Entity: "bill", EntityID: id,
			Meta: map[string]any{"from": b.Status, "to": status}})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// MarkOverdue flags every open bill whose due date is before asOf.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	n, err := s.repo.MarkOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("mark overdue bills: %w", err)
	}
	s.logger.Info("overdue bills flagged", slog.Int("count", n), slog.Time("as_of", asOf))
	return n, nil
}
