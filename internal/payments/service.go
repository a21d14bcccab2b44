package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hydrobill/hydrobill/internal/bills"
	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/platform/storage"
	"github.com/hydrobill/hydrobill/internal/platform/upload"
	"github.com/hydrobill/hydrobill/internal/shared"
)

const proofPrefix = "payments"

type Service struct {
	repo   Repository
	store  storage.Store
	audit  shared.Auditor
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, store storage.Store, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, store: store, audit: audit, logger: logger, now: time.Now}
}

// Store records a pending payment with its proof image. The submission is
// checked before the proof is written and again under the bill lock.
func (s *Service) Store(ctx context.Context, req StorePaymentRequest, proof upload.Image) (*Payment, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	req.AccountNumber = strings.TrimSpace(req.AccountNumber)
	req.MeterNumber = strings.TrimSpace(req.MeterNumber)

	bill, err := s.repo.Bill(ctx, req.BillID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, httpx.Invalid("bill_id", "does not exist")
		}
		return nil, err
	}
	if _, err := s.checkSubmission(ctx, s.repo, req, bill); err != nil {
		return nil, err
	}

	key := storage.NewKey(proofPrefix, proof.Ext)
	if err := s.store.Put(ctx, key, proof.ContentType, proof.Data); err != nil {
		return nil, fmt.Errorf("store payment proof: %w", err)
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		bill, err := repo.LockBill(ctx, req.BillID)
		if err != nil {
			return err
		}
		remaining, err := s.checkSubmission(ctx, repo, req, bill)
		if err != nil {
			return err
		}
		id, err = repo.Insert(ctx, Payment{
			CustomerID:       bill.CustomerID,
			BillID:           bill.ID,
			AccountNumber:    req.AccountNumber,
			MeterNumber:      req.MeterNumber,
			Amount:           req.Amount,
			PaymentType:      req.PaymentType,
			Status:           StatusPending,
			RemainingBalance: remaining,
			ProofPath:        key,
		})
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: "payment.submit", Entity: "payment", EntityID: id,
			Meta: map[string]any{"bill_id": bill.ID, "amount": req.Amount.StringFixed(2), "payment_type": req.PaymentType}})
	})
	if err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn("remove orphaned payment proof", slog.String("key", key), slog.Any("error", derr))
		}
		return nil, err
	}
	s.logger.Info("payment submitted", slog.Int64("payment_id", id), slog.Int64("bill_id", req.BillID))
	return s.repo.Get(ctx, id)
}

// checkSubmission applies the submission rules and returns the bill balance the
// payment would leave behind.
func (s *Service) checkSubmission(ctx context.Context, repo Repository, req StorePaymentRequest, bill *BillState) (decimal.Decimal, error) {
	holder, err := repo.Holder(ctx, bill.CustomerID)
	if err != nil {
		return decimal.Zero, err
	}
	if !Verify(Payment{AccountNumber: req.AccountNumber, MeterNumber: req.MeterNumber}, *holder) {
		return decimal.Zero, fmt.Errorf("account or meter number does not match the bill: %w", httpx.ErrVerification)
	}
	if !bills.Open(bill.Status) {
		return decimal.Zero, fmt.Errorf("bill %d is %s: %w", bill.ID, bill.Status, httpx.ErrConflict)
	}
	if !req.Amount.IsPositive() {
		return decimal.Zero, httpx.Invalid("amount", "must be greater than 0")
	}
	switch req.PaymentType {
	case TypeFull:
		if !req.Amount.Equal(bill.TotalAmount) {
			return decimal.Zero, httpx.Invalid("amount", "must equal the bill total "+bill.TotalAmount.StringFixed(2))
		}
		return decimal.Zero, nil
	default:
		if !req.Amount.LessThan(bill.TotalAmount) {
			return decimal.Zero, httpx.Invalid("amount", "must be less than the bill total for a partial payment")
		}
		if req.Amount.GreaterThan(bill.RemainingBalance) {
			return decimal.Zero, httpx.Invalid("amount", "must not exceed the remaining balance "+bill.RemainingBalance.StringFixed(2))
		}
		return decimal.Max(decimal.Zero, bill.RemainingBalance.Sub(req.Amount)), nil
	}
}

// Approve settles a pending payment. When the account or meter number no longer
// matches the customer the payment is marked Verification_Failed, the bill is
// left alone and an ErrVerification is returned alongside the payment.
func (s *Service) Approve(ctx context.Context, paymentID, approverID int64) (*Payment, error) {
	verified := true
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		p, err := repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != StatusPending {
			return fmt.Errorf("payment %d is %s: %w", paymentID, p.Status, httpx.ErrConflict)
		}
		holder, err := repo.Holder(ctx, p.CustomerID)
		if err != nil {
			return err
		}
		if !Verify(*p, *holder) {
			verified = false
			if err := repo.SetStatus(ctx, p.ID, StatusVerificationFailed); err != nil {
				return err
			}
			return s.audit.Record(ctx, tx, shared.AuditLog{Action: "payment.verification_failed", Entity: "payment", EntityID: p.ID})
		}

		bill, err := repo.LockBill(ctx, p.BillID)
		if err != nil {
			return err
		}
		if !bills.Open(bill.Status) {
			return fmt.Errorf("bill %d is %s: %w", bill.ID, bill.Status, httpx.ErrConflict)
		}
		remaining, status := settle(*p, *bill)
		if err := repo.UpdateBill(ctx, bill.ID, remaining, status); err != nil {
			return err
		}
		if err := repo.SetApproved(ctx, p.ID, approverID, s.now().UTC()); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: "payment.approve", Entity: "payment", EntityID: p.ID,
			Meta: map[string]any{"bill_id": bill.ID, "bill_status": status, "remaining_balance": remaining.StringFixed(2)}})
	})
	if err != nil {
		return nil, fmt.Errorf("approve payment %d: %w", paymentID, err)
	}
	p, err := s.repo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !verified {
		s.logger.Warn("payment verification failed", slog.Int64("payment_id", paymentID), slog.Int64("approver_id", approverID))
		return p, fmt.Errorf("payment %d: account or meter number mismatch: %w", paymentID, httpx.ErrVerification)
	}
	s.logger.Info("payment approved", slog.Int64("payment_id", paymentID), slog.Int64("approver_id", approverID))
	return p, nil
}

// settle returns the bill balance and status after applying an approved payment.
func settle(p Payment, bill BillState) (decimal.Decimal, string) {
	if p.PaymentType == TypeFull {
		return decimal.Zero, bills.StatusPaid
	}
	remaining := bill.RemainingBalance.Sub(p.Amount)
	if !remaining.IsPositive() {
		return decimal.Zero, bills.StatusPaid
	}
	return remaining, bills.StatusPartiallyPaid
}

// Reject closes a payment without touching the bill.
func (s *Service) Reject(ctx context.Context, paymentID, approverID int64) (*Payment, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		p, err := repo.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.Status != StatusPending && p.Status != StatusVerificationFailed {
			return fmt.Errorf("payment %d is %s: %w", paymentID, p.Status, httpx.ErrConflict)
		}
		if err := repo.SetStatus(ctx, p.ID, StatusRejected); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: "payment.reject", Entity: "payment", EntityID: p.ID})
	})
	if err != nil {
		return nil, fmt.Errorf("reject payment %d: %w", paymentID, err)
	}
	s.logger.Info("payment rejected", slog.Int64("payment_id", paymentID), slog.Int64("approver_id", approverID))
	return s.repo.Get(ctx, paymentID)
}

// UpdateStatus dispatches a validation decision to Approve or Reject.
func (s *Service) UpdateStatus(ctx context.Context, paymentID, approverID int64, req UpdateStatusRequest) (*Payment, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	if req.Status == StatusApproved {
		return s.Approve(ctx, paymentID, approverID)
	}
	return s.Reject(ctx, paymentID, approverID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, req)
}

// ListForValidation returns pending payments with their bill and customer.
func (s *Service) ListForValidation(ctx context.Context) ([]Payment, error) {
	return s.repo.ListPending(ctx)
}

func (s *Service) ListByAccount(ctx context.Context, req AccountLookup) ([]Payment, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	return s.repo.ListByAccount(ctx, strings.TrimSpace(req.AccountNumber), strings.TrimSpace(req.MeterNumber))
}

// Proof opens the stored proof image of a payment.
func (s *Service) Proof(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if p.ProofPath == "" {
		return nil, "", fmt.Errorf("payment %d has no proof: %w", id, httpx.ErrNotFound)
	}
	rc, err := s.store.Open(ctx, p.ProofPath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", fmt.Errorf("payment %d proof: %w", id, httpx.ErrNotFound)
	}
	if err != nil {
		return nil, "", err
	}
	return rc, upload.ContentTypeForKey(p.ProofPath), nil
}
