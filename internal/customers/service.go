package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
)

type Service struct {
	repo  Repository
	hook  LifecycleHook
	audit shared.Auditor
}

func NewService(repo Repository, hook LifecycleHook, audit shared.Auditor) *Service {
	if hook == nil {
		hook = nopHook{}
	}
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	return &Service{repo: repo, hook: hook, audit: audit}
}

func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	req.Search = strings.TrimSpace(req.Search)
	return s.repo.List(ctx, req)
}

// FindByAccount resolves the customer a mobile client identifies by account and meter number.
func (s *Service) FindByAccount(ctx context.Context, accountNumber, meterNumber string) (*Customer, error) {
	accountNumber, meterNumber = strings.TrimSpace(accountNumber), strings.TrimSpace(meterNumber)
	if accountNumber == "" || meterNumber == "" {
		return nil, fmt.Errorf("account and meter number are required: %w", httpx.ErrVerification)
	}
	c, err := s.repo.GetByAccount(ctx, accountNumber, meterNumber)
	if err != nil {
		return nil, fmt.Errorf("account and meter number do not match: %w", httpx.ErrVerification)
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	customer := Customer{
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		MeterNumber:   strings.TrimSpace(req.MeterNumber),
		CustomerType:  req.CustomerType,
	}

	var created *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		id, err := repo.Create(ctx, customer)
		if err != nil {
			return err
		}
		if err := s.hook.CustomerCreated(ctx, tx, id); err != nil {
			return err
		}
		created, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: "customer.create", Entity: "customer", EntityID: id,
			Meta: map[string]any{"account_number": customer.AccountNumber}})
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	var updated *Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		c, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		applyUpdate(c, req)
		if err := repo.Update(ctx, *c); err != nil {
			return err
		}
		if err := s.hook.CustomerUpdated(ctx, tx, id); err != nil {
			return err
		}
		updated, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: "customer.update", Entity: "customer", EntityID: id})
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

// Delete hard-deletes the customer after the lifecycle hook removed dependent cycles.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, tx db.DBTX) error {
		if _, err := repo.Get(ctx, id); err != nil {
			return err
		}
		if err := s.hook.CustomerDeleting(ctx, tx, id); err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, shared.AuditLog{Action: "customer.delete", Entity: "customer", EntityID: id})
	})
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

func applyUpdate(c *Customer, req UpdateCustomerRequest) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.FirstName, req.FirstName)
	set(&c.LastName, req.LastName)
	set(&c.Email, req.Email)
	set(&c.Phone, req.Phone)
	set(&c.Address, req.Address)
	set(&c.AccountNumber, req.AccountNumber)
	set(&c.MeterNumber, req.MeterNumber)
	set(&c.CustomerType, req.CustomerType)
}
