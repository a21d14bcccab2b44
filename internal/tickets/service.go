package tickets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hydrobill/hydrobill/internal/platform/db"
	"github.com/hydrobill/hydrobill/internal/platform/httpx"
	"github.com/hydrobill/hydrobill/internal/shared"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, req CreateTicketRequest, author shared.Principal) (*Ticket, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, Ticket{
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
		Status:      StatusOpen,
		CreatedBy:   author.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Ticket, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListTicketsRequest) ([]Ticket, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	req.Search = strings.TrimSpace(req.Search)
	return s.repo.List(ctx, req)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Update sets the ticket status and appends the remark to its history. The
// ticket row stays locked until the remark is written, so concurrent updates
// get consecutive sequence numbers.
func (s *Service) Update(ctx context.Context, ticketID int64, req UpdateTicketRequest, userName string) (*Ticket, error) {
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	remarks := strings.TrimSpace(req.Remarks)
	var seq int
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository, _ db.DBTX) error {
		if err := repo.Lock(ctx, ticketID); err != nil {
			return err
		}
		var err error
		seq, err = repo.NextSeq(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := repo.AddRemark(ctx, Remark{TicketID: ticketID, Seq: seq, Remarks: remarks, UserName: userName}); err != nil {
			return err
		}
		return repo.SetStatus(ctx, ticketID, req.Status, remarks)
	})
	if err != nil {
		return nil, fmt.Errorf("update ticket %d: %w", ticketID, err)
	}
	s.logger.Info("ticket updated", slog.Int64("ticket_id", ticketID), slog.String("status", req.Status), slog.Int("seq", seq))
	return s.repo.Get(ctx, ticketID)
}

// History returns the ticket's remarks oldest first.
func (s *Service) History(ctx context.Context, ticketID int64) ([]Remark, error) {
	if _, err := s.repo.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, ticketID)
}
